package handlers

import (
	"net/http"

	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/models"
	"election-engine/internal/database"

	"github.com/gin-gonic/gin"
)

// GetAuditLogs retrieves the audit trail of one election, newest first
func GetAuditLogs(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PaginationRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, services, bindError(err), nil)
			return
		}
		if req.Limit == 0 {
			req.Limit = 50
		}

		logs, err := services.Engine().ListAuditLogs(c.Request.Context(), c.Param("id"), c.Query("action"), req.Limit, req.Offset)
		if err != nil {
			respondError(c, services, err, nil)
			return
		}
		if logs == nil {
			logs = []database.AuditLog{}
		}

		respond(c, http.StatusOK, "", models.PaginatedResponse{
			Data: logs,
			Pagination: models.PaginationInfo{
				Limit:   req.Limit,
				Offset:  req.Offset,
				HasNext: len(logs) == req.Limit,
			},
		})
	}
}
