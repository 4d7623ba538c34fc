package middlewares

import (
	"net/http"
	"strings"
	"time"

	"election-engine/internal/api/models"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the authenticating gateway in front of the engine
const (
	VoterIDHeader = "X-Voter-ID"
	AdminIDHeader = "X-Admin-ID"

	ContextVoterID = "voter_id"
	ContextAdminID = "admin_id"
)

// VoterRequired rejects requests that carry no voter identity
func VoterRequired() gin.HandlerFunc {
	return identityRequired(VoterIDHeader, ContextVoterID, "Voter identity required")
}

// AdminRequired rejects requests that carry no administrator identity
func AdminRequired() gin.HandlerFunc {
	return identityRequired(AdminIDHeader, ContextAdminID, "Administrator identity required")
}

func identityRequired(header, key, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			c.JSON(http.StatusUnauthorized, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeUnauthorized,
					Message: message,
					Details: "missing " + header + " header",
				},
				Timestamp: time.Now().Unix(),
				RequestID: c.GetString("request_id"),
			})
			c.Abort()
			return
		}

		c.Set(key, id)
		c.Next()
	}
}
