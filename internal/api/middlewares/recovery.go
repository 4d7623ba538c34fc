package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"election-engine/internal/api/models"
	"election-engine/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery middleware recovers from panics. The panic value is logged, never returned.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithFields(map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("panic recovered: %s", fmt.Sprint(recovered))

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.BaseResponse{
			Success: false,
			Error: &models.ErrorInfo{
				Code:    models.ErrCodeInternalError,
				Message: "Internal server error",
			},
			Timestamp: time.Now().Unix(),
			RequestID: c.GetString("request_id"),
		})
	})
}
