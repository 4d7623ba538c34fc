package handlers

import (
	"context"
	"net/http"
	"time"

	"election-engine/internal/api/interfaces"
	"election-engine/internal/api/models"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Version is reported by the health endpoint
var Version = "1.0.0"

// HealthCheck reports whether the backing stores answer. Any failing check
// turns the response into 503.
func HealthCheck(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := models.HealthCheckResponse{
			Status:    "healthy",
			Timestamp: time.Now().Unix(),
			Version:   Version,
			Uptime:    int64(time.Since(startTime).Seconds()),
			Checks:    map[string]models.HealthCheck{},
		}

		status := http.StatusOK
		for name, err := range services.Health(ctx) {
			check := models.HealthCheck{Status: "healthy"}
			if err != nil {
				services.GetLogger().WithError(err).Warning("health check failed", "check", name)
				check = models.HealthCheck{Status: "unhealthy", Message: err.Error()}
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			}
			resp.Checks[name] = check
		}

		c.JSON(status, resp)
	}
}
