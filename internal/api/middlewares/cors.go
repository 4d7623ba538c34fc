package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS middleware handles Cross-Origin Resource Sharing for the listed origins.
// Outside release mode any origin is allowed.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID", VoterIDHeader, AdminIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        24 * time.Hour,
	}
	if gin.Mode() != gin.ReleaseMode || len(allowedOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
