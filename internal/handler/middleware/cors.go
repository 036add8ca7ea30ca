package middleware

import (
	"log/slog"
	"slices"

	"storefront-checkout/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ReplayedHeader marks a response served from a completed idempotency key.
const ReplayedHeader = "Idempotent-Replayed"

func NewCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	// Clients read this to tell a replayed checkout from a fresh one.
	if !slices.Contains(corsCfg.ExposeHeaders, ReplayedHeader) {
		corsCfg.ExposeHeaders = append(slices.Clone(corsCfg.ExposeHeaders), ReplayedHeader)
	}
	slog.Info("CORS middleware initialized",
		"AllowOrigins", cfg.AllowOrigins,
		"AllowHeaders", cfg.AllowHeaders)
	return cors.New(corsCfg)
}
