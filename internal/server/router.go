package server

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// APIPrefix is the versioned mount point; routes are also served at the root.
const APIPrefix = "/api/v1/ocr"

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(
		gin.Recovery(),
		RequestID(logger),
		AccessLog(logger),
		cors.New(corsConfig(cfg.AllowedOrigins)),
	)

	for _, g := range []*gin.RouterGroup{r.Group("/"), r.Group(APIPrefix)} {
		g.GET("/health", h.Health)
		g.POST("/extract", h.Extract)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
