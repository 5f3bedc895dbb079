package middleware

import (
	"net/http"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/telemetry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// 前端要讀得到的回應 header：request id、版本與限流資訊
var exposedHeaders = []string{
	"X-Request-ID",
	"X-App-Version",
	"X-RateLimit-Limit",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	"Retry-After",
}

type Cors struct {
	trace  *telemetry.Trace
	config cors.Config
}

func NewCors(trace *telemetry.Trace, conf *config.Configuration) *Cors {
	return &Cors{trace: trace, config: corsConfig(conf)}
}

func corsConfig(conf *config.Configuration) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders:  []string{"Content-Type", "Authorization", apiKeyHeader},
		ExposeHeaders: exposedHeaders,
		MaxAge:        12 * time.Hour,
	}
	if conf != nil && len(conf.App.CorsOrigins) > 0 {
		cfg.AllowOrigins = conf.App.CorsOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	return cfg
}

// CorsHandler 不追蹤的路徑仍要套 CORS，避免 preflight 失敗
func (m *Cors) CorsHandler() gin.HandlerFunc {
	corsHandler := cors.New(m.config)

	type corsMeta struct {
		AllowAll     bool     `trace:"http.cors.allow_all_origins"`
		AllowOrigins []string `trace:"http.cors.allow_origins,omitempty"`
		Preflight    bool     `trace:"http.cors.preflight"`
	}

	return func(c *gin.Context) {
		if skipTelemetry(c.FullPath()) {
			corsHandler(c)
			return
		}

		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanCorsMiddleware))
		defer end(nil)
		m.trace.ApplyTraceAttributes(span, corsMeta{
			AllowAll:     m.config.AllowAllOrigins,
			AllowOrigins: m.config.AllowOrigins,
			Preflight:    c.Request.Method == http.MethodOptions,
		})

		corsHandler(c)
	}
}
