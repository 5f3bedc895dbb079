package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/fluentd/repository"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	logger            *zap.Logger
	trace             *telemetry.Trace
	config            *config.Configuration
	fluentdRepository *repository.LogRepository
}

func NewResponse(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
	fluentdRepository *repository.LogRepository,
) *Response {
	return &Response{
		logger:            logger,
		trace:             trace,
		config:            config,
		fluentdRepository: fluentdRepository,
	}
}

// FormatHandler 將 handler 以 c.Set("data") 留下的 payload 直接輸出為 JSON
func (middleware *Response) FormatHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestTime := requestStart(c)

		// 執行下游
		c.Next()

		// 已有錯誤交由 Recovery，已寫出（redirect、health-check）則不動
		if len(c.Errors) > 0 || c.Writer.Written() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode >= http.StatusBadRequest {
			response.AbortWithError(c, cErr.MapHttpStatusToError(statusCode, "request error"))
			return
		}

		data, _ := c.Get("data")
		if data == nil {
			data = gin.H{}
		}
		message := "Request Success"
		if s, ok := c.Get("message"); ok {
			if str, ok := s.(string); ok && str != "" {
				message = str
			}
		}

		body, err := json.Marshal(data)
		if err != nil {
			response.AbortWithError(c, cErr.InternalServer("marshal response failed"))
			return
		}

		if !skipTelemetry(c.FullPath()) {
			middleware.observe(c, statusCode, message, data, body, time.Since(requestTime))
		}

		c.Data(statusCode, "application/json; charset=utf-8", body)
	}
}

func (middleware *Response) observe(c *gin.Context, statusCode int, message string, data any, body []byte, duration time.Duration) {
	ctx, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanResponseMiddleware))
	defer end(nil)

	traceID := span.SpanContext().TraceID()
	spanID := span.SpanContext().SpanID()

	middleware.trace.ApplyTraceAttributes(span, core.TraceResponseMeta{
		Path:       c.Request.URL.Path,
		Method:     c.Request.Method,
		Status:     statusCode,
		Message:    message,
		DurationMs: float64(duration.Milliseconds()),
		Data:       safePreviewJSON(data, 2000),
	})

	middleware.logger.Info("[Response] "+message,
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Int("status", statusCode),
		zap.Duration("duration", duration),
		zap.String("spanId", fmt.Sprintf("%x", spanID[:])),
		zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
	)

	// 不把 base64 影像整包送進 fluentd
	entry := newResponseLog(c, fmt.Sprintf("%x", traceID[:]), statusCode, duration)
	entry.Body = toSafePreview(body, 4096)
	if err := middleware.fluentdRepository.LogResponse(ctx, entry); err != nil {
		middleware.logger.Warn("[Response] fluentd response log failed", zap.Error(err))
	}
}

// safePreviewJSON 會把資料序列化為 JSON 字串（UTF-8），並限制長度。
func safePreviewJSON(data any, max int) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("[marshal error: %v]", err)
	}
	out := string(b)
	if len(out) > max {
		return out[:max] + "…"
	}
	return out
}
