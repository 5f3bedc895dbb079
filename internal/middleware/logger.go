package middleware

import (
	"bytes"
	"fmt"
	"io"
	"mime"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/fluentd/model"
	"qrious/internal/database/fluentd/repository"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestBodyPreview = 2000

type Logger struct {
	logger            *zap.Logger
	trace             *telemetry.Trace
	config            *config.Configuration
	fluentdRepository *repository.LogRepository
}

func NewLogger(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
	fluentdRepository *repository.LogRepository,
) *Logger {
	return &Logger{
		logger:            logger,
		trace:             trace,
		config:            config,
		fluentdRepository: fluentdRepository,
	}
}

// LoggerHandler 記錄每個進站請求；二進位 body 不讀，文字 body 截斷並遮蔽密碼
func (m *Logger) LoggerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if skipTelemetry(route) {
			c.Next()
			return
		}

		ctx, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanLoggerMiddleware))
		started := requestStart(c)
		body := readBodyPreview(c)
		channel := requestChannel(c.Request)
		headers := headerSnapshot(c.Request.Header)
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}

		traceID := span.SpanContext().TraceID()
		spanID := span.SpanContext().SpanID()

		m.trace.ApplyTraceAttributes(span, core.LoggerRequestMeta{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			FullPath:   route,
			Query:      c.Request.URL.RawQuery,
			Body:       body,
			Scheme:     c.Request.URL.Scheme,
			Host:       c.Request.Host,
			UserAgent:  c.Request.UserAgent(),
			ContentLen: c.Request.ContentLength,
			Proto:      c.Request.Proto,
			ClientIP:   c.ClientIP(),
			Headers:    headers,
			Params:     params,
		})

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("headers", headers),
			zap.String("spanId", fmt.Sprintf("%x", spanID[:])),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		}
		if channel != "" {
			fields = append(fields, zap.String("channel", string(channel)))
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(params) > 0 {
			fields = append(fields, zap.Any("params", params))
		}
		if body != "" {
			fields = append(fields, zap.String("body", body))
		}
		m.logger.Info("[Request] "+c.Request.Method+" "+c.Request.URL.Path, fields...)

		entry := model.RequestLog{
			RequestID: fmt.Sprintf("%x", traceID[:]),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Route:     route,
			Query:     c.Request.URL.RawQuery,
			Channel:   string(channel),
			Body:      body,
			IPHash:    hashIP(c.ClientIP()),
			UserAgent: c.Request.UserAgent(),
			RequestTS: model.Timestamp(started),
		}
		if err := m.fluentdRepository.LogRequest(ctx, entry); err != nil {
			m.logger.Warn("[Request] fluentd request log failed", zap.Error(err))
		}
		end(nil)
		c.Next()
	}
}

// readBodyPreview 讀完後把 body 放回，下游仍可綁定
func readBodyPreview(c *gin.Context) string {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if isBinaryContent(mediaType) {
		if c.Request.ContentLength > 0 {
			return fmt.Sprintf("(binary %s, %d bytes)", mediaType, c.Request.ContentLength)
		}
		return fmt.Sprintf("(binary %s)", mediaType)
	}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	data, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	return redactBody(toSafePreview(data, requestBodyPreview))
}
