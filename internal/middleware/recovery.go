package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/fluentd/repository"
	cErr "qrious/internal/pkg/error"
	res "qrious/internal/pkg/response"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Recovery struct {
	logger            *zap.Logger
	trace             *telemetry.Trace
	config            *config.Configuration
	fluentdRepository *repository.LogRepository
}

func NewRecovery(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
	fluentdRepository *repository.LogRepository,
) *Recovery {
	return &Recovery{
		logger:            logger,
		trace:             trace,
		config:            config,
		fluentdRepository: fluentdRepository,
	}
}

// ErrorHandler 統一輸出錯誤信封 {"error","code","requestID",...details}
func (middleware *Recovery) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestTime := requestStart(c)
		requestUUID, err := uuid.NewV7()
		if err != nil {
			requestUUID = uuid.New()
		}
		requestID := requestUUID.String()
		c.Header("X-Request-ID", requestID)

		// ---- panic recover 必須在 c.Next() 之前註冊 ----
		defer func() {
			if rec := recover(); rec != nil {
				duration := time.Since(requestTime)

				ctx, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanRecoveryMiddleware))
				traceID := span.SpanContext().TraceID()

				meta := core.TracePanicMeta{
					Path:       c.Request.URL.Path,
					Method:     c.Request.Method,
					ClientIP:   c.ClientIP(),
					UserAgent:  c.Request.UserAgent(),
					DurationMs: float64(duration.Milliseconds()),
					Message:    toSafeString(fmt.Sprint(rec)),
					Stack:      toSafeStack(debug.Stack()),
					Status:     http.StatusInternalServerError,
				}
				middleware.trace.ApplyTraceAttributes(span, meta)

				middleware.logger.Error("[PANIC] Recovered",
					zap.String("path", meta.Path),
					zap.String("method", meta.Method),
					zap.String("client_ip", meta.ClientIP),
					zap.String("user_agent", meta.UserAgent),
					zap.Duration("duration", duration),
					zap.String("panic", meta.Message),
					zap.String("stacktrace", meta.Stack),
					zap.String("requestId", requestID),
					zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
				)

				panicErr := cErr.InternalServer("unexpected panic")
				// 尚未回寫才輸出
				if !c.Writer.Written() {
					res.FailByErr(c, requestID, panicErr)
				}
				middleware.logResponse(ctx, c, requestID, cErr.INTERNAL_ERROR, http.StatusInternalServerError, meta.Message, duration)
				end(panicErr)
				c.Abort()
			}
		}()

		// 執行下游
		c.Next()

		// ---- 統一處理非 panic 的 gin errors（若尚未回寫）----
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		duration := time.Since(requestTime)

		ctx, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanRecoveryMiddleware))
		traceID := span.SpanContext().TraceID()

		// 找第一個 *cErr.Error
		for _, e := range c.Errors {
			appErr, ok := e.Err.(*cErr.Error)
			if !ok {
				continue
			}
			middleware.trace.ApplyTraceAttributes(span, core.TraceErrorMeta{
				Code:       appErr.ErrorCode(),
				Message:    appErr.Error(),
				Detail:     appErr.ErrorDesc(),
				DurationMs: float64(duration.Milliseconds()),
				Status:     appErr.HttpCode(),
			})
			middleware.logger.Warn(appErr.Error(),
				zap.Int("code", appErr.ErrorCode()),
				zap.Int("status", appErr.HttpCode()),
				zap.String("data", appErr.ErrorDesc()),
				zap.Duration("duration", duration),
				zap.String("requestId", requestID),
				zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
			)
			middleware.logResponse(ctx, c, requestID, appErr.ErrorCode(), appErr.HttpCode(), appErr.ErrorDesc(), duration)
			res.FailByErr(c, requestID, appErr)
			end(nil)
			c.Abort()
			return
		}

		// 其餘未知錯誤
		unknown := c.Errors.String()
		middleware.trace.ApplyTraceAttributes(span, core.TraceErrorMeta{
			Code:       cErr.INTERNAL_ERROR,
			Message:    "unknown-error",
			Detail:     toSafeString(unknown),
			DurationMs: float64(duration.Milliseconds()),
			Status:     http.StatusInternalServerError,
		})
		middleware.logger.Warn("[ERROR] unknown",
			zap.String("error", unknown),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		)
		middleware.logResponse(ctx, c, requestID, cErr.INTERNAL_ERROR, http.StatusInternalServerError, toSafeString(unknown), duration)
		res.Fail(c, requestID, http.StatusInternalServerError, cErr.INTERNAL_ERROR, "internal error", nil)
		end(c.Errors.Last().Err)
		c.Abort()
	}
}

func (middleware *Recovery) logResponse(ctx context.Context, c *gin.Context, requestID string, code int, status int, message string, duration time.Duration) {
	entry := newResponseLog(c, requestID, status, duration)
	entry.Code = code
	entry.Error = message
	if err := middleware.fluentdRepository.LogResponse(ctx, entry); err != nil {
		middleware.logger.Warn("[Recovery] fluentd response log failed", zap.Error(err))
	}
}

func toSafeString(s string) string {
	return toSafePreview([]byte(s), 8000)
}

func toSafeStack(b []byte) string {
	return toSafePreview(b, 16000)
}
