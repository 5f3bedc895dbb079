package middleware

import (
	"qrious/internal/core"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/service"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Session struct {
	logger   *zap.Logger
	trace    *telemetry.Trace
	identity *service.IdentityResolver
}

func NewSession(
	logger *zap.Logger,
	trace *telemetry.Trace,
	identity *service.IdentityResolver,
) *Session {
	return &Session{
		logger:   logger,
		trace:    trace,
		identity: identity,
	}
}

// Handler 解析 Bearer token，成功後把 *core.SessionCaller 放進 context
func (m *Session) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanSessionMiddleware))
		token := bearerToken(c)
		if token == "" {
			m.trace.ApplyTraceAttributes(span, core.TraceIdentityMeta{
				Channel: string(core.ChannelSession),
				Status:  "missing_token",
			})
			err := cErr.Unauthorized("access token is required")
			response.AbortWithError(c, err)
			end(err)
			return
		}

		caller, err := m.identity.ResolveSession(ctx, token)
		if err != nil {
			response.AbortWithError(c, err)
			end(err)
			return
		}
		end(nil)
		c.Set(core.ContextCallerKey, caller)
		c.Next()
	}
}

// RequireRole 必須放在 Handler 之後
func (m *Session) RequireRole(role core.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := SessionFrom(c)
		if !ok {
			response.AbortWithError(c, cErr.Unauthorized("access token is required"))
			return
		}
		if caller.Role != role {
			m.logger.Info("[Session] role denied",
				zap.String("userId", caller.UserID),
				zap.String("role", string(caller.Role)),
				zap.String("required", string(role)),
			)
			response.AbortWithError(c, cErr.Forbidden("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// SessionFrom 取出 Session middleware 解析好的呼叫者
func SessionFrom(c *gin.Context) (*core.SessionCaller, bool) {
	raw, ok := c.Get(core.ContextCallerKey)
	if !ok {
		return nil, false
	}
	caller, ok := raw.(*core.SessionCaller)
	return caller, ok && caller != nil
}
