package middleware

import (
	"strings"

	"qrious/internal/core"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/pkg/response"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const apiKeyHeader = "X-API-Key"

// Credential 只負責把 header 取成原始憑證；驗證交給產生流程，
// 讓請求內容的檢查能發生在任何 I/O 之前
type Credential struct {
	trace *telemetry.Trace
}

func NewCredential(trace *telemetry.Trace) *Credential {
	return &Credential{trace: trace}
}

// APIKey 讀取 x-api-key
func (m *Credential) APIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanAPIKeyMiddleware))
		secret := strings.TrimSpace(c.GetHeader(apiKeyHeader))
		span.SetAttributes(
			attribute.Bool("credential.present", secret != ""),
			attribute.String("credential.channel", string(core.ChannelAPIKey)),
		)
		if secret == "" {
			err := cErr.Unauthorized("API key is required")
			response.AbortWithError(c, err)
			end(err)
			return
		}
		end(nil)
		c.Set(core.ContextCredentialKey, core.Credential{Channel: core.ChannelAPIKey, Secret: secret})
		c.Next()
	}
}

// Bearer 讀取 Authorization: Bearer <token>
func (m *Credential) Bearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanSessionMiddleware))
		token := bearerToken(c)
		span.SetAttributes(
			attribute.Bool("credential.present", token != ""),
			attribute.String("credential.channel", string(core.ChannelSession)),
		)
		if token == "" {
			err := cErr.Unauthorized("access token is required")
			response.AbortWithError(c, err)
			end(err)
			return
		}
		end(nil)
		c.Set(core.ContextCredentialKey, core.Credential{Channel: core.ChannelSession, Secret: token})
		c.Next()
	}
}

// CredentialFrom 取出 Credential middleware 放入的憑證
func CredentialFrom(c *gin.Context) (core.Credential, bool) {
	raw, ok := c.Get(core.ContextCredentialKey)
	if !ok {
		return core.Credential{}, false
	}
	credential, ok := raw.(core.Credential)
	return credential, ok
}

func bearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) < len("Bearer ") || !strings.EqualFold(auth[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("Bearer "):])
}
