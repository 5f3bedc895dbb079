package middleware

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"qrious/internal/core"
	"qrious/internal/database/fluentd/model"

	"github.com/gin-gonic/gin"
)

const requestStartKey = "requestDuration"

// 不記錄內容的敏感欄位與 header
var (
	redactedHeaders = map[string]struct{}{"authorization": {}, "x-api-key": {}, "cookie": {}}
	redactedFields  = []string{"password"}
)

// skipTelemetry 這些路徑不做追蹤與請求紀錄
func skipTelemetry(endpoint string) bool {
	for _, prefix := range []string{"/swagger", "/metrics", "/version", "/health", "/debug/pprof"} {
		if strings.HasPrefix(endpoint, prefix) {
			return true
		}
	}
	return false
}

// requestStart 取 trace entry 記下的開始時間，沒有就以現在為準並寫回
func requestStart(c *gin.Context) time.Time {
	if v, ok := c.Get(requestStartKey); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	now := time.Now()
	c.Set(requestStartKey, now)
	return now
}

// requestChannel 只看 header 判斷呼叫通道，不驗證憑證
func requestChannel(r *http.Request) core.Channel {
	if strings.TrimSpace(r.Header.Get(apiKeyHeader)) != "" {
		return core.ChannelAPIKey
	}
	if scheme, _, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
		return core.ChannelSession
	}
	return ""
}

func headerSnapshot(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		lk := strings.ToLower(k)
		if _, hidden := redactedHeaders[lk]; hidden {
			out[lk] = "[redacted]"
			continue
		}
		out[lk] = strings.Join(v, ",")
	}
	return out
}

func newResponseLog(c *gin.Context, requestID string, status int, latency time.Duration) model.ResponseLog {
	return model.ResponseLog{
		RequestID:  requestID,
		Method:     c.Request.Method,
		Route:      c.FullPath(),
		StatusCode: status,
		LatencyMs:  float64(latency.Microseconds()) / 1000,
		ResponseTS: model.Timestamp(time.Now()),
	}
}

// 文字內容直接截斷，非 UTF-8 以 base64 表示
func toSafePreview(b []byte, max int) string {
	if len(b) == 0 {
		return ""
	}
	if len(b) > max {
		if utf8.Valid(b) {
			return string(b[:max]) + "…"
		}
		b = b[:max]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}

func isBinaryContent(mediaType string) bool {
	if mediaType == "application/octet-stream" {
		return true
	}
	for _, prefix := range []string{"multipart/", "image/", "audio/", "video/"} {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}
	return false
}

// redactBody 遮蔽 JSON body 中的密碼欄位值
func redactBody(body string) string {
	for _, field := range redactedFields {
		key := `"` + field + `"`
		idx := strings.Index(body, key)
		for idx >= 0 {
			start := strings.Index(body[idx+len(key):], `"`)
			if start < 0 {
				break
			}
			start += idx + len(key) + 1
			stop := strings.Index(body[start:], `"`)
			if stop < 0 {
				break
			}
			body = body[:start] + "***" + body[start+stop:]
			next := strings.Index(body[start:], key)
			if next < 0 {
				break
			}
			idx = start + next
		}
	}
	return body
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return base64.RawStdEncoding.EncodeToString(sum[:12])
}
