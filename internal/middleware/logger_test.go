package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"qrious/config"
	"qrious/internal/database/fluentd/repository"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedLog struct {
	tag string
	rec map[string]any
}

type capturingClient struct {
	mu   sync.Mutex
	logs []capturedLog
}

func (c *capturingClient) Post(_ context.Context, tag string, rec map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, capturedLog{tag: tag, rec: rec})
	return nil
}

func (c *capturingClient) Close() error { return nil }

func (c *capturingClient) byTag(tag string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, l := range c.logs {
		if l.tag == tag {
			out = append(out, l.rec)
		}
	}
	return out
}

func TestLoggerRecordsRequestForFluentd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conf := &config.Configuration{App: config.App{Name: "qrious", Version: "0.0.1"}}
	fluentd := &capturingClient{}
	logRepo := repository.NewLogRepository(conf, fluentd)

	var seenBody string
	r := gin.New()
	r.Use(NewLogger(zap.NewNop(), &telemetry.Trace{}, conf, logRepo).LoggerHandler())
	r.POST("/qrcode/generate", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		seenBody = string(b)
		c.Status(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/qrcode/generate?src=test", strings.NewReader(`{"url":"https://a.test","password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "sk_secret")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, `{"url":"https://a.test","password":"hunter2"}`, seenBody)

	requests := fluentd.byTag("request_log")
	require.Len(t, requests, 1)
	rec := requests[0]
	assert.Equal(t, "apikey", rec["channel"])
	assert.Equal(t, "/qrcode/generate", rec["route"])
	assert.Equal(t, "src=test", rec["query"])
	assert.Equal(t, "qrious", rec["project_name"])
	assert.NotContains(t, rec["body"], "hunter2")
	assert.NotEmpty(t, rec["ip_hash"])
}

func TestLoggerSkipsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conf := &config.Configuration{}
	fluentd := &capturingClient{}

	r := gin.New()
	r.Use(NewLogger(zap.NewNop(), &telemetry.Trace{}, conf, repository.NewLogRepository(conf, fluentd)).LoggerHandler())
	r.GET("/health/liveness", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/liveness", nil))

	assert.Empty(t, fluentd.byTag("request_log"))
}

func TestRequestChannel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", string(requestChannel(req)))

	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "session", string(requestChannel(req)))

	req.Header.Set("X-API-Key", "sk_x")
	assert.Equal(t, "apikey", string(requestChannel(req)))
}

func TestToSafePreview(t *testing.T) {
	assert.Equal(t, "", toSafePreview(nil, 10))
	assert.Equal(t, "abc…", toSafePreview([]byte("abcdef"), 3))
	assert.Equal(t, "b64:/w==", toSafePreview([]byte{0xff}, 10))
}
