package middleware

import (
	"net"
	"strconv"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceEntry 最外層：版本 header、server span、請求計時與 prometheus 指標
type TraceEntry struct {
	trace  *telemetry.Trace
	metric *telemetry.Metric
	conf   *config.Configuration
}

func NewTraceEntry(trace *telemetry.Trace, metric *telemetry.Metric, conf *config.Configuration) *TraceEntry {
	return &TraceEntry{trace: trace, metric: metric, conf: conf}
}

func (m *TraceEntry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := m.conf.App.Version; v != "" {
			c.Header("X-App-Version", v)
		}
		route := c.FullPath()
		if skipTelemetry(route) {
			c.Next()
			return
		}

		// 上游帶 traceparent 時延續同一條 trace
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := m.trace.StartSpanForLayer(ctx,
			core.TraceSpanName(c.Request.Method+" "+c.Request.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Set(core.ContextTraceKey, ctx)
		start := requestStart(c)

		peerAddr, peerPort := peerOf(c)
		meta := core.TraceHttpServerMeta{
			ClientAddr:        c.ClientIP(),
			HttpRequestMethod: c.Request.Method,
			HttpRoute:         route,
			UrlPath:           c.Request.URL.Path,
			UrlScheme:         schemeOf(c),
			UserAgent:         c.Request.UserAgent(),
			ServerAddress:     m.conf.App.Name,
			NetworkPeerAddr:   peerAddr,
			NetworkPeerPort:   peerPort,
			NetworkProtoVer:   c.Request.Proto,
			SpanTraceID:       span.SpanContext().TraceID().String(),
		}
		m.trace.ApplyTraceAttributes(span, &meta)

		c.Next()

		status := c.Writer.Status()
		meta.HttpStatusCode = status
		m.trace.ApplyTraceAttributes(span, &meta)
		m.metric.ObserveRequest(route, status, time.Since(start))

		var err error
		if status >= 400 && len(c.Errors) > 0 {
			err = c.Errors.Last().Err
		}
		m.trace.EndSpan(span, err)
	}
}

func peerOf(c *gin.Context) (string, int) {
	host, port, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.ClientIP(), 0
	}
	p, _ := strconv.Atoi(port)
	return host, p
}

func schemeOf(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
