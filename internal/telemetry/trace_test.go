package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

type nestedMeta struct {
	Bucket string `trace:"throttle.bucket"`
}

type sampleMeta struct {
	Channel string            `trace:"quota.channel"`
	Used    int64             `trace:"quota.used"`
	Ratio   float64           `trace:"ratio"`
	Denied  string            `trace:"quota.denied_scope,omitempty"`
	Tags    []string          `trace:"tags"`
	Headers map[string]string `trace:"http.header"`
	Nested  *nestedMeta       `trace:"nested"`
	Skipped string
}

func TestAttributesOf(t *testing.T) {
	attrs := attributesOf(&sampleMeta{
		Channel: "api_key",
		Used:    3,
		Ratio:   0.5,
		Tags:    []string{"a", "b"},
		Headers: map[string]string{"x-request-id": "r1"},
		Nested:  &nestedMeta{Bucket: "general"},
		Skipped: "nope",
	})

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}
	assert.Equal(t, "api_key", got["quota.channel"].AsString())
	assert.Equal(t, int64(3), got["quota.used"].AsInt64())
	assert.Equal(t, 0.5, got["ratio"].AsFloat64())
	assert.Equal(t, []string{"a", "b"}, got["tags"].AsStringSlice())
	assert.Equal(t, "r1", got["http.header.x-request-id"].AsString())
	assert.Equal(t, "general", got["throttle.bucket"].AsString())
	_, hasDenied := got["quota.denied_scope"]
	assert.False(t, hasDenied)
	assert.Len(t, got, 6)
}

func TestAttributesOfIgnoresNonStruct(t *testing.T) {
	assert.Nil(t, attributesOf("plain"))
	assert.Nil(t, attributesOf((*sampleMeta)(nil)))
}

func TestPrettifyFuncName(t *testing.T) {
	cases := map[string]string{
		"qrious/internal/service.(*QuotaLedger).Admit":       "QuotaLedger.Admit",
		"qrious/internal/handler.(*ScanHandler).Scan-fm":     "ScanHandler.Scan",
		"qrious/internal/service.(*ScanTracker).Track.func1": "ScanTracker.Track",
		"qrious/internal/service.Cache[...].Get":             "Cache.Get",
	}
	for in, want := range cases {
		assert.Equal(t, want, prettifyFuncName(in), in)
	}
}

func TestZeroTraceIsNoop(t *testing.T) {
	trace, cleanup, err := NewTrace(nil)
	require.NoError(t, err)
	defer cleanup()

	ctx, span, end := trace.WithSpan(context.Background())
	assert.NotNil(t, ctx)
	assert.False(t, span.SpanContext().IsValid())
	end(errors.New("ignored"))
}
