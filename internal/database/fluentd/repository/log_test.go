package repository

import (
	"context"
	"testing"
	"time"

	"qrious/config"
	"qrious/internal/database/fluentd/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postedRecord struct {
	tag string
	rec map[string]any
}

type recordingClient struct {
	posted []postedRecord
}

func (c *recordingClient) Post(_ context.Context, tag string, rec map[string]any) error {
	c.posted = append(c.posted, postedRecord{tag: tag, rec: rec})
	return nil
}

func (c *recordingClient) Close() error { return nil }

func TestLogRepositoryLogGeneration(t *testing.T) {
	fluentd := &recordingClient{}
	repository := NewLogRepository(&config.Configuration{App: config.App{Name: "qrious", Version: "2.1.0"}}, fluentd)

	err := repository.LogGeneration(context.Background(), model.GenerationLog{
		UserID:     "u1",
		Channel:    "apikey",
		Result:     "created",
		HourlyUsed: 1,
	})
	require.NoError(t, err)

	require.Len(t, fluentd.posted, 1)
	posted := fluentd.posted[0]
	assert.Equal(t, "qrcode_generation_log", posted.tag)
	assert.Equal(t, "created", posted.rec["result"])
	assert.Equal(t, "2.1.0", posted.rec["version"])
	assert.Equal(t, "qrious", posted.rec["project_name"])
	assert.EqualValues(t, 1, posted.rec["hourly_used"])
	assert.NotEmpty(t, posted.rec["logged_at"])
}

func TestLogRepositoryDefaultsVersion(t *testing.T) {
	fluentd := &recordingClient{}
	repository := NewLogRepository(&config.Configuration{}, fluentd)

	require.NoError(t, repository.LogRequest(context.Background(), model.RequestLog{Path: "/qrcode", Method: "GET"}))
	require.NoError(t, repository.LogResponse(context.Background(), model.ResponseLog{StatusCode: 201}))

	require.Len(t, fluentd.posted, 2)
	assert.Equal(t, "request_log", fluentd.posted[0].tag)
	assert.Equal(t, "1.0.0", fluentd.posted[0].rec["version"])
	assert.Equal(t, "response_log", fluentd.posted[1].tag)
	assert.EqualValues(t, 201, fluentd.posted[1].rec["status_code"])
}

func TestLogRepositoryKeepsCallerEnvelope(t *testing.T) {
	fluentd := &recordingClient{}
	repository := NewLogRepository(&config.Configuration{App: config.App{Name: "qrious", Version: "2.1.0"}}, fluentd)
	repository.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, repository.LogRequest(context.Background(), model.RequestLog{
		Envelope: model.Envelope{LoggedAt: "2026-02-28 23:59:59 UTC"},
		Path:     "/qrcode",
		Channel:  "apikey",
	}))
	require.NoError(t, repository.LogRequest(context.Background(), model.RequestLog{Path: "/scan/x"}))

	assert.Equal(t, "2026-02-28 23:59:59 UTC", fluentd.posted[0].rec["logged_at"])
	assert.Equal(t, "apikey", fluentd.posted[0].rec["channel"])
	assert.Equal(t, "2026-03-01 08:00:00 UTC", fluentd.posted[1].rec["logged_at"])
	assert.Equal(t, "qrious", fluentd.posted[1].rec["project_name"])
	_, hasChannel := fluentd.posted[1].rec["channel"]
	assert.False(t, hasChannel)
}
