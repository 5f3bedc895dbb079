package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"qrious/config"
	"qrious/internal/core"
	cErr "qrious/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaPolicy_MergesConfigOverDefaults(t *testing.T) {
	conf := testConfig()
	conf.Quota.APIKey = config.QuotaLimits{Hourly: 5}

	policy := NewQuotaPolicy(conf)

	assert.Equal(t, QuotaLimits{Hourly: 5, Daily: 1000, Monthly: 10000}, policy.Limits(core.ChannelAPIKey))
	assert.Equal(t, QuotaLimits{Hourly: 200, Daily: 2000, Monthly: 20000}, policy.Limits(core.ChannelSession))
}

func TestQuotaLedger_AdmitBelowLimit(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 99, h.clock.Now().Add(-10*time.Minute))

	usage, err := h.ledger.Admit(context.Background(), &core.APIKeyCaller{UserID: user.ID.Hex()})

	require.NoError(t, err)
	assert.Equal(t, core.UsageWindow{Used: 99, Limit: 100}, usage.Hourly)
	assert.Equal(t, core.UsageWindow{Used: 99, Limit: 1000}, usage.Daily)
	assert.Equal(t, core.UsageWindow{Used: 99, Limit: 10000}, usage.Monthly)
}

func TestQuotaLedger_DeniesAtHourlyLimit(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	oldest := h.clock.Now().Add(-50 * time.Minute)
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 1, oldest)
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 99, h.clock.Now().Add(-5*time.Minute))

	usage, err := h.ledger.Admit(context.Background(), &core.APIKeyCaller{UserID: user.ID.Hex()})

	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusTooManyRequests, appErr.HttpCode())
	assert.Equal(t, "hourly", appErr.Details()["scope"])
	assert.Equal(t, int64(100), appErr.Details()["used"])
	assert.Equal(t, int64(100), appErr.Details()["limit"])
	assert.Equal(t, oldest.Add(time.Hour), appErr.Details()["resetTime"])
	assert.Equal(t, int64(100), usage.Hourly.Used)
}

func TestQuotaLedger_ChecksScopesInOrder(t *testing.T) {
	h := newHarness(t, func(conf *config.Configuration) {
		conf.Quota.APIKey = config.QuotaLimits{Hourly: 10, Daily: 10, Monthly: 10}
	})
	user := h.addUser("alice")
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 10, h.clock.Now().Add(-2*time.Hour))

	_, err := h.ledger.Admit(context.Background(), &core.APIKeyCaller{UserID: user.ID.Hex()})

	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr))
	// hourly 視窗已空，第一個觸頂的是 daily
	assert.Equal(t, "daily", appErr.Details()["scope"])
}

func TestQuotaLedger_ResetTimeFollowsOldestInWindow(t *testing.T) {
	h := newHarness(t, func(conf *config.Configuration) {
		conf.Quota.APIKey = config.QuotaLimits{Hourly: 10, Daily: 10, Monthly: 100}
	})
	user := h.addUser("alice")
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 1, h.clock.Now().Add(-30*time.Hour))
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 4, h.clock.Now().Add(-20*time.Hour))
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 6, h.clock.Now().Add(-3*time.Hour))

	_, err := h.ledger.Admit(context.Background(), &core.APIKeyCaller{UserID: user.ID.Hex()})

	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "daily", appErr.Details()["scope"])
	// 視窗外那筆不算，最舊的是 20 小時前，4 小時後才滑出 24h 視窗
	assert.Equal(t, time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC), appErr.Details()["resetTime"])
}

func TestQuotaLedger_WindowsRollOff(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 100, h.clock.Now().Add(-30*time.Minute))

	caller := &core.APIKeyCaller{UserID: user.ID.Hex()}
	_, err := h.ledger.Admit(context.Background(), caller)
	require.Error(t, err)

	h.clock.Advance(31 * time.Minute)
	usage, err := h.ledger.Admit(context.Background(), caller)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Hourly.Used)
	assert.Equal(t, int64(100), usage.Daily.Used)
}

func TestQuotaLedger_ChannelsAreSeparate(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	h.seedArtifacts(user.ID, core.ChannelAPIKey, 100, h.clock.Now().Add(-time.Minute))

	usage, err := h.ledger.Admit(context.Background(), &core.SessionCaller{UserID: user.ID.Hex()})

	require.NoError(t, err)
	assert.Equal(t, core.UsageWindow{Used: 0, Limit: 200}, usage.Hourly)
}

func TestQuotaLedger_StoreFailure(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	h.store.FailCount = func() error { return errors.New("connection reset") }

	_, err := h.ledger.Admit(context.Background(), &core.APIKeyCaller{UserID: user.ID.Hex()})

	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.HttpCode())
}

func TestQuotaLedger_RejectsMissingCaller(t *testing.T) {
	h := newHarness(t)

	_, err := h.ledger.Admit(context.Background(), nil)

	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusUnauthorized, appErr.HttpCode())
}
