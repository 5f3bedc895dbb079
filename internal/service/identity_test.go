package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	cErr "qrious/internal/pkg/error"
	"qrious/utils/apikey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveAPIKey_Valid(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, key := h.issueKey(t, user.ID)

	caller, err := h.identity.ResolveAPIKey(context.Background(), secret)

	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), caller.SubjectID())
	assert.Equal(t, key.ID.Hex(), caller.KeyID)
	assert.Equal(t, core.ChannelAPIKey, caller.Channel())
	stored, _ := h.apiKeys.Get(key.ID)
	require.NotNil(t, stored.LastUsed)
	assert.Equal(t, h.clock.Now(), *stored.LastUsed)
}

func TestResolveAPIKey_Rejections(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	past := h.clock.Now().Add(-time.Minute)

	revoked, _ := h.issueKey(t, user.ID, func(k *model.APIKey) { k.Status = core.StatusRevoked })
	expiredStatus, _ := h.issueKey(t, user.ID, func(k *model.APIKey) { k.Status = core.StatusExpired })
	pastDue, pastDueKey := h.issueKey(t, user.ID, func(k *model.APIKey) { k.ExpiresAt = &past })

	forged, err := apikey.GenerateAPIKey(user.ID.Hex(), primitive.NewObjectID().Hex(), "another-secret")
	require.NoError(t, err)
	unknown, err := apikey.GenerateAPIKey(user.ID.Hex(), primitive.NewObjectID().Hex(), testSecretKey)
	require.NoError(t, err)

	cases := []struct {
		name   string
		secret string
		status int
	}{
		{"empty", "", http.StatusUnauthorized},
		{"garbage", "not-a-key", http.StatusUnauthorized},
		{"wrong signature", forged, http.StatusUnauthorized},
		{"unknown id", unknown, http.StatusUnauthorized},
		{"revoked", revoked, http.StatusForbidden},
		{"expired status", expiredStatus, http.StatusForbidden},
		{"past expiry", pastDue, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.identity.ResolveAPIKey(context.Background(), tc.secret)
			requireAppErr(t, err, tc.status)
		})
	}

	stored, _ := h.apiKeys.Get(pastDueKey.ID)
	assert.Equal(t, core.StatusExpired, stored.Status)
}

func TestResolveAPIKey_BadSignatureSkipsStore(t *testing.T) {
	h := newHarness(t)

	_, err := h.identity.ResolveAPIKey(context.Background(), "sk_bogus.signature")

	requireAppErr(t, err, http.StatusUnauthorized)
	assert.Zero(t, h.apiKeys.Calls("FindByID"))
}

func TestResolveAPIKey_BlockedOwner(t *testing.T) {
	h := newHarness(t)
	user := h.users.Put(&model.User{Username: "mallory", Email: "m@example.test", Status: core.StatusBlocked})
	secret, _ := h.issueKey(t, user.ID)

	_, err := h.identity.ResolveAPIKey(context.Background(), secret)

	requireAppErr(t, err, http.StatusForbidden)
}

func TestResolveAPIKey_StoreFailure(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.apiKeys.FailFind = func() error { return context.DeadlineExceeded }

	_, err := h.identity.ResolveAPIKey(context.Background(), secret)

	requireAppErr(t, err, http.StatusServiceUnavailable)
}

func TestResolveSession(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	token, err := signToken(user, h.conf.Auth.JwtSecret, time.Hour, h.clock.Now())
	require.NoError(t, err)

	caller, err := h.identity.ResolveSession(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), caller.UserID)
	assert.Equal(t, "alice", caller.Username)
	assert.NotEmpty(t, caller.TokenID)
	stored, _ := h.users.Get(user.ID)
	assert.NotNil(t, stored.LastSeen)

	require.NoError(t, h.blacklist.Add(context.Background(), caller.TokenID, time.Hour))
	_, err = h.identity.ResolveSession(context.Background(), token)
	appErr := requireAppErr(t, err, http.StatusUnauthorized)
	assert.Equal(t, cErr.INVALID_SESSION, appErr.ErrorCode())
}

func TestResolveSession_Rejections(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	expired, err := signToken(user, h.conf.Auth.JwtSecret, time.Hour, h.clock.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	wrongSecret, err := signToken(user, "other", time.Hour, h.clock.Now())
	require.NoError(t, err)
	ghost := &model.User{ID: primitive.NewObjectID(), Username: "ghost"}
	orphan, err := signToken(ghost, h.conf.Auth.JwtSecret, time.Hour, h.clock.Now())
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"expired":      expired,
		"wrong secret": wrongSecret,
		"unknown user": orphan,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.identity.ResolveSession(context.Background(), token)
			requireAppErr(t, err, http.StatusUnauthorized)
		})
	}
}

func TestResolveSession_BlacklistUnavailable(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	token, err := signToken(user, h.conf.Auth.JwtSecret, time.Hour, h.clock.Now())
	require.NoError(t, err)
	h.blacklist.FailExists = func() error { return errors.New("redis down") }

	_, err = h.identity.ResolveSession(context.Background(), token)

	requireAppErr(t, err, http.StatusServiceUnavailable)
}

func TestResolve_UnknownChannel(t *testing.T) {
	h := newHarness(t)

	_, err := h.identity.Resolve(context.Background(), core.Credential{})

	requireAppErr(t, err, http.StatusUnauthorized)
}
