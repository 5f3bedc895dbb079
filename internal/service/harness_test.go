package service

import (
	"sync"
	"testing"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/service/servicetest"
	"qrious/internal/telemetry"
	"qrious/utils/apikey"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecretKey = "test-secret-key"

// testClock 可手動推進的時鐘
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	conf      *config.Configuration
	clock     *testClock
	store     *servicetest.QRCodeStore
	apiKeys   *servicetest.APIKeyStore
	users     *servicetest.UserStore
	blacklist *servicetest.Blacklist
	genLog    *servicetest.GenerationLogger
	encoder   *servicetest.Encoder

	identity *IdentityResolver
	ledger   *QuotaLedger
	cache    *ArtifactCache
	qrCodes  *QRCodeService
	scans    *ScanTracker
	keys     *APIKeyService
	auth     *AuthService
}

func testConfig() *config.Configuration {
	conf := &config.Configuration{}
	conf.App.Name = "qrious"
	conf.App.SecretKey = testSecretKey
	conf.App.PublicURL = "https://qr.test/"
	conf.Auth.JwtSecret = "jwt-test-secret"
	conf.Auth.BcryptCost = 4
	return conf
}

func newHarness(t *testing.T, tweak ...func(*config.Configuration)) *harness {
	t.Helper()
	conf := testConfig()
	for _, fn := range tweak {
		fn(conf)
	}

	trace := &telemetry.Trace{}
	logger := zap.NewNop()
	h := &harness{
		conf:      conf,
		clock:     &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		store:     servicetest.NewQRCodeStore(),
		apiKeys:   servicetest.NewAPIKeyStore(),
		users:     servicetest.NewUserStore(),
		blacklist: servicetest.NewBlacklist(),
		genLog:    &servicetest.GenerationLogger{},
		encoder:   &servicetest.Encoder{},
	}

	h.identity = NewIdentityResolver(trace, logger, conf, h.apiKeys, h.users, h.blacklist)
	h.identity.now = h.clock.Now
	h.ledger = NewQuotaLedger(trace, nil, logger, conf, NewQuotaPolicy(conf), h.store)
	h.ledger.now = h.clock.Now
	h.cache = NewArtifactCache(trace, logger, conf, h.store)
	h.qrCodes = NewQRCodeService(trace, nil, logger, conf, h.identity, h.ledger, h.cache, h.encoder, h.store, h.genLog)
	h.qrCodes.now = h.clock.Now
	h.scans = NewScanTracker(trace, nil, logger, conf, h.store)
	h.scans.now = h.clock.Now
	h.keys = NewAPIKeyService(trace, logger, conf, h.apiKeys)
	h.keys.now = h.clock.Now
	h.auth = NewAuthService(trace, logger, conf, h.users, h.blacklist)
	h.auth.now = h.clock.Now
	return h
}

func (h *harness) addUser(username string) *model.User {
	return h.users.Put(&model.User{
		Username:  username,
		Email:     username + "@example.test",
		Role:      core.RoleUser,
		Status:    core.StatusActive,
		CreatedAt: h.clock.Now(),
	})
}

// issueKey 建立一把有效的 key 並回傳明文
func (h *harness) issueKey(t *testing.T, userID primitive.ObjectID, mutate ...func(*model.APIKey)) (string, *model.APIKey) {
	t.Helper()
	keyID := primitive.NewObjectID()
	secret, err := apikey.GenerateAPIKey(userID.Hex(), keyID.Hex(), testSecretKey)
	require.NoError(t, err)
	key := &model.APIKey{
		ID:        keyID,
		UserID:    userID,
		Name:      "ci",
		Key:       secret,
		Status:    core.StatusActive,
		CreatedAt: h.clock.Now(),
	}
	for _, fn := range mutate {
		fn(key)
	}
	h.apiKeys.Put(key)
	return secret, key
}

// seedArtifacts 放入 n 筆該使用者在 at 時建立的產物
func (h *harness) seedArtifacts(userID primitive.ObjectID, channel core.Channel, n int, at time.Time) {
	for i := 0; i < n; i++ {
		h.store.Put(&model.QRCode{
			URL:          "https://seed.test/" + primitive.NewObjectID().Hex(),
			UserID:       userID,
			GeneratedVia: channel,
			State:        core.ArtifactFinalized,
			CreatedAt:    at,
		})
	}
}

func apiKeyCredential(secret string) core.Credential {
	return core.Credential{Channel: core.ChannelAPIKey, Secret: secret}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }
