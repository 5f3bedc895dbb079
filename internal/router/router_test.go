package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/client"
	fluentdRepo "qrious/internal/database/fluentd/repository"
	redisRepo "qrious/internal/database/redis/repository"
	"qrious/internal/handler"
	"qrious/internal/middleware"
	"qrious/internal/service"
	"qrious/internal/service/servicetest"
	"qrious/internal/telemetry"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type testApp struct {
	engine  *gin.Engine
	store   *servicetest.QRCodeStore
	apiKeys *servicetest.APIKeyStore
	users   *servicetest.UserStore
	encoder *servicetest.Encoder
	health  *service.HealthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &config.Configuration{}
	conf.App.Env = "test"
	conf.App.Name = "qrious"
	conf.App.Version = "1.2.3"
	conf.App.SecretKey = "router-secret-key"
	conf.App.PublicURL = "https://qr.test/"
	conf.Auth.JwtSecret = "router-jwt-secret"
	conf.Auth.BcryptCost = 4

	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	redisClient := client.NewRedisClientFrom(rdb, "qrious-router-test")

	trace := &telemetry.Trace{}
	logger := zap.NewNop()
	app := &testApp{
		store:   servicetest.NewQRCodeStore(),
		apiKeys: servicetest.NewAPIKeyStore(),
		users:   servicetest.NewUserStore(),
		encoder: &servicetest.Encoder{},
		health:  service.NewHealthServiceWith(map[string]service.Pinger{"redis": redisClient}),
	}
	blacklist := redisRepo.NewTokenBlacklistRepository(trace, redisClient)
	logRepo := fluentdRepo.NewLogRepository(conf, &client.NoopClient{})

	identity := service.NewIdentityResolver(trace, logger, conf, app.apiKeys, app.users, blacklist)
	ledger := service.NewQuotaLedger(trace, nil, logger, conf, service.NewQuotaPolicy(conf), app.store)
	cache := service.NewArtifactCache(trace, logger, conf, app.store)
	qrCodes := service.NewQRCodeService(trace, nil, logger, conf, identity, ledger, cache, app.encoder, app.store, logRepo)
	scans := service.NewScanTracker(trace, nil, logger, conf, app.store)
	keys := service.NewAPIKeyService(trace, logger, conf, app.apiKeys)
	auth := service.NewAuthService(trace, logger, conf, app.users, blacklist)
	userService := service.NewUserService(trace, conf, app.users)

	credential := middleware.NewCredential(trace)
	session := middleware.NewSession(logger, trace, identity)
	throttle := middleware.NewThrottle(logger, trace, nil, conf, redisRepo.NewThrottleRepository(trace, redisClient))

	app.engine = NewRouter(
		conf,
		middleware.NewTraceEntry(trace, nil, conf),
		middleware.NewRecovery(logger, trace, conf, logRepo),
		middleware.NewCors(trace, conf),
		middleware.NewLogger(logger, trace, conf, logRepo),
		middleware.NewResponse(logger, trace, conf, logRepo),
		NewQRCodeRouter(handler.NewQRCodeHandler(trace, qrCodes), handler.NewScanHandler(trace, scans), credential, session, throttle),
		NewAPIKeyRouter(handler.NewAPIKeyHandler(trace, keys), session, throttle),
		NewAuthRouter(handler.NewAuthHandler(trace, auth), session, throttle),
		NewAdminRouter(handler.NewAdminUserHandler(trace, userService), session),
		NewHealthRouter(handler.NewHealthHandler(conf, app.health)),
	)
	return app
}

type call struct {
	method string
	path   string
	body   any
	header map[string]string
}

func (a *testApp) do(t *testing.T, req call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	httpReq := httptest.NewRequest(req.method, req.path, reader)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, httpReq)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

// login 註冊並登入，回傳 token 與 user id
func (a *testApp) login(t *testing.T, username string) (string, string) {
	t.Helper()
	rec, _ := a.do(t, call{method: http.MethodPost, path: "/auth/register", body: gin.H{
		"username": username,
		"email":    username + "@example.test",
		"password": "correct-horse",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := a.do(t, call{method: http.MethodPost, path: "/auth/login", body: gin.H{
		"login":    username,
		"password": "correct-horse",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func apiKeyHeader(secret string) map[string]string {
	return map[string]string{"X-API-Key": secret}
}

// issueKey 透過 API 建立 key，回傳明文與 id
func (a *testApp) issueKey(t *testing.T, token string) (string, string) {
	t.Helper()
	rec, body := a.do(t, call{method: http.MethodPost, path: "/apikey/generate", body: gin.H{"name": "ci"}, header: bearer(token)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	key := body["apiKey"].(map[string]any)
	return key["key"].(string), key["id"].(string)
}

func usageOf(body map[string]any, scope string) map[string]any {
	return body["usage"].(map[string]any)[scope].(map[string]any)
}

func qrCodeOf(body map[string]any) map[string]any {
	return body["qrCode"].(map[string]any)
}

func objectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func TestGenerateThenCacheHit(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, _ := app.issueKey(t, token)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test", header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, false, qrCodeOf(body)["cached"])
	assert.Equal(t, float64(1), usageOf(body, "hourly")["used"])
	assert.Equal(t, float64(100), usageOf(body, "hourly")["limit"])
	assert.NotEmpty(t, qrCodeOf(body)["qrData"])
	assert.Equal(t, "1.2.3", rec.Header().Get("X-App-Version"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))

	rec, body = app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test", header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, qrCodeOf(body)["cached"])
	assert.Equal(t, float64(2), qrCodeOf(body)["accessCount"])
	assert.Equal(t, float64(1), usageOf(body, "hourly")["used"])
	assert.Equal(t, 1, app.store.Len())
}

func TestGenerateByBodyWithStyle(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, _ := app.issueKey(t, token)

	rec, body := app.do(t, call{method: http.MethodPost, path: "/qrcode/generate", header: apiKeyHeader(secret), body: gin.H{
		"url":  "https://styled.test",
		"name": "styled",
		"customization": gin.H{
			"size":            300,
			"foregroundColor": "#112233",
		},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	style := qrCodeOf(body)["customization"].(map[string]any)
	assert.Equal(t, float64(300), style["size"])
	assert.Equal(t, "styled", qrCodeOf(body)["name"])

	rec, body = app.do(t, call{method: http.MethodPost, path: "/qrcode/generate", header: apiKeyHeader(secret), body: gin.H{
		"url":           "https://styled.test",
		"customization": gin.H{"foregroundColor": "red"},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "foregroundColor must match #RRGGBB", body["error"])
}

func TestQuotaExhaustionReturns429(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, _ := app.issueKey(t, token)

	for i := 0; i < 100; i++ {
		rec, _ := app.do(t, call{method: http.MethodGet, path: fmt.Sprintf("/qrcode?url=https://q.test/%d", i), header: apiKeyHeader(secret)})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://q.test/extra", header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "hourly", body["scope"])
	assert.Equal(t, float64(100), body["used"])
	assert.Equal(t, float64(100), body["limit"])
	assert.NotEmpty(t, body["resetTime"])
	assert.NotEmpty(t, body["requestID"])
	assert.Equal(t, 100, app.store.Len())

	// 配額先於快取判斷，已存在的內容同樣被拒
	rec, body = app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://q.test/7", header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "hourly", body["scope"])
	assert.Equal(t, 100, app.store.Len())
}

func TestLongURLRejectedBeforeAnyIO(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, _ := app.issueKey(t, token)
	lookups := app.apiKeys.Calls("FindByID")

	long := "https://long.test/" + strings.Repeat("a", 2048)
	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode?url=" + long, header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "2048")
	assert.Equal(t, 0, app.store.TotalCalls())
	assert.Equal(t, 0, app.encoder.Calls())
	assert.Equal(t, lookups, app.apiKeys.Calls("FindByID"))
}

func TestMissingAPIKey(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "API key is required", body["error"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRevokedAndExpiredKeysAreForbidden(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")

	revoked, revokedID := app.issueKey(t, token)
	rec, _ := app.do(t, call{method: http.MethodPost, path: "/apikey/revoke/" + revokedID, header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test", header: apiKeyHeader(revoked)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	expired, expiredID := app.issueKey(t, token)
	stored, ok := app.apiKeys.Get(objectID(t, expiredID))
	require.True(t, ok)
	past := time.Now().Add(-time.Hour)
	stored.ExpiresAt = &past
	app.apiKeys.Put(stored)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test", header: apiKeyHeader(expired)})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	stored, _ = app.apiKeys.Get(objectID(t, expiredID))
	assert.Equal(t, core.StatusExpired, stored.Status)
	assert.Equal(t, 0, app.store.Len())
}

func TestScanRedirectsAndCounts(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")

	rec, body := app.do(t, call{method: http.MethodPost, path: "/qrcode/generate-jwt", header: bearer(token), body: gin.H{"url": "https://scan.test/landing"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "session", qrCodeOf(body)["generatedVia"])
	id := qrCodeOf(body)["id"].(string)

	for i := 0; i < 150; i++ {
		rec, _ = app.do(t, call{method: http.MethodGet, path: "/scan/" + id, header: map[string]string{"User-Agent": fmt.Sprintf("agent-%d", i)}})
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "https://scan.test/landing", rec.Header().Get("Location"))
	}

	stored, ok := app.store.Get(objectID(t, id))
	require.True(t, ok)
	assert.Equal(t, int64(150), stored.ScanCount)
	require.Len(t, stored.ScanHistory, core.ScanHistoryLimit)
	assert.Equal(t, "agent-50", stored.ScanHistory[0].UserAgent)
	assert.Equal(t, "agent-149", stored.ScanHistory[core.ScanHistoryLimit-1].UserAgent)

	rec, body = app.do(t, call{method: http.MethodGet, path: "/qrcodes/" + id, header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(150), qrCodeOf(body)["scanCount"])
	assert.Len(t, qrCodeOf(body)["scanHistory"], 10)
}

func TestScanUnknownArtifact(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/scan/" + primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "QR code not found", body["error"])
}

func TestOwnershipIsEnforced(t *testing.T) {
	app := newTestApp(t)
	amy, _ := app.login(t, "amy")
	bob, _ := app.login(t, "bob")

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode/jwt?url=https://owned.test", header: bearer(amy)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := qrCodeOf(body)["id"].(string)

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/qrcodes/" + id, header: bearer(bob)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = app.do(t, call{method: http.MethodGet, path: "/qrcodes/" + id, header: bearer(bob)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, app.store.Len())

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/qrcodes/" + id, header: bearer(amy)})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, app.store.Len())
}

func TestListAndAnalytics(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	for i := 0; i < 3; i++ {
		rec, _ := app.do(t, call{method: http.MethodPost, path: "/qrcode/generate-jwt", header: bearer(token), body: gin.H{"url": fmt.Sprintf("https://list.test/%d", i)}})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcodes?page=1&limit=2&sortBy=createdAt&sortOrder=desc", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := body["qrCodes"].([]any)
	assert.Len(t, items, 2)
	for _, item := range items {
		_, hasImage := item.(map[string]any)["qrData"]
		assert.False(t, hasImage)
	}
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(2), pagination["pages"])

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/qrcodes?sortOrder=sideways", header: bearer(token)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = app.do(t, call{method: http.MethodGet, path: "/analytics/qrcodes?days=7", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(3), body["totalQrCodes"])
	assert.Equal(t, float64(7), body["period"].(map[string]any)["days"])

	rec, body = app.do(t, call{method: http.MethodGet, path: "/qrcodes", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(10), body["pagination"].(map[string]any)["limit"])
}

func TestListAndAnalyticsRejectOutOfRangeParams(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")

	for _, path := range []string{
		"/qrcodes?limit=0",
		"/qrcodes?limit=101",
		"/qrcodes?page=0",
		"/analytics/qrcodes?days=0",
		"/analytics/qrcodes?days=366",
	} {
		rec, _ := app.do(t, call{method: http.MethodGet, path: path, header: bearer(token)})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")

	rec, body := app.do(t, call{method: http.MethodPost, path: "/qrcode/preview", header: bearer(token), body: gin.H{"url": "https://preview.test"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(body["qrData"].(string), "data:image/png;base64,"))
	assert.Equal(t, 0, app.store.Len())

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/qrcode/preview", body: gin.H{"url": "https://preview.test"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyLifecycle(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, id := app.issueKey(t, token)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/apikey", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)
	keys := body["apiKeys"].([]any)
	require.Len(t, keys, 1)
	assert.NotEqual(t, secret, keys[0].(map[string]any)["key"])

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/apikey/" + id, header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://a.test", header: apiKeyHeader(secret)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/apikey/generate", header: bearer(token), body: gin.H{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")

	rec, body := app.do(t, call{method: http.MethodGet, path: "/auth/profile", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amy", body["user"].(map[string]any)["username"])

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/auth/logout", header: bearer(token)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/auth/profile", header: bearer(token)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthThrottle(t *testing.T) {
	app := newTestApp(t)
	for i := 0; i < 5; i++ {
		rec, _ := app.do(t, call{method: http.MethodPost, path: "/auth/login", body: gin.H{"login": "nobody", "password": "wrong-pass"}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, body := app.do(t, call{method: http.MethodPost, path: "/auth/login", body: gin.H{"login": "nobody", "password": "wrong-pass"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, body["error"])
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	userToken, userID := app.login(t, "amy")
	adminToken, adminID := app.login(t, "root")
	_, err := app.users.UpdateRole(context.Background(), objectID(t, adminID), core.RoleAdmin)
	require.NoError(t, err)

	rec, _ := app.do(t, call{method: http.MethodGet, path: "/admin/users", header: bearer(userToken)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/admin/users?size=10", header: bearer(adminToken)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["total"])

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/admin/users/not-an-id", header: bearer(adminToken)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodPatch, path: "/admin/users/" + userID + "/status", header: bearer(adminToken), body: gin.H{"status": "blocked"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// 被封鎖的用戶既有 token 也失效
	rec, _ = app.do(t, call{method: http.MethodGet, path: "/auth/profile", header: bearer(userToken)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodPatch, path: "/admin/users/" + userID + "/role", header: bearer(adminToken), body: gin.H{"role": "superuser"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, call{method: http.MethodGet, path: "/health/liveness"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/health/readiness"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	app.health.SetReady(true)
	rec, body := app.do(t, call{method: http.MethodGet, path: "/health/readiness"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["dependencies"].(map[string]any)["redis"])

	rec, body = app.do(t, call{method: http.MethodGet, path: "/version"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", body["version"])

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/health-check"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body = app.do(t, call{method: http.MethodGet, path: "/no-such-route"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, body["requestID"])
}

func TestStoredArtifactsCarryCallerChannel(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.login(t, "amy")
	secret, keyID := app.issueKey(t, token)

	rec, body := app.do(t, call{method: http.MethodGet, path: "/qrcode?url=https://via.test", header: apiKeyHeader(secret)})
	require.Equal(t, http.StatusCreated, rec.Code)
	stored, ok := app.store.Get(objectID(t, qrCodeOf(body)["id"].(string)))
	require.True(t, ok)
	assert.Equal(t, core.ChannelAPIKey, stored.GeneratedVia)
	require.NotNil(t, stored.APIKeyID)
	assert.Equal(t, keyID, stored.APIKeyID.Hex())
	assert.Equal(t, []string{"https://via.test", "https://qr.test/scan/" + stored.ID.Hex()}, app.encoder.Contents())
}
