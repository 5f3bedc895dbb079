package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/dto"
	"qrious/internal/encoder"
	cErr "qrious/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func requireAppErr(t *testing.T, err error, httpCode int) *cErr.Error {
	t.Helper()
	var appErr *cErr.Error
	require.True(t, errors.As(err, &appErr), "expected *cErr.Error, got %v", err)
	assert.Equal(t, httpCode, appErr.HttpCode())
	return appErr
}

func TestGenerate_CreatesThenServesFromCache(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, key := h.issueKey(t, user.ID)
	ctx := context.Background()

	first, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "QR code generated successfully", first.Message)
	require.NotNil(t, first.QRCode.Cached)
	assert.False(t, *first.QRCode.Cached)
	assert.Equal(t, int64(1), first.Usage.Hourly.Used)
	assert.Equal(t, int64(100), first.Usage.Hourly.Limit)
	assert.Equal(t, int64(1), first.QRCode.AccessCount)
	assert.Equal(t, "a.test", first.QRCode.Name)
	assert.Equal(t, core.ChannelAPIKey, first.QRCode.GeneratedVia)

	// 圖片編的是 scan 轉址網址，不是原始內容
	assert.Equal(t, []string{"https://a.test", "https://qr.test/scan/" + first.QRCode.ID}, h.encoder.Contents())
	id, err := primitive.ObjectIDFromHex(first.QRCode.ID)
	require.NoError(t, err)
	stored, ok := h.store.Get(id)
	require.True(t, ok)
	assert.Equal(t, core.ArtifactFinalized, stored.State)
	assert.Equal(t, first.QRCode.QRData, stored.QRCodeImage)
	assert.True(t, strings.HasPrefix(stored.QRCodeImage, "data:image/png;base64,"))
	require.NotNil(t, stored.APIKeyID)
	assert.Equal(t, key.ID, *stored.APIKeyID)

	second, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, "QR code retrieved from cache", second.Message)
	require.NotNil(t, second.QRCode.Cached)
	assert.True(t, *second.QRCode.Cached)
	assert.Equal(t, first.QRCode.ID, second.QRCode.ID)
	assert.Equal(t, int64(2), second.QRCode.AccessCount)
	assert.Equal(t, int64(1), second.Usage.Hourly.Used)
	assert.Equal(t, 2, h.encoder.Calls())

	stored, _ = h.store.Get(id)
	assert.Equal(t, int64(2), stored.AccessCount)
	assert.Equal(t, []string{"created", "cached"}, h.genLog.Results())
}

func TestGenerate_HourlyQuotaExceeded(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{
			URL: "https://a.test/" + primitive.NewObjectID().Hex(),
		})
		require.NoError(t, err)
	}

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test/one-more"})

	appErr := requireAppErr(t, err, http.StatusTooManyRequests)
	assert.Equal(t, "hourly", appErr.Details()["scope"])
	assert.Equal(t, int64(100), appErr.Details()["used"])
	assert.Equal(t, int64(100), appErr.Details()["limit"])
	assert.Equal(t, 100, h.store.Len())
	results := h.genLog.Results()
	assert.Equal(t, "denied", results[len(results)-1])
}

func TestGenerate_CacheHitDoesNotConsumeQuota(t *testing.T) {
	h := newHarness(t, func(conf *config.Configuration) {
		conf.Quota.APIKey = config.QuotaLimits{Hourly: 2}
	})
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, int64(1), res.Usage.Hourly.Used)
	}
	assert.Equal(t, 1, h.store.Len())
}

func TestGenerate_RejectsLongURLWithoutIO(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	long := "https://a.test/" + strings.Repeat("x", core.MaxContentLength)

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: long})

	appErr := requireAppErr(t, err, http.StatusBadRequest)
	assert.Equal(t, cErr.INVALID_CONTENT, appErr.ErrorCode())
	assert.Zero(t, h.store.TotalCalls())
	assert.Zero(t, h.encoder.Calls())
	assert.Zero(t, h.apiKeys.Calls("FindByID"))
}

func TestGenerate_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name string
		req  *dto.GenerateQRCodeDto
		code int
	}{
		{"missing url", &dto.GenerateQRCodeDto{URL: "   "}, cErr.INVALID_CONTENT},
		{"relative url", &dto.GenerateQRCodeDto{URL: "/just/a/path"}, cErr.INVALID_CONTENT},
		{"ftp scheme", &dto.GenerateQRCodeDto{URL: "ftp://a.test/file"}, cErr.INVALID_CONTENT},
		{"long name", &dto.GenerateQRCodeDto{URL: "https://a.test", Name: strings.Repeat("n", 101)}, cErr.INVALID_CONTENT},
		{"size too small", &dto.GenerateQRCodeDto{URL: "https://a.test", Customization: &dto.StyleDto{Size: intPtr(99)}}, cErr.INVALID_STYLE},
		{"margin too large", &dto.GenerateQRCodeDto{URL: "https://a.test", Customization: &dto.StyleDto{Margin: intPtr(21)}}, cErr.INVALID_STYLE},
		{"bad color", &dto.GenerateQRCodeDto{URL: "https://a.test", Customization: &dto.StyleDto{ForegroundColor: strPtr("red")}}, cErr.INVALID_STYLE},
		{"bad level", &dto.GenerateQRCodeDto{URL: "https://a.test", Customization: &dto.StyleDto{ErrorCorrectionLevel: strPtr("X")}}, cErr.INVALID_STYLE},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential("sk_whatever"), tc.req)
			appErr := requireAppErr(t, err, http.StatusBadRequest)
			assert.Equal(t, tc.code, appErr.ErrorCode())
		})
	}
	assert.Zero(t, h.store.TotalCalls())
}

func TestNormalizeStyle(t *testing.T) {
	style, err := NormalizeStyle(nil)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultStyle(), style)

	style, err = NormalizeStyle(&dto.StyleDto{
		Size:                 intPtr(500),
		ForegroundColor:      strPtr("#ff00aa"),
		ErrorCorrectionLevel: strPtr("h"),
	})
	require.NoError(t, err)
	assert.Equal(t, 500, style.Size)
	assert.Equal(t, "#FF00AA", style.ForegroundColor)
	assert.Equal(t, "#FFFFFF", style.BackgroundColor)
	assert.Equal(t, core.ErrorCorrectionH, style.ErrorCorrectionLevel)
	assert.Equal(t, 4, style.Margin)
}

func TestGenerate_StyleIsPartOfCacheKey(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	res, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{
		URL:           "https://a.test",
		Customization: &dto.StyleDto{Size: intPtr(600)},
	})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, h.store.Len())
}

func TestGenerate_IgnoreStyleServesAnyStyle(t *testing.T) {
	h := newHarness(t, func(conf *config.Configuration) {
		conf.QRCode.CacheIgnoreStyle = true
	})
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	res, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{
		URL:           "https://a.test",
		Customization: &dto.StyleDto{Size: intPtr(600)},
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 1, h.store.Len())
}

func TestGenerate_CacheIsPerChannel(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)

	token, err := signToken(user, h.conf.Auth.JwtSecret, time.Hour, h.clock.Now())
	require.NoError(t, err)
	res, err := h.qrCodes.Generate(ctx, core.Credential{Channel: core.ChannelSession, Secret: token}, &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, core.ChannelSession, res.QRCode.GeneratedVia)
	assert.Equal(t, int64(200), res.Usage.Hourly.Limit)
}

func TestGenerate_FinalizeFailureDiscardsPending(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.store.FailFinalize = func() error { return errors.New("write conflict") }

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	requireAppErr(t, err, http.StatusInternalServerError)
	assert.Equal(t, 1, h.store.Calls("DeleteByID"))
	assert.Zero(t, h.store.Len())
}

func TestGenerate_ScanURLEncodeFailureDiscardsPending(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.encoder.Fail = func(call int, _ string) error {
		if call == 2 {
			return cErr.ServiceUnavailable("encoder circuit open")
		}
		return nil
	}

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	requireAppErr(t, err, http.StatusServiceUnavailable)
	assert.Zero(t, h.store.Len())
}

func TestGenerate_UnencodableContentWritesNothing(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.encoder.Fail = func(int, string) error {
		return cErr.UnencodableContent(encoder.ErrUnencodable.Error())
	}

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	requireAppErr(t, err, http.StatusBadRequest)
	assert.Zero(t, h.store.Calls("Create"))
}

func TestGenerate_RevokedKeyIsForbidden(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID, func(k *model.APIKey) { k.Status = core.StatusRevoked })

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	requireAppErr(t, err, http.StatusForbidden)
	assert.Zero(t, h.store.TotalCalls())
}

func TestGenerate_CacheLookupRetriesOnce(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.store.FailFindLatest = func(attempt int) error {
		if attempt == 1 {
			return errors.New("socket closed")
		}
		return nil
	}

	res, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, h.store.Calls("FindLatest"))
}

func TestGenerate_CacheLookupGivesUp(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	h.store.FailFindLatest = func(int) error { return errors.New("socket closed") }

	_, err := h.qrCodes.Generate(context.Background(), apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	requireAppErr(t, err, http.StatusInternalServerError)
	assert.Equal(t, 2, h.store.Calls("FindLatest"))
	assert.Zero(t, h.store.Calls("Create"))
}

func TestGenerate_RecordHitFailureStillServes(t *testing.T) {
	h := newHarness(t)
	user := h.addUser("alice")
	secret, _ := h.issueKey(t, user.ID)
	ctx := context.Background()

	_, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})
	require.NoError(t, err)
	h.store.FailRecordAccess = func() error { return errors.New("timeout") }

	res, err := h.qrCodes.Generate(ctx, apiKeyCredential(secret), &dto.GenerateQRCodeDto{URL: "https://a.test"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.QRCode.AccessCount)
}

func TestPreview_DoesNotTouchStore(t *testing.T) {
	h := newHarness(t)

	res, err := h.qrCodes.Preview(context.Background(), &dto.PreviewQRCodeDto{
		URL:           "https://a.test",
		Customization: &dto.StyleDto{BackgroundColor: strPtr("#00ff00")},
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.QRData, "data:image/png;base64,"))
	assert.Equal(t, "#00FF00", res.Customization.BackgroundColor)
	assert.Equal(t, []string{"https://a.test"}, h.encoder.Contents())
	assert.Zero(t, h.store.TotalCalls())
}

func TestQRCodeService_ListGetDelete(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")
	bob := h.addUser("bob")
	ctx := context.Background()
	base := h.clock.Now()
	for i, name := range []string{"c", "a", "b"} {
		h.store.Put(&model.QRCode{
			Name:         name,
			URL:          "https://a.test/" + name,
			UserID:       alice.ID,
			GeneratedVia: core.ChannelSession,
			AccessCount:  int64(i + 1),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	aliceCaller := &core.SessionCaller{UserID: alice.ID.Hex()}
	bobCaller := &core.SessionCaller{UserID: bob.ID.Hex()}

	list, err := h.qrCodes.List(ctx, aliceCaller, &dto.QRCodeListQueryDto{Limit: int64Ptr(2), SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, list.QRCodes, 2)
	assert.Equal(t, "a", list.QRCodes[0].Name)
	assert.Equal(t, "b", list.QRCodes[1].Name)
	assert.Empty(t, list.QRCodes[0].QRData)
	assert.Equal(t, int64(3), list.Pagination.Total)
	assert.Equal(t, int64(2), list.Pagination.Pages)

	_, err = h.qrCodes.List(ctx, aliceCaller, &dto.QRCodeListQueryDto{SortBy: "password"})
	requireAppErr(t, err, http.StatusBadRequest)

	_, err = h.qrCodes.List(ctx, aliceCaller, &dto.QRCodeListQueryDto{Limit: int64Ptr(0)})
	requireAppErr(t, err, http.StatusBadRequest)
	_, err = h.qrCodes.List(ctx, aliceCaller, &dto.QRCodeListQueryDto{Page: int64Ptr(0)})
	requireAppErr(t, err, http.StatusBadRequest)

	others, err := h.qrCodes.List(ctx, bobCaller, &dto.QRCodeListQueryDto{})
	require.NoError(t, err)
	assert.Empty(t, others.QRCodes)

	target := list.QRCodes[0]
	detail, err := h.qrCodes.Get(ctx, aliceCaller, target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.AccessCount+1, detail.QRCode.AccessCount)

	_, err = h.qrCodes.Get(ctx, bobCaller, target.ID)
	requireAppErr(t, err, http.StatusNotFound)

	_, err = h.qrCodes.Delete(ctx, bobCaller, target.ID)
	requireAppErr(t, err, http.StatusNotFound)
	assert.Equal(t, 3, h.store.Len())

	_, err = h.qrCodes.Delete(ctx, aliceCaller, "not-an-id")
	requireAppErr(t, err, http.StatusNotFound)

	msg, err := h.qrCodes.Delete(ctx, aliceCaller, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "QR code deleted successfully", msg.Message)
	assert.Equal(t, 2, h.store.Len())
}

func TestQRCodeService_Analytics(t *testing.T) {
	h := newHarness(t)
	alice := h.addUser("alice")
	now := h.clock.Now()
	h.store.Put(&model.QRCode{URL: "https://a.test/1", UserID: alice.ID, GeneratedVia: core.ChannelAPIKey, AccessCount: 5, ScanCount: 2, CreatedAt: now.Add(-40 * 24 * time.Hour)})
	h.store.Put(&model.QRCode{URL: "https://a.test/2", UserID: alice.ID, GeneratedVia: core.ChannelSession, AccessCount: 1, ScanCount: 1, CreatedAt: now.Add(-time.Hour)})
	h.store.Put(&model.QRCode{URL: "https://a.test/3", UserID: alice.ID, GeneratedVia: core.ChannelSession, AccessCount: 3, CreatedAt: now.Add(-2 * time.Hour)})
	caller := &core.SessionCaller{UserID: alice.ID.Hex()}

	res, err := h.qrCodes.Analytics(context.Background(), caller, &dto.AnalyticsQueryDto{})
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Period.Days)
	assert.Equal(t, int64(3), res.TotalQRCodes)
	assert.Equal(t, int64(9), res.TotalAccesses)
	assert.Equal(t, int64(3), res.TotalScans)
	assert.Equal(t, int64(2), res.RecentQRCodes)
	require.Len(t, res.GenerationMethods, 2)
	assert.Equal(t, "session", res.GenerationMethods[0].Method)
	assert.Equal(t, int64(5), res.TopQRCodes[0].AccessCount)

	_, err = h.qrCodes.Analytics(context.Background(), caller, &dto.AnalyticsQueryDto{Days: int64Ptr(400)})
	requireAppErr(t, err, http.StatusBadRequest)
	_, err = h.qrCodes.Analytics(context.Background(), caller, &dto.AnalyticsQueryDto{Days: int64Ptr(0)})
	requireAppErr(t, err, http.StatusBadRequest)
}
