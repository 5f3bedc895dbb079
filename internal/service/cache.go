package service

import (
	"context"
	"errors"
	"time"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultLookupAttempts = 2

// ArtifactCache 以 (url, owner, channel[, style]) 找最新的既有產物。
// 不保證唯一：並發的 miss 可能各自建立一筆。
type ArtifactCache struct {
	trace        *telemetry.Trace
	logger       *zap.Logger
	store        QRCodeStore
	attempts     int
	ignoreStyle  bool
	storeTimeout time.Duration
}

func NewArtifactCache(
	trace *telemetry.Trace,
	logger *zap.Logger,
	conf *config.Configuration,
	store QRCodeStore,
) *ArtifactCache {
	attempts := conf.QRCode.LookupAttempts
	if attempts <= 0 {
		attempts = defaultLookupAttempts
	}
	return &ArtifactCache{
		trace:        trace,
		logger:       logger,
		store:        store,
		attempts:     attempts,
		ignoreStyle:  conf.QRCode.CacheIgnoreStyle,
		storeTimeout: storeTimeout(conf),
	}
}

// Lookup miss 時回傳 nil, nil；只有讀取會重試
func (c *ArtifactCache) Lookup(
	ctx context.Context,
	content string,
	caller core.Caller,
	style core.Style,
) (_ *model.QRCode, returnedError error) {
	ctx, span, end := c.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return nil, nil
	}
	lookup := model.QRCodeLookup{
		URL:     content,
		UserID:  userID,
		Channel: caller.Channel(),
	}
	if !c.ignoreStyle {
		lookup.StyleKey = style.Key()
	}
	meta := core.TraceCacheMeta{
		Owner:    caller.SubjectID(),
		Channel:  string(caller.Channel()),
		StyleKey: lookup.StyleKey,
	}
	defer func() { c.trace.ApplyTraceAttributes(span, meta) }()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		meta.Attempts = attempt
		found, err := c.findLatest(ctx, lookup)
		if err == nil {
			meta.Hit = true
			meta.QRCodeID = found.ID.Hex()
			return found, nil
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		c.logger.Warn("[Cache] lookup failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil, storeErr(lastErr, "artifact not found")
}

func (c *ArtifactCache) findLatest(ctx context.Context, lookup model.QRCodeLookup) (*model.QRCode, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	return c.store.FindLatest(ctx, lookup)
}

// RecordHit 同步寫入 accessCount；寫入失敗只記 log，回應仍使用遞增後的數值
func (c *ArtifactCache) RecordHit(ctx context.Context, artifact *model.QRCode, now time.Time) {
	ctx, _, end := c.trace.WithSpan(ctx)
	defer end(nil)

	storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	if err := c.store.RecordAccess(storeCtx, artifact.ID, now); err != nil {
		c.logger.Warn("[Cache] record hit failed",
			zap.String("qrCodeId", artifact.ID.Hex()),
			zap.Error(err),
		)
	}
	accessedAt := now.UTC()
	artifact.AccessCount++
	artifact.LastAccessed = &accessedAt
}
