package service

import (
	"context"
	"time"
	"unicode/utf8"

	"qrious/config"
	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"
	"qrious/internal/dto"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	"go.uber.org/zap"
)

const maxScanFieldLength = 512

// ScanTracker 公開掃描入口；記錄為盡力而為，轉址才是主要結果
type ScanTracker struct {
	trace        *telemetry.Trace
	metric       *telemetry.Metric
	logger       *zap.Logger
	store        QRCodeStore
	storeTimeout time.Duration
	now          func() time.Time
}

func NewScanTracker(
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	logger *zap.Logger,
	conf *config.Configuration,
	store QRCodeStore,
) *ScanTracker {
	return &ScanTracker{
		trace:        trace,
		metric:       metric,
		logger:       logger,
		store:        store,
		storeTimeout: storeTimeout(conf),
		now:          time.Now,
	}
}

// TrackAndRedirect 回傳原始目標網址；找不到產物才回錯誤
func (t *ScanTracker) TrackAndRedirect(
	ctx context.Context,
	id string,
	request dto.ScanRequestMeta,
) (_ string, returnedError error) {
	ctx, span, end := t.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	meta := core.TraceScanMeta{QRCodeID: id, UserAgent: request.UserAgent, Referrer: request.Referrer}
	defer func() { t.trace.ApplyTraceAttributes(span, meta) }()

	qrCodeID, ok := objectIDOf(id)
	if !ok {
		return "", cErr.NotFound("QR code not found")
	}
	storeCtx, cancel := context.WithTimeout(ctx, t.storeTimeout)
	artifact, err := t.store.FindByID(storeCtx, qrCodeID)
	cancel()
	if err != nil {
		return "", storeErr(err, "QR code not found")
	}

	event := model.ScanEvent{
		Timestamp: t.now().UTC(),
		UserAgent: truncate(request.UserAgent, maxScanFieldLength),
		IPAddress: truncate(request.IPAddress, maxScanFieldLength),
		Referrer:  truncate(request.Referrer, maxScanFieldLength),
	}
	storeCtx, cancel = context.WithTimeout(ctx, t.storeTimeout)
	err = t.store.RecordScan(storeCtx, qrCodeID, event)
	cancel()
	if err != nil {
		t.metric.IncScan("untracked")
		t.logger.Warn("[Scan] record scan failed",
			zap.String("qrCodeId", id),
			zap.Error(err),
		)
		return artifact.URL, nil
	}
	meta.Tracked = true
	t.metric.IncScan("tracked")
	return artifact.URL, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// 退回到字元邊界，避免切出不合法的 UTF-8
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
