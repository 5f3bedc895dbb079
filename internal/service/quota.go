package service

import (
	"context"
	"errors"
	"time"

	"qrious/config"
	"qrious/internal/core"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type QuotaLimits struct {
	Hourly  int64
	Daily   int64
	Monthly int64
}

func (l QuotaLimits) Limit(scope core.Scope) int64 {
	switch scope {
	case core.ScopeHourly:
		return l.Hourly
	case core.ScopeDaily:
		return l.Daily
	case core.ScopeMonthly:
		return l.Monthly
	}
	return 0
}

var (
	defaultAPIKeyLimits  = QuotaLimits{Hourly: 100, Daily: 1000, Monthly: 10000}
	defaultSessionLimits = QuotaLimits{Hourly: 200, Daily: 2000, Monthly: 20000}
)

// QuotaPolicy 建構後不可變，各通道一組上限
type QuotaPolicy struct {
	apiKey  QuotaLimits
	session QuotaLimits
}

func NewQuotaPolicy(conf *config.Configuration) QuotaPolicy {
	return QuotaPolicy{
		apiKey:  mergeLimits(conf.Quota.APIKey, defaultAPIKeyLimits),
		session: mergeLimits(conf.Quota.Session, defaultSessionLimits),
	}
}

func DefaultQuotaPolicy() QuotaPolicy {
	return QuotaPolicy{apiKey: defaultAPIKeyLimits, session: defaultSessionLimits}
}

func (p QuotaPolicy) Limits(channel core.Channel) QuotaLimits {
	if channel == core.ChannelSession {
		return p.session
	}
	return p.apiKey
}

func mergeLimits(conf config.QuotaLimits, fallback QuotaLimits) QuotaLimits {
	limits := fallback
	if conf.Hourly > 0 {
		limits.Hourly = conf.Hourly
	}
	if conf.Daily > 0 {
		limits.Daily = conf.Daily
	}
	if conf.Monthly > 0 {
		limits.Monthly = conf.Monthly
	}
	return limits
}

// UsageCounter 配額只需要的唯讀查詢
type UsageCounter interface {
	CountCreatedSince(ctx context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (int64, error)
	OldestCreatedSince(ctx context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (*time.Time, error)
}

// QuotaLedger 以產物建立時間推導滾動視窗用量，沒有獨立計數器
type QuotaLedger struct {
	trace        *telemetry.Trace
	metric       *telemetry.Metric
	logger       *zap.Logger
	policy       QuotaPolicy
	counter      UsageCounter
	storeTimeout time.Duration
	now          func() time.Time
}

func NewQuotaLedger(
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	logger *zap.Logger,
	conf *config.Configuration,
	policy QuotaPolicy,
	counter QRCodeStore,
) *QuotaLedger {
	return &QuotaLedger{
		trace:        trace,
		metric:       metric,
		logger:       logger,
		policy:       policy,
		counter:      counter,
		storeTimeout: storeTimeout(conf),
		now:          time.Now,
	}
}

// Admit 依 hourly → daily → monthly 檢查，已用量等於上限即拒絕；拒絕時沒有副作用
func (l *QuotaLedger) Admit(ctx context.Context, caller core.Caller) (_ core.Usage, returnedError error) {
	ctx, span, end := l.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if caller == nil {
		return core.Usage{}, cErr.Unauthorized("missing caller")
	}
	userID, ok := objectIDOf(caller.SubjectID())
	if !ok {
		return core.Usage{}, cErr.Unauthorized("invalid caller")
	}

	now := l.now().UTC()
	limits := l.policy.Limits(caller.Channel())
	meta := core.TraceQuotaMeta{Channel: string(caller.Channel()), Owner: caller.SubjectID()}
	defer func() { l.trace.ApplyTraceAttributes(span, meta) }()

	var usage core.Usage
	for _, scope := range core.Scopes {
		since := now.Add(-scope.Window())
		used, err := l.count(ctx, userID, caller.Channel(), since)
		if err != nil {
			return core.Usage{}, storeErr(err, "usage not found")
		}
		limit := limits.Limit(scope)
		*usage.Window(scope) = core.UsageWindow{Used: used, Limit: limit}
		meta.HourlyUsed, meta.DailyUsed, meta.MonthlyUsed = usage.Hourly.Used, usage.Daily.Used, usage.Monthly.Used

		if used >= limit {
			resetTime := l.resetTime(ctx, userID, caller.Channel(), scope, since, now)
			meta.DeniedScope = string(scope)
			meta.ResetTimeUTC = resetTime.Format(time.RFC3339)
			l.metric.IncQuotaDenied(caller.Channel(), scope)
			l.logger.Info("[Quota] generation denied",
				zap.String("owner", caller.SubjectID()),
				zap.String("channel", string(caller.Channel())),
				zap.String("scope", string(scope)),
				zap.Int64("used", used),
				zap.Int64("limit", limit),
			)
			return usage, cErr.QuotaExceeded(string(scope), used, limit, resetTime)
		}
	}
	meta.Admitted = true
	return usage, nil
}

func (l *QuotaLedger) count(ctx context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()
	return l.counter.CountCreatedSince(ctx, userID, channel, since)
}

// resetTime 視窗內最舊一筆滑出視窗的時間
func (l *QuotaLedger) resetTime(
	ctx context.Context,
	userID primitive.ObjectID,
	channel core.Channel,
	scope core.Scope,
	since time.Time,
	now time.Time,
) time.Time {
	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	oldest, err := l.counter.OldestCreatedSince(ctx, userID, channel, since)
	if err != nil || oldest == nil {
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			l.logger.Warn("[Quota] oldest artifact lookup failed", zap.Error(err))
		}
		return now.Add(scope.Window())
	}
	return oldest.UTC().Add(scope.Window())
}
