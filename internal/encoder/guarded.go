package encoder

import (
	"context"
	"errors"
	"time"

	"qrious/config"
	"qrious/internal/core"
	cErr "qrious/internal/pkg/error"
	"qrious/internal/telemetry"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const breakerName = "qrcode-encoder"

var errEncodeTimeout = errors.New("encoder timed out")

// Guarded 在 Encoder 外加上逾時與熔斷，錯誤轉成應用錯誤
type Guarded struct {
	inner   Encoder
	breaker *gobreaker.CircuitBreaker[[]byte]
	timeout time.Duration
	logger  *zap.Logger
	trace   *telemetry.Trace
}

func NewGuarded(
	conf *config.Configuration,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	inner *QREncoder,
) *Guarded {
	return newGuarded(conf.QRCode, logger, trace, metric, inner)
}

func newGuarded(
	conf config.QRCode,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	inner Encoder,
) *Guarded {
	timeout := time.Duration(conf.EncodeTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	b := conf.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.IntervalSec <= 0 {
		b.IntervalSec = 60
	}
	if b.TimeoutSec <= 0 {
		b.TimeoutSec = 30
	}
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
	if b.FailureRatio <= 0 {
		b.FailureRatio = 0.6
	}

	metric.SetBreakerState(breakerName, stateToFloat(gobreaker.StateClosed))
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: b.MaxRequests,
		Interval:    time.Duration(b.IntervalSec) * time.Second,
		Timeout:     time.Duration(b.TimeoutSec) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[Encoder] circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metric.SetBreakerState(name, stateToFloat(to))
		},
		// 內容過長是用戶端錯誤，不計入熔斷
		IsExcluded: func(err error) bool {
			return errors.Is(err, ErrUnencodable)
		},
	})

	return &Guarded{
		inner:   inner,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
		trace:   trace,
	}
}

func (g *Guarded) Encode(ctx context.Context, content string, style core.Style) (_ []byte, returnedError error) {
	ctx, span, end := g.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	g.trace.ApplyTraceAttributes(span, core.TraceGenerateMeta{
		URLLen: len(content),
		Size:   style.Size,
		Level:  string(style.ErrorCorrectionLevel),
	})

	image, err := g.breaker.Execute(func() ([]byte, error) {
		return g.encodeWithTimeout(ctx, content, style)
	})
	switch {
	case err == nil:
		return image, nil
	case errors.Is(err, ErrUnencodable):
		return nil, cErr.UnencodableContent("url is too long for the selected error correction level")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, cErr.ServiceUnavailable("encoder temporarily unavailable")
	case errors.Is(err, errEncodeTimeout), errors.Is(err, context.DeadlineExceeded):
		return nil, cErr.ServiceUnavailable("encoder timed out")
	default:
		g.logger.Error("[Encoder] encode failed", zap.Error(err))
		return nil, cErr.EncoderError("failed to render qr code")
	}
}

// encodeWithTimeout 逾時後不等 inner 結束，結果由帶緩衝的 channel 丟棄
func (g *Guarded) encodeWithTimeout(ctx context.Context, content string, style core.Style) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		image []byte
		err   error
	}
	done := make(chan result, 1)
	go func() {
		image, err := g.inner.Encode(ctx, content, style)
		done <- result{image: image, err: err}
	}()

	select {
	case r := <-done:
		return r.image, r.err
	case <-ctx.Done():
		return nil, errEncodeTimeout
	}
}

// State 供健康檢查使用
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
