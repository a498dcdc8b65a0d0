package payment

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway stops calling a provider that keeps failing and rejects
// calls with gobreaker.ErrOpenState until the cooldown has passed.
type BreakerGateway struct {
	Gateway
	cb *gobreaker.CircuitBreaker[*Session]
}

func NewBreakerGateway(inner Gateway, consecutiveFailures uint32, cooldown time.Duration) *BreakerGateway {
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
		IsSuccessful: countsAsHealthy,
	}
	return &BreakerGateway{
		Gateway: inner,
		cb:      gobreaker.NewCircuitBreaker[*Session](settings),
	}
}

// countsAsHealthy keeps caller mistakes and caller cancellations from
// tripping the breaker.
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, context.Canceled) {
		return true
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode >= 400 && perr.StatusCode < 500 && perr.StatusCode != 429
	}
	return false
}

func (b *BreakerGateway) OpenSession(ctx context.Context, req OpenSessionRequest) (*Session, error) {
	return b.cb.Execute(func() (*Session, error) {
		return b.Gateway.OpenSession(ctx, req)
	})
}

func (b *BreakerGateway) FetchSession(ctx context.Context, ref string) (*Session, error) {
	return b.cb.Execute(func() (*Session, error) {
		return b.Gateway.FetchSession(ctx, ref)
	})
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}

// IsUnavailable reports a call rejected by an open or half-open breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

var _ Gateway = (*BreakerGateway)(nil)
