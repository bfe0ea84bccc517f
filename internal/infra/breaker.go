package infra

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// GuardConfig tunes a Guard.
type GuardConfig struct {
	Name        string
	Timeout     time.Duration // per-call deadline
	MaxFailures uint32        // consecutive failures before the breaker opens
	OpenTimeout time.Duration // time spent open before a half-open trial call
	// Benign reports errors that are answers, not outages (e.g. not found).
	// They are returned unchanged and do not count against the breaker.
	Benign func(error) bool
}

func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:        name,
		Timeout:     5 * time.Second,
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// ErrUnavailable wraps every failure a Guard reports as an outage.
var ErrUnavailable = errors.New("persistence unavailable")

// UnavailableError carries the cause of an outage reported by a Guard.
type UnavailableError struct {
	Guard string
	Err   error
}

func (e *UnavailableError) Error() string {
	return e.Guard + ": " + ErrUnavailable.Error() + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() []error { return []error{ErrUnavailable, e.Err} }

// Guard runs persistence calls under a deadline and a gobreaker circuit
// breaker, so a dead store fails fast instead of hanging the request.
type Guard struct {
	cb      *gobreaker.CircuitBreaker
	name    string
	timeout time.Duration
	benign  func(error) bool
}

func NewGuard(cfg GuardConfig, m *Metrics) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	benign := cfg.Benign
	if benign == nil {
		benign = func(error) bool { return false }
	}

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || benign(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			m.BreakerState(name, to)
		},
	}
	m.BreakerState(cfg.Name, gobreaker.StateClosed)

	return &Guard{
		cb:      gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
		timeout: cfg.Timeout,
		benign:  benign,
	}
}

// Do runs fn with a derived deadline. Benign errors and a caller that went
// away (context.Canceled) come back as they are and do not count against the
// breaker; every other failure, including an open breaker or the derived
// deadline, comes back as *UnavailableError.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return nil, fn(cctx)
	})
	if err == nil {
		return nil
	}
	if g.benign(err) || errors.Is(err, context.Canceled) {
		return err
	}
	return &UnavailableError{Guard: g.name, Err: err}
}

func (g *Guard) State() gobreaker.State { return g.cb.State() }
