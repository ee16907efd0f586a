package access

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the breaker around the dynamic permission procedure.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
	OnStateChange    func(from, to string)
}

// newPermissionBreaker trips after consecutive failures so a tenant without
// the dynamic procedure stops paying for a failing round trip on every sign-in.
func newPermissionBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[[]string] {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	return gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:        "get_user_permissions",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(from.String(), to.String())
			}
		},
	})
}
