package application

import (
	"context"
	"time"
)

// Timing holds the fixed settle waits the workflow observes. The remote
// console changes state asynchronously after user actions and gives no
// completion signal, so each wait is a contract on how long to let it settle.
// These are a known source of flakiness on a slow console.
type Timing struct {
	NavAttempts      int
	NavRetryDelay    time.Duration
	LandingSettle    time.Duration
	PageSettle       time.Duration
	RestartSettle    time.Duration
	RenewPreRead     time.Duration
	RenewDialog      time.Duration
	ConfirmSettle    time.Duration
	BetweenResources time.Duration
	DismissSettle    time.Duration
	DirectiveSettle  time.Duration
	DiscoveryGrace   time.Duration
}

// DefaultTiming returns the waits used against a live console.
func DefaultTiming() Timing {
	return Timing{
		NavAttempts:      3,
		NavRetryDelay:    3 * time.Second,
		LandingSettle:    5 * time.Second,
		PageSettle:       3 * time.Second,
		RestartSettle:    3 * time.Second,
		RenewPreRead:     2 * time.Second,
		RenewDialog:      2 * time.Second,
		ConfirmSettle:    3 * time.Second,
		BetweenResources: 2 * time.Second,
		DismissSettle:    1 * time.Second,
		DirectiveSettle:  3 * time.Second,
		DiscoveryGrace:   5 * time.Second,
	}
}

// attempts returns the navigation attempt bound, at least one.
func (t Timing) attempts() int {
	if t.NavAttempts < 1 {
		return 1
	}
	return t.NavAttempts
}

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// settle waits d using sleep, falling back to SleepContext.
func settle(ctx context.Context, sleep Sleeper, d time.Duration) error {
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, d)
}
