// Package sweep advances expired enrollments and boarding passes. Expiry is
// recorded lazily: reads treat past-expiry rows as expired immediately, and
// the sweep catches the status column up in the background so reporting and
// retention queries see the same truth.
package sweep

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veripass/veripass/pkg/metrics"
	"github.com/veripass/veripass/pkg/server/store"
)

// Result is the row counts of one sweep pass.
type Result struct {
	Enrollments int64
	Passes      int64
}

// Sweeper advances expired rows across both tables.
type Sweeper struct {
	enrollments store.EnrollmentsStore
	passes      store.PassesStore
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New creates a Sweeper. metrics may be nil.
func New(enrollments store.EnrollmentsStore, passes store.PassesStore, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		enrollments: enrollments,
		passes:      passes,
		metrics:     m,
		now:         time.Now,
	}
}

// WithClock overrides the sweeper's clock. Tests only.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep advances both tables once. The two updates are independent and run
// concurrently; a failure on one side does not stop the other, but is
// reported.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	cutoff := s.now().UTC()

	var result Result
	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		n, err := s.enrollments.ExpireEnrollments(cutoff)
		if err != nil {
			return err
		}
		result.Enrollments = n
		s.metrics.AddSweepExpired("enrollment", n)
		return nil
	})
	group.Go(func() error {
		n, err := s.passes.ExpirePasses(cutoff)
		if err != nil {
			return err
		}
		result.Passes = n
		s.metrics.AddSweepExpired("pass", n)
		return nil
	})

	err := group.Wait()
	return result, err
}

// Run sweeps at the given interval until the context is cancelled. Errors
// are delivered to onError and the loop keeps going; a transient database
// outage must not kill the sweep for the life of the process.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
