// Package sweeper reconciles appointments whose time passed without a
// completion: confirmed appointments older than the grace period are
// advanced to COMPLETED through the lifecycle engine.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"petwiz/internal/domain"
	"petwiz/internal/lock"
	"petwiz/internal/service/scheduling"
)

type Completer interface {
	Complete(ctx context.Context, id uuid.UUID, outcome string) (domain.Appointment, error)
}

type OverdueFinder interface {
	FindOverdueConfirmed(ctx context.Context, before time.Time) ([]domain.Appointment, error)
}

// Outcome recorded on appointments the sweeper completes.
const Outcome = "Automatically completed after visit time"

const (
	DefaultInterval = 5 * time.Minute
	DefaultGrace    = 2 * time.Hour
)

type Options struct {
	Interval time.Duration
	Grace    time.Duration
	// Lease, when set, limits each pass to one replica.
	Lease lock.Lease
	Log   *slog.Logger
}

type Sweeper struct {
	finder   OverdueFinder
	engine   Completer
	interval time.Duration
	grace    time.Duration
	lease    lock.Lease
	log      *slog.Logger

	now func() time.Time
}

func New(finder OverdueFinder, engine Completer, opts Options) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		finder:   finder,
		engine:   engine,
		interval: opts.Interval,
		grace:    opts.Grace,
		lease:    opts.Lease,
		log:      log.With(slog.String("component", "sweeper")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// Failures are logged, never surfaced to callers.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("grace", s.grace),
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if s.lease != nil {
		held, err := s.lease.Acquire(ctx)
		if err != nil {
			s.log.Warn("sweep lease acquire failed", slog.Any("err", err))
			return
		}
		if !held {
			s.log.Debug("sweep skipped; lease held elsewhere")
			return
		}
		defer s.lease.Release(ctx)
	}

	start := time.Now()
	completed, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error("sweep failed", slog.Any("err", err))
		return
	}
	if completed > 0 {
		s.log.Info("sweep complete",
			slog.Int("completed", completed),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// SweepOnce completes every confirmed appointment whose scheduled time
// is older than now minus the grace period. One appointment's failure
// does not abort the rest, and a record already moved out of CONFIRMED
// by a racing caller is skipped, so repeat runs are no-ops.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	overdue, err := s.finder.FindOverdueConfirmed(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, appt := range overdue {
		if _, err := s.engine.Complete(ctx, appt.ID, Outcome); err != nil {
			var invalid *scheduling.InvalidTransitionError
			if errors.As(err, &invalid) {
				// Someone else advanced it between query and complete.
				continue
			}
			s.log.Warn("auto-complete failed",
				slog.Any("err", err),
				slog.String("appointment_id", appt.ID.String()),
			)
			continue
		}
		completed++
	}
	return completed, nil
}
