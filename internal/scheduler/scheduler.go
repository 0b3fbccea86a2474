// Package scheduler runs the periodic presence refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"

	appLog "homeplan/internal/log"
	"homeplan/internal/presence"
)

// Refresher is satisfied by *presence.Service.
type Refresher interface {
	Refresh(ctx context.Context, weeks int) (*presence.Table, error)
}

// Options tune retries around one scheduled refresh.
type Options struct {
	Spec        string
	Weeks       int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxInterval time.Duration
}

func (o *Options) defaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 5 * time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = time.Minute
	}
}

// Scheduler triggers Refresh on a cron schedule. A single refresh is one
// fetch; retries live here, outside the builder.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	opts      Options

	// runCtx bounds scheduled runs; it is cancelled when Start's ctx is done.
	runCtx context.Context
	cancel context.CancelFunc
}

// New parses opts.Spec (standard five-field cron, or descriptors such as
// "@hourly").
func New(refresher Refresher, opts Options) (*Scheduler, error) {
	opts.defaults()
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, refresher: refresher, opts: opts, runCtx: runCtx, cancel: cancel}
	if _, err := c.AddFunc(opts.Spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("refresh schedule %q: %w", opts.Spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	_ = s.RunOnce(s.runCtx)
}

// Start runs the schedule until ctx is done. A refresh still running or
// waiting between retries at that point is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("refresh scheduler started", "spec", s.opts.Spec, "weeks", s.opts.Weeks)
	go func() {
		<-ctx.Done()
		s.cancel()
		stopped := s.cron.Stop()
		<-stopped.Done()
		appLog.Info("refresh scheduler stopped")
	}()
}

// RunOnce refreshes with exponential backoff. The previous snapshot stays
// in place when every attempt fails.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = s.opts.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = s.opts.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.opts.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		t, err := s.refresher.Refresh(ctx, s.opts.Weeks)
		if err != nil {
			// Only calendar outages are worth waiting out.
			if !errors.Is(err, presence.ErrUnavailable) {
				return backoff.Permanent(err)
			}
			appLog.Error("scheduled refresh attempt failed", err, "attempt", attempt)
			return err
		}
		appLog.Info("scheduled refresh completed", "attempt", attempt, "matched", len(t.MatchedEvents))
		return nil
	}, policy)
	if err != nil {
		appLog.Error("scheduled refresh gave up", err, "attempts", attempt)
	}
	return err
}
