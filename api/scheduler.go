/*
scheduler.go - Background rollover scheduler

PURPOSE:
  Periodically pushes overdue incomplete jobs forward to the current
  local date, so the timetable stays current even when nobody has opened
  today's view yet.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each check runs the rollover inside one store transaction
  - The rollover is idempotent, so overlapping with the on-read rollover
    in handlers.go is harmless

USAGE:
  scheduler := NewRolloverScheduler(store, clock, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/rollover.go: The rollover operation itself
  - handlers.go: rolloverIfToday (on-read rollover)
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/store/sqlite"
)

// RolloverScheduler pushes overdue jobs forward on a timer.
type RolloverScheduler struct {
	Store         *sqlite.Store
	Clock         *engine.Clock
	Logger        *zap.Logger
	CheckInterval time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a scheduler with a one-hour check interval.
func NewRolloverScheduler(store *sqlite.Store, clock *engine.Clock, logger *zap.Logger) *RolloverScheduler {
	return &RolloverScheduler{
		Store:         store,
		Clock:         clock,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		stop:          make(chan struct{}),
	}
}

// Start begins the background checks. The first check runs immediately.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.Logger.Info("rollover scheduler started",
		zap.Duration("interval", rs.CheckInterval))
}

// Stop halts the scheduler and waits for an in-flight check to finish.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Logger.Info("rollover scheduler stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.check()

	for {
		select {
		case <-rs.ticker.C:
			rs.check()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) check() {
	ctx := context.Background()

	var moved int
	err := rs.Store.WithTx(ctx, func(s engine.Store) error {
		n, err := engine.NewRollover(s, rs.Clock).PushUncompletedJobsForward(ctx)
		if err != nil {
			return err
		}
		moved = n
		return nil
	})
	if err != nil {
		rs.Logger.Error("scheduled rollover failed", zap.Error(err))
		return
	}
	if moved > 0 {
		rs.Logger.Info("scheduled rollover moved jobs",
			zap.Int("count", moved),
			zap.String("date", rs.Clock.LocalToday().String()))
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RolloverScheduler) RunNow() {
	rs.check()
}
