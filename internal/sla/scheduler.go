package sla

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser supports both standard (5-field) and extended (6-field with
// seconds) cron expressions plus @every-style descriptors, mirroring the
// scheduler's parser configuration elsewhere in this codebase.
var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// defaultSweepSchedule runs the breach sweep every minute.
const defaultSweepSchedule = "@every 1m"

// Scheduler periodically runs Engine.Sweep on a cron schedule.
type Scheduler struct {
	engine   *Engine
	schedule cron.Schedule
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler parses spec (a standard or @every cron descriptor,
// defaulting to defaultSweepSchedule if empty) and builds a Scheduler
// that sweeps engine on that cadence.
func NewScheduler(engine *Engine, spec string, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = defaultSweepSchedule
	}
	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{engine: engine, schedule: schedule, logger: logger, now: time.Now}, nil
}

// Start runs the sweep loop in a background goroutine until ctx is
// canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(runCtx)
}

// Stop cancels the sweep loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	next := s.schedule.Next(s.now())

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			now := s.now()
			if _, err := s.engine.Sweep(ctx, now); err != nil {
				s.logger.Warn("sla: breach sweep failed", "error", err)
			}
			next = s.schedule.Next(now)
		}
	}
}
