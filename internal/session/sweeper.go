package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper prunes idle sessions on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	registry *Registry
	idle     time.Duration
	logger   *zap.Logger
}

func NewSweeper(registry *Registry, schedule string, idle time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		cron:     cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		registry: registry,
		idle:     idle,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule session sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) RunOnce() {
	removed := s.registry.Prune(s.idle)
	if removed > 0 {
		s.logger.Debug("pruned idle sessions",
			zap.Int("removed", removed),
			zap.Int("remaining", s.registry.Len()))
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep or ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
