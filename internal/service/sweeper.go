package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Sweeper interface {
	Start()
	Stop()
}

type sweeper struct {
	orchestrator *Orchestrator
	interval     time.Duration
	stopChan     chan struct{}
	isRunning    bool
	mtx          sync.Mutex
	logger       *slog.Logger
}

// NewSweeper creates a scheduler that periodically expires batches whose
// delivery report never arrived.
func NewSweeper(o *Orchestrator, interval time.Duration, logger *slog.Logger) Sweeper {
	return &sweeper{
		orchestrator: o,
		interval:     interval,
		stopChan:     make(chan struct{}),
		logger:       logger,
	}
}

// Start runs the sweeper in the background
func (s *sweeper) Start() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.isRunning || s.interval <= 0 {
		return
	}
	s.isRunning = true

	// run scheduler
	ticker := time.NewTicker(s.interval)
	go func(t *time.Ticker) {
		sweepCtx, sweepCtxCancel := context.WithCancel(context.Background())
		defer sweepCtxCancel()

		for {
			select {
			case <-t.C:
				if n := s.orchestrator.Expire(sweepCtx); n > 0 {
					s.logger.Info("expired batches", slog.Int("count", n))
				}
			case <-s.stopChan:
				t.Stop()
				return
			}
		}
	}(ticker)
}

// Stop pauses the sweeper
func (s *sweeper) Stop() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.isRunning {
		return
	}

	s.stopChan <- struct{}{}
	s.isRunning = false
}
