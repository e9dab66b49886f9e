package service

import (
	"context"
	"courtbook/pkg/logger"
	"sync"
	"time"
)

// Sweeper runs Sweep on a fixed interval. Reads already evict expired holds
// lazily; the sweeper keeps idle slots and ended bookings current too.
type Sweeper struct {
	svc      ReservationService
	interval time.Duration
	log      *logger.Logger
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  bool
}

func NewSweeper(svc ReservationService, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.started = true
	go s.run()
}

func (s *Sweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce()
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single pass bounded by the sweep interval.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	res, err := s.svc.Sweep(ctx)
	if err != nil {
		s.log.Error("Sweep failed",
			"holds_released", res.HoldsReleased,
			"bookings_completed", res.BookingsCompleted,
			"error", err,
		)
		return
	}
	if res.HoldsReleased > 0 || res.BookingsCompleted > 0 {
		s.log.Info("Sweep finished",
			"holds_released", res.HoldsReleased,
			"bookings_completed", res.BookingsCompleted,
		)
	}
}

// Stop ends the loop and waits for an in-flight pass.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	if s.started {
		<-s.done
	}
}
