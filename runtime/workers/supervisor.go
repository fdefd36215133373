package workers

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	minRestartDelay = 200 * time.Millisecond
	maxRestartDelay = 5 * time.Second
)

var _ contract.ISupervisor = (*Supervisor)(nil)

// Supervisor keeps the relay's background workers alive.
// A worker returning an error or panicking is restarted with a doubling delay,
// one returning nil is done. A run outliving maxRestartDelay resets the delay.
type Supervisor struct {
	log     *slog.Logger
	workers []contract.Worker
	running sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Run starts the added workers and waits for all of them.
// Stop, or cancelling ctx, ends it.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	for _, worker := range s.workers {
		s.Start(ctx, worker)
	}
	s.running.Wait()
}

// Start supervises one more worker on ctx.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.supervise(ctx, worker)
	}()
}

func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Supervisor) supervise(ctx context.Context, worker contract.Worker) {
	log := s.log.With("worker", contract.GetWorkerName(worker))
	delay := minRestartDelay

	for restarts := 0; ; restarts++ {
		started := time.Now()
		err := runOnce(ctx, worker)
		switch {
		case ctx.Err() != nil:
			log.Debug("Worker stopped", "restarts", restarts)
			return
		case err == nil:
			log.Info("Worker done", "restarts", restarts)
			return
		}

		if time.Since(started) > maxRestartDelay {
			delay = minRestartDelay
		}
		log.Warn("Worker failed, restarting", "error", err, "delay", delay, "restarts", restarts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = min(delay*2, maxRestartDelay)
	}
}

// runOnce turns a worker panic into ErrWorkerPanic.
func runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}
