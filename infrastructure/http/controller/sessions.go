package controller

import (
	"context"
	"sync"
)

// Sessions tracks live websocket sessions.
// http.Server.Shutdown ignores hijacked connections, Drain is what closes and waits for them.
type Sessions struct {
	live     sync.WaitGroup
	mu       sync.Mutex
	draining bool
	closing  chan struct{}
}

func NewSessions() *Sessions {
	return &Sessions{closing: make(chan struct{})}
}

// add registers a session. It refuses once draining started.
func (s *Sessions) add() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.live.Add(1)
	return true
}

func (s *Sessions) done() {
	s.live.Done()
}

// Closing is closed when Drain starts.
func (s *Sessions) Closing() <-chan struct{} {
	return s.closing
}

// Drain asks every session to close and waits until their handlers returned or ctx is done.
func (s *Sessions) Drain(ctx context.Context) error {
	s.mu.Lock()
	if !s.draining {
		s.draining = true
		close(s.closing)
	}
	s.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		s.live.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
