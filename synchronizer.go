package statemech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Synchronizer decides when and whether the top level fire, force and reset
// calls run. The engine itself does no locking; a Synchronizer that serializes
// its callers makes the whole machine safe for concurrent use. Calls made from
// inside a running transition on the same goroutine are queued by the engine
// and never reach the Synchronizer; calls from other goroutines do, and a
// serializing Synchronizer makes them wait for the running cascade.
type Synchronizer interface {
	FireEvent(fire func() (bool, error), mode FireMode) (bool, error)
	ForceTransition(force func() error) error
	Reset(reset func())
}

// passthrough runs every closure immediately.
type passthrough struct{}

func (passthrough) FireEvent(fire func() (bool, error), _ FireMode) (bool, error) {
	return fire()
}

func (passthrough) ForceTransition(force func() error) error {
	return force()
}

func (passthrough) Reset(reset func()) {
	reset()
}

// MutexSynchronizer serializes callers with a mutex.
type MutexSynchronizer struct {
	mu sync.Mutex
}

// NewMutexSynchronizer creates a MutexSynchronizer.
func NewMutexSynchronizer() *MutexSynchronizer {
	return &MutexSynchronizer{}
}

func (s *MutexSynchronizer) FireEvent(fire func() (bool, error), _ FireMode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fire()
}

func (s *MutexSynchronizer) ForceTransition(force func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return force()
}

func (s *MutexSynchronizer) Reset(reset func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reset()
}

// SemaphoreSynchronizer serializes callers and gives up on fire and force calls
// that cannot start within a timeout.
type SemaphoreSynchronizer struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewSemaphoreSynchronizer creates a SemaphoreSynchronizer. A zero timeout waits
// forever.
func NewSemaphoreSynchronizer(timeout time.Duration) *SemaphoreSynchronizer {
	return &SemaphoreSynchronizer{
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

func (s *SemaphoreSynchronizer) acquire() error {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for state machine: %w", err)
	}
	return nil
}

func (s *SemaphoreSynchronizer) FireEvent(fire func() (bool, error), _ FireMode) (bool, error) {
	if err := s.acquire(); err != nil {
		return false, err
	}
	defer s.sem.Release(1)
	return fire()
}

func (s *SemaphoreSynchronizer) ForceTransition(force func() error) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return force()
}

func (s *SemaphoreSynchronizer) Reset(reset func()) {
	_ = s.sem.Acquire(context.Background(), 1)
	defer s.sem.Release(1)
	reset()
}
