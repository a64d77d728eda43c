package service

import (
	"context"
	"sync"
)

// RunRegistry tracks the cancel function of every run currently executing
// in this process. Canceling a run that has not registered yet leaves a
// tombstone so the worker sees an already-canceled context when it starts.
type RunRegistry struct {
	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	canceled map[string]bool
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{
		cancels:  make(map[string]context.CancelFunc),
		canceled: make(map[string]bool),
	}
}

// Register derives the run's context. If the run was canceled before it
// started, the returned context is already canceled.
func (r *RunRegistry) Register(runID string, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if r.canceled[runID] {
		r.mu.Unlock()
		cancel()
		return ctx, cancel
	}
	r.cancels[runID] = cancel
	r.mu.Unlock()
	return ctx, cancel
}

// Cancel stops the run if it is executing, or tombstones it if not
func (r *RunRegistry) Cancel(runID string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[runID]
	if !ok {
		r.canceled[runID] = true
	}
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// Remove forgets a finished run
func (r *RunRegistry) Remove(runID string) {
	r.mu.Lock()
	delete(r.cancels, runID)
	delete(r.canceled, runID)
	r.mu.Unlock()
}
