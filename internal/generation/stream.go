package generation

import (
	"sync"

	"github.com/orbitshot/api/internal/model"
)

// ProgressStream wraps one backend subscription into a stream with a
// hard delivery guarantee: after Close returns, no callback fires again.
// That guarantee is what keeps an abandoned job's late events from
// resurrecting stale waypoint state.
//
// Closing is local only (LocalCancelOnly): the remote job keeps running,
// the stream just stops listening. The stream closes itself after
// delivering a completed or error event.
//
// Callbacks run under the stream's lock; they must not call Close.
type ProgressStream struct {
	jobID string

	mu          sync.Mutex
	closed      bool
	unsubscribe UnsubscribeFunc

	onEvent          func(model.JobEvent)
	onTransportError func(error)
}

// LocalCancelOnly documents the backend contract: there is no way to
// cancel a submitted job, only to stop observing it.
const LocalCancelOnly = true

// OpenStream subscribes to jobID and returns the wrapping stream
func OpenStream(backend Backend, jobID string, onEvent func(model.JobEvent), onTransportError func(error)) *ProgressStream {
	s := &ProgressStream{
		jobID:            jobID,
		onEvent:          onEvent,
		onTransportError: onTransportError,
	}
	// Subscribe may deliver synchronously, so the stream must be fully
	// initialized before this call.
	s.unsubscribe = backend.Subscribe(jobID, s.deliver, s.deliverTransportError)

	// A terminal event delivered during Subscribe already closed the
	// stream; the unsubscribe handle arrived too late to be called there.
	s.mu.Lock()
	if s.closed && s.unsubscribe != nil {
		unsub := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()
		unsub()
		return s
	}
	s.mu.Unlock()
	return s
}

// JobID returns the subscribed job's identifier
func (s *ProgressStream) JobID() string {
	return s.jobID
}

// Close is idempotent and stops all further callback delivery
func (s *ProgressStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *ProgressStream) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.unsubscribe != nil {
		unsub := s.unsubscribe
		s.unsubscribe = nil
		unsub()
	}
}

func (s *ProgressStream) deliver(ev model.JobEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onEvent(ev)
	if ev.Terminal() {
		s.closeLocked()
	}
}

func (s *ProgressStream) deliverTransportError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onTransportError(err)
	s.closeLocked()
}
