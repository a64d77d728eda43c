package generation

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitshot/api/internal/model"
)

// scriptedBackend replays a fixed event sequence synchronously inside
// Subscribe. Good for single-generator tests where the whole lifecycle
// is known up front.
type scriptedBackend struct {
	script       []model.JobEvent
	transportErr error
	submitErr    error

	mu           sync.Mutex
	submits      []SubmitRequest
	unsubscribes int
}

func (b *scriptedBackend) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return "", b.submitErr
	}
	b.submits = append(b.submits, req)
	return "job-1", nil
}

func (b *scriptedBackend) Subscribe(jobID string, onEvent func(model.JobEvent), onTransportError func(error)) UnsubscribeFunc {
	for _, ev := range b.script {
		onEvent(ev)
	}
	if b.transportErr != nil {
		onTransportError(b.transportErr)
	}
	return func() {
		b.mu.Lock()
		b.unsubscribes++
		b.mu.Unlock()
	}
}

func (b *scriptedBackend) submitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submits)
}

func (b *scriptedBackend) unsubscribeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubscribes
}

// manualBackend hands each subscription back to the test so events can be
// emitted at chosen moments, including after an unsubscribe. Emission
// ignores the unsubscribed flag on purpose: the no-delivery-after-close
// guarantee belongs to the stream, not the transport.
type manualBackend struct {
	mu        sync.Mutex
	submitErr error
	nextJob   int
	subs      map[string]*manualSub
	submitted chan string // receives the job id of every submission
}

type manualSub struct {
	onEvent          func(model.JobEvent)
	onTransportError func(error)
	unsubscribed     bool
}

func newManualBackend() *manualBackend {
	return &manualBackend{
		subs:      make(map[string]*manualSub),
		submitted: make(chan string, 64),
	}
}

func (b *manualBackend) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	b.mu.Lock()
	if b.submitErr != nil {
		b.mu.Unlock()
		return "", b.submitErr
	}
	b.nextJob++
	jobID := fmt.Sprintf("job-%d", b.nextJob)
	b.mu.Unlock()

	b.submitted <- jobID
	return jobID, nil
}

func (b *manualBackend) Subscribe(jobID string, onEvent func(model.JobEvent), onTransportError func(error)) UnsubscribeFunc {
	b.mu.Lock()
	sub := &manualSub{onEvent: onEvent, onTransportError: onTransportError}
	b.subs[jobID] = sub
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		sub.unsubscribed = true
		b.mu.Unlock()
	}
}

func (b *manualBackend) emit(jobID string, ev model.JobEvent) {
	b.mu.Lock()
	sub := b.subs[jobID]
	b.mu.Unlock()
	if sub != nil {
		sub.onEvent(ev)
	}
}

func (b *manualBackend) emitTransportError(jobID string, err error) {
	b.mu.Lock()
	sub := b.subs[jobID]
	b.mu.Unlock()
	if sub != nil {
		sub.onTransportError(err)
	}
}

func (b *manualBackend) isUnsubscribed(jobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := b.subs[jobID]
	return sub != nil && sub.unsubscribed
}

func progressEvent(fraction float64) model.JobEvent {
	return model.JobEvent{Kind: model.EventProgress, Fraction: fraction}
}

func jobCompletedEvent(url string) model.JobEvent {
	return model.JobEvent{Kind: model.EventJobCompleted, ResultURL: url}
}

func completedEvent(url string, urls ...string) model.JobEvent {
	return model.JobEvent{Kind: model.EventCompleted, ResultURL: url, ResultURLs: urls}
}

func errorEvent(msg string) model.JobEvent {
	return model.JobEvent{Kind: model.EventError, Message: msg}
}

// recorder collects callback invocations for assertions
type recorder struct {
	mu        sync.Mutex
	starts    []string
	progress  map[string][]int
	completes map[string]string
	fails     map[string]string
	startErr  error
}

func newRecorder() *recorder {
	return &recorder{
		progress:  make(map[string][]int),
		completes: make(map[string]string),
		fails:     make(map[string]string),
	}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStart: func(id string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.startErr != nil {
				return r.startErr
			}
			r.starts = append(r.starts, id)
			return nil
		},
		OnProgress: func(id string, pct int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress[id] = append(r.progress[id], pct)
		},
		OnComplete: func(id, url string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, dup := r.completes[id]; dup {
				panic("duplicate complete callback for " + id)
			}
			r.completes[id] = url
		},
		OnFail: func(id, msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, dup := r.fails[id]; dup {
				panic("duplicate fail callback for " + id)
			}
			r.fails[id] = msg
		},
	}
}

func (r *recorder) completedURL(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	url, ok := r.completes[id]
	return url, ok
}

func (r *recorder) failMessage(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.fails[id]
	return msg, ok
}

func (r *recorder) progressValues(id string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress[id]...)
}

func (r *recorder) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.starts)
}

func testWaypoint(id string) model.Waypoint {
	return model.Waypoint{
		ID:                id,
		Azimuth:           model.AzimuthFront,
		Elevation:         model.ElevationEyeLevel,
		Distance:          model.DistanceMedium,
		Status:            model.WaypointStatusPending,
		CurrentImageIndex: -1,
	}
}

var testDims = Dimensions{Width: 1024, Height: 1024}
