package generation

import (
	"context"

	"github.com/orbitshot/api/internal/model"
)

// UnsubscribeFunc stops event delivery for one subscription. It never
// cancels the remote job itself.
type UnsubscribeFunc func()

// Backend is the remote generation service consumed by the orchestrator.
// Submit exchanges one angle request for a job id; Subscribe attaches to
// that job's lifecycle event stream. Events may arrive out of order or
// more than once.
type Backend interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Subscribe(jobID string, onEvent func(model.JobEvent), onTransportError func(error)) UnsubscribeFunc
}

// SubmitRequest carries one generation job submission
type SubmitRequest struct {
	Image     string
	Azimuth   model.Azimuth
	Elevation model.Elevation
	Distance  model.Distance
	Width     int
	Height    int
	TokenType model.TokenType
	Strength  float64
}

// Dimensions of the requested output images
type Dimensions struct {
	Width  int
	Height int
}

// Options tune one orchestration run
type Options struct {
	Concurrency int
	TokenType   model.TokenType
	Strength    float64
}

// DefaultConcurrency caps simultaneously outstanding jobs per run
const DefaultConcurrency = 4

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}

// Callbacks deliver per-waypoint lifecycle updates to the state layer.
// OnStart may refuse (waypoint already generating); the generator then
// records a failure outcome without submitting.
type Callbacks struct {
	OnStart    func(waypointID string) error
	OnProgress func(waypointID string, pct int)
	OnComplete func(waypointID string, imageURL string)
	OnFail     func(waypointID string, message string)

	// OnAllComplete fires exactly once per run, after every waypoint
	// recorded a terminal outcome. It does not fire for canceled runs.
	OnAllComplete func(results map[string]Outcome)
}

func (cb Callbacks) start(id string) error {
	if cb.OnStart == nil {
		return nil
	}
	return cb.OnStart(id)
}

func (cb Callbacks) progress(id string, pct int) {
	if cb.OnProgress != nil {
		cb.OnProgress(id, pct)
	}
}

func (cb Callbacks) complete(id, url string) {
	if cb.OnComplete != nil {
		cb.OnComplete(id, url)
	}
}

func (cb Callbacks) fail(id, msg string) {
	if cb.OnFail != nil {
		cb.OnFail(id, msg)
	}
}

// Outcome is the terminal result of one generation attempt. Failures are
// data, not errors: the orchestrator always proceeds to the next queued
// waypoint.
type Outcome struct {
	WaypointID string
	ImageURL   string
	Err        error
	Canceled   bool
}

// Succeeded reports whether the attempt produced an image
func (o Outcome) Succeeded() bool {
	return o.Err == nil && !o.Canceled
}
