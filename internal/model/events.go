package model

import "encoding/json"

// Event kinds emitted by the generation backend for one job. The backend
// gives no delivery-order or exactly-once guarantee; consumers must be
// idempotent.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventProgress     EventKind = "progress"
	EventJobCompleted EventKind = "job-completed"
	EventCompleted    EventKind = "completed"
	EventError        EventKind = "error"
)

// JobEvent is the decoded form of one backend lifecycle event.
// `completed` sometimes carries a singular resultUrl and sometimes a
// resultUrls list, so both fields are kept and reconciled downstream.
type JobEvent struct {
	Kind       EventKind
	Fraction   float64 // progress, 0..1
	WorkerName string
	ResultURL  string
	ResultURLs []string
	Message    string // error
}

// Terminal reports whether the event ends the stream for its job
func (e JobEvent) Terminal() bool {
	return e.Kind == EventCompleted || e.Kind == EventError
}

// ProgressPct converts the backend's fractional progress to 0-100
func (e JobEvent) ProgressPct() int {
	pct := int(e.Fraction * 100)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

type jobEventWire struct {
	Type       string   `json:"type"`
	Progress   float64  `json:"progress"`
	Worker     string   `json:"worker,omitempty"`
	ResultURL  string   `json:"resultUrl,omitempty"`
	ResultURLs []string `json:"resultUrls,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// DecodeJobEvent parses one wire payload into a JobEvent
func DecodeJobEvent(data []byte) (JobEvent, error) {
	var wire jobEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return JobEvent{}, err
	}
	return JobEvent{
		Kind:       EventKind(wire.Type),
		Fraction:   wire.Progress,
		WorkerName: wire.Worker,
		ResultURL:  wire.ResultURL,
		ResultURLs: wire.ResultURLs,
		Message:    wire.Message,
	}, nil
}
