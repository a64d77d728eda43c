package model

import "time"

// WaypointSpec describes one requested camera shot in a start request
type WaypointSpec struct {
	ID         string    `json:"id" validate:"required"`
	Azimuth    Azimuth   `json:"azimuth" validate:"required,oneof=front front-right right back-right back back-left left front-left"`
	Elevation  Elevation `json:"elevation" validate:"required,oneof=low eye-level high overhead"`
	Distance   Distance  `json:"distance" validate:"required,oneof=close medium far"`
	IsOriginal bool      `json:"isOriginal"`
}

// GenerateStartRequest represents the request to start an orchestration run
type GenerateStartRequest struct {
	SourceImage string         `json:"sourceImage" validate:"required,url"`
	Waypoints   []WaypointSpec `json:"waypoints" validate:"required,min=1,max=32,dive"`
	Width       int            `json:"width" validate:"required,min=64,max=4096"`
	Height      int            `json:"height" validate:"required,min=64,max=4096"`
	Concurrency int            `json:"concurrency" validate:"omitempty,min=1,max=8"`
	TokenType   TokenType      `json:"tokenType" validate:"omitempty,oneof=standard turbo"`
	Strength    float64        `json:"strength" validate:"omitempty,min=0,max=1"`
}

// GenerateStartResponse represents the response when starting a run
type GenerateStartResponse struct {
	RunID     string    `json:"runId"`
	Status    RunStatus `json:"status"`
	Waypoints int       `json:"waypoints"`
	CreatedAt time.Time `json:"createdAt"`
}

// RunStatusResponse represents the status of an orchestration run
type RunStatusResponse struct {
	RunID       string            `json:"runId"`
	Status      RunStatus         `json:"status"`
	Error       *string           `json:"error"`
	Waypoints   []Waypoint        `json:"waypoints"`
	Results     map[string]string `json:"results,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt"`
	CompletedAt *time.Time        `json:"completedAt"`
}

// CancelRunResponse represents the response when canceling a run.
// Cancellation is local only: the backend keeps processing abandoned jobs,
// the orchestrator just stops listening to them.
type CancelRunResponse struct {
	Success bool      `json:"success"`
	RunID   string    `json:"runId"`
	Status  RunStatus `json:"status"`
}

// RedoRequest represents a user-initiated regeneration of one waypoint
type RedoRequest struct {
	SourceImage string    `json:"sourceImage" validate:"required,url"`
	Width       int       `json:"width" validate:"required,min=64,max=4096"`
	Height      int       `json:"height" validate:"required,min=64,max=4096"`
	TokenType   TokenType `json:"tokenType" validate:"omitempty,oneof=standard turbo"`
	Strength    float64   `json:"strength" validate:"omitempty,min=0,max=1"`
}

// RedoResponse represents the response when a redo run was queued
type RedoResponse struct {
	RunID      string    `json:"runId"`
	WaypointID string    `json:"waypointId"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToggleOriginalRequest marks a waypoint as reusing the unmodified source
// image (or reverts it back to pending)
type ToggleOriginalRequest struct {
	IsOriginal  bool   `json:"isOriginal"`
	SourceImage string `json:"sourceImage" validate:"required,url"`
}
