package model

import "time"

// Run represents one orchestration run: the batch of generation jobs
// started by a single generate (or redo) call.
type Run struct {
	ID          string            `json:"id"`
	Status      RunStatus         `json:"status"`
	SourceImage string            `json:"sourceImage"`
	WaypointIDs []string          `json:"waypointIds"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Concurrency int               `json:"concurrency"`
	TokenType   TokenType         `json:"tokenType"`
	Strength    float64           `json:"strength"`
	Error       *string           `json:"error,omitempty"`
	Results     map[string]string `json:"results,omitempty"` // waypoint id -> image ref, "" on failure
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
}

// GenerateRunPayload is the asynq task payload for a run
type GenerateRunPayload struct {
	SourceImage string    `json:"sourceImage"`
	WaypointIDs []string  `json:"waypointIds"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Concurrency int       `json:"concurrency"`
	TokenType   TokenType `json:"tokenType"`
	Strength    float64   `json:"strength"`
}
