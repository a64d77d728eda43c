package model

// WebSocket message types
const (
	WSMessageTypeWaypointProgress = "waypoint-progress"
	WSMessageTypeWaypointComplete = "waypoint-complete"
	WSMessageTypeWaypointError    = "waypoint-error"
	WSMessageTypeRunComplete      = "run-complete"
	WSMessageTypePing             = "ping"
	WSMessageTypePong             = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSWaypointProgressMessage represents a progress update for one waypoint
type WSWaypointProgressMessage struct {
	Type       string         `json:"type"`
	RunID      string         `json:"runId"`
	WaypointID string         `json:"waypointId"`
	Progress   int            `json:"progress"`
	Status     WaypointStatus `json:"status"`
}

// WSWaypointCompleteMessage represents one waypoint reaching ready
type WSWaypointCompleteMessage struct {
	Type       string `json:"type"`
	RunID      string `json:"runId"`
	WaypointID string `json:"waypointId"`
	ImageURL   string `json:"imageUrl"`
	Version    int    `json:"version"` // index of the new history entry
}

// WSWaypointErrorMessage represents one waypoint failing
type WSWaypointErrorMessage struct {
	Type       string `json:"type"`
	RunID      string `json:"runId"`
	WaypointID string `json:"waypointId"`
	Error      string `json:"error"`
}

// WSRunCompleteMessage fires once per run, after every waypoint recorded
// a terminal outcome
type WSRunCompleteMessage struct {
	Type    string            `json:"type"`
	RunID   string            `json:"runId"`
	Results map[string]string `json:"results"`
}
