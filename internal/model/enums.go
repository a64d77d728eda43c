package model

// Azimuth positions (compass-like, 8 stops around the subject)
type Azimuth string

const (
	AzimuthFront      Azimuth = "front"
	AzimuthFrontRight Azimuth = "front-right"
	AzimuthRight      Azimuth = "right"
	AzimuthBackRight  Azimuth = "back-right"
	AzimuthBack       Azimuth = "back"
	AzimuthBackLeft   Azimuth = "back-left"
	AzimuthLeft       Azimuth = "left"
	AzimuthFrontLeft  Azimuth = "front-left"
)

var ValidAzimuths = []Azimuth{
	AzimuthFront, AzimuthFrontRight, AzimuthRight, AzimuthBackRight,
	AzimuthBack, AzimuthBackLeft, AzimuthLeft, AzimuthFrontLeft,
}

// Elevation heights
type Elevation string

const (
	ElevationLow      Elevation = "low"
	ElevationEyeLevel Elevation = "eye-level"
	ElevationHigh     Elevation = "high"
	ElevationOverhead Elevation = "overhead"
)

var ValidElevations = []Elevation{
	ElevationLow, ElevationEyeLevel, ElevationHigh, ElevationOverhead,
}

// Distance zoom levels
type Distance string

const (
	DistanceClose  Distance = "close"
	DistanceMedium Distance = "medium"
	DistanceFar    Distance = "far"
)

var ValidDistances = []Distance{
	DistanceClose, DistanceMedium, DistanceFar,
}

// Waypoint status
type WaypointStatus string

const (
	WaypointStatusPending    WaypointStatus = "pending"
	WaypointStatusGenerating WaypointStatus = "generating"
	WaypointStatusReady      WaypointStatus = "ready"
	WaypointStatusFailed     WaypointStatus = "failed"
)

// Run status
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Token types accepted by the generation backend
type TokenType string

const (
	TokenTypeStandard TokenType = "standard"
	TokenTypeTurbo    TokenType = "turbo"
)

var ValidTokenTypes = []TokenType{TokenTypeStandard, TokenTypeTurbo}
