package model

// Waypoint represents one requested camera shot and its generation state
type Waypoint struct {
	ID         string    `json:"id"`
	Azimuth    Azimuth   `json:"azimuth"`
	Elevation  Elevation `json:"elevation"`
	Distance   Distance  `json:"distance"`
	IsOriginal bool      `json:"isOriginal"`

	Status   WaypointStatus `json:"status"`
	Progress int            `json:"progress"`
	Error    *string        `json:"error,omitempty"`

	// ImageHistory is append-only; one entry per successful generation.
	// CurrentImageIndex is -1 while the history is empty.
	ImageHistory      []string `json:"imageHistory"`
	CurrentImageIndex int      `json:"currentImageIndex"`
	ImageURL          string   `json:"imageUrl,omitempty"`
}

// Clone returns a deep copy so callers never share the history slice
func (w *Waypoint) Clone() Waypoint {
	cp := *w
	if w.Error != nil {
		msg := *w.Error
		cp.Error = &msg
	}
	cp.ImageHistory = append([]string(nil), w.ImageHistory...)
	return cp
}

// CurrentImage returns the history entry the index points at, or ""
func (w *Waypoint) CurrentImage() string {
	if w.CurrentImageIndex < 0 || w.CurrentImageIndex >= len(w.ImageHistory) {
		return ""
	}
	return w.ImageHistory[w.CurrentImageIndex]
}
