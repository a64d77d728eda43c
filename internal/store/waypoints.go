package store

import (
	"errors"
	"sync"

	"github.com/orbitshot/api/internal/model"
)

var (
	ErrNotFound          = errors.New("waypoint not found")
	ErrAlreadyGenerating = errors.New("waypoint is already generating")
	ErrGenerating        = errors.New("waypoint is generating")
)

// Store is the authoritative state machine for every waypoint. All
// orchestrator callbacks and user actions mutate waypoints through it;
// updates are applied atomically per waypoint under one lock.
type Store struct {
	mu        sync.RWMutex
	waypoints map[string]*model.Waypoint
}

func New() *Store {
	return &Store{waypoints: make(map[string]*model.Waypoint)}
}

// Put inserts or replaces a waypoint, normalizing its derived fields
func (s *Store) Put(wp model.Waypoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := wp.Clone()
	if len(cp.ImageHistory) == 0 {
		cp.CurrentImageIndex = -1
		cp.ImageURL = ""
	} else {
		if cp.CurrentImageIndex < 0 || cp.CurrentImageIndex >= len(cp.ImageHistory) {
			cp.CurrentImageIndex = len(cp.ImageHistory) - 1
		}
		cp.ImageURL = cp.ImageHistory[cp.CurrentImageIndex]
	}
	s.waypoints[cp.ID] = &cp
}

// Get returns a copy of one waypoint
func (s *Store) Get(id string) (model.Waypoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return model.Waypoint{}, ErrNotFound
	}
	return wp.Clone(), nil
}

// List returns copies of the named waypoints, skipping unknown ids
func (s *Store) List(ids []string) []model.Waypoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Waypoint, 0, len(ids))
	for _, id := range ids {
		if wp, ok := s.waypoints[id]; ok {
			out = append(out, wp.Clone())
		}
	}
	return out
}

// StartGeneration moves a waypoint into generating, clearing its error
// and zeroing progress. A waypoint already generating is refused: it is
// owned by another live attempt.
func (s *Store) StartGeneration(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return ErrNotFound
	}
	if wp.Status == model.WaypointStatusGenerating {
		return ErrAlreadyGenerating
	}
	wp.Status = model.WaypointStatusGenerating
	wp.Progress = 0
	wp.Error = nil
	return nil
}

// SetProgress stores the latest reported progress. Monotonicity is not
// enforced; the backend's last word wins.
func (s *Store) SetProgress(id string, pct int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return ErrNotFound
	}
	if wp.Status != model.WaypointStatusGenerating {
		return nil
	}
	wp.Progress = pct
	return nil
}

// CompleteGeneration appends a new history entry and points the current
// index at it. History is never truncated: a redo adds a version.
func (s *Store) CompleteGeneration(id, imageURL string) (model.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return model.Waypoint{}, ErrNotFound
	}
	wp.ImageHistory = append(wp.ImageHistory, imageURL)
	wp.CurrentImageIndex = len(wp.ImageHistory) - 1
	wp.ImageURL = imageURL
	wp.Status = model.WaypointStatusReady
	wp.Progress = 100
	wp.Error = nil
	return wp.Clone(), nil
}

// FailGeneration records the failure message, leaving history untouched
func (s *Store) FailGeneration(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return ErrNotFound
	}
	wp.Status = model.WaypointStatusFailed
	wp.Progress = 0
	wp.Error = &message
	return nil
}

// ResetToPending is the local-cancel transition: a generating waypoint
// goes back to pending and its abandoned job is no longer listened to.
// Waypoints in any other state are left alone.
func (s *Store) ResetToPending(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return false, ErrNotFound
	}
	if wp.Status != model.WaypointStatusGenerating {
		return false, nil
	}
	wp.Status = model.WaypointStatusPending
	wp.Progress = 0
	return true, nil
}

// FailAllGenerating reverts every named waypoint still generating to
// failed with the given message. Used when a whole run is interrupted so
// nothing stays stuck in generating.
func (s *Store) FailAllGenerating(ids []string, message string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []string
	for _, id := range ids {
		wp, ok := s.waypoints[id]
		if !ok || wp.Status != model.WaypointStatusGenerating {
			continue
		}
		msg := message
		wp.Status = model.WaypointStatusFailed
		wp.Progress = 0
		wp.Error = &msg
		failed = append(failed, id)
	}
	return failed
}

// SetOriginal toggles the use-the-source-image flag. Toggling on resolves
// the waypoint to ready with the source as its sole history entry;
// toggling off reverts it to pending with empty history. Refused while
// generating.
func (s *Store) SetOriginal(id string, isOriginal bool, sourceImage string) (model.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return model.Waypoint{}, ErrNotFound
	}
	if wp.Status == model.WaypointStatusGenerating {
		return model.Waypoint{}, ErrGenerating
	}
	wp.IsOriginal = isOriginal
	if isOriginal {
		wp.Status = model.WaypointStatusReady
		wp.Progress = 100
		wp.Error = nil
		wp.ImageHistory = []string{sourceImage}
		wp.CurrentImageIndex = 0
		wp.ImageURL = sourceImage
	} else {
		wp.Status = model.WaypointStatusPending
		wp.Progress = 0
		wp.Error = nil
		wp.ImageHistory = nil
		wp.CurrentImageIndex = -1
		wp.ImageURL = ""
	}
	return wp.Clone(), nil
}

// SelectPreviousVersion moves the current index one step back.
// A no-op at index 0; refused while generating.
func (s *Store) SelectPreviousVersion(id string) (model.Waypoint, error) {
	return s.selectVersion(id, -1)
}

// SelectNextVersion moves the current index one step forward.
// A no-op at the last index; refused while generating.
func (s *Store) SelectNextVersion(id string) (model.Waypoint, error) {
	return s.selectVersion(id, +1)
}

func (s *Store) selectVersion(id string, delta int) (model.Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wp, ok := s.waypoints[id]
	if !ok {
		return model.Waypoint{}, ErrNotFound
	}
	if wp.Status == model.WaypointStatusGenerating {
		return model.Waypoint{}, ErrGenerating
	}
	idx := wp.CurrentImageIndex + delta
	if idx >= 0 && idx < len(wp.ImageHistory) {
		wp.CurrentImageIndex = idx
		wp.ImageURL = wp.ImageHistory[idx]
	}
	return wp.Clone(), nil
}
