package store

import (
	"errors"
	"testing"

	"github.com/orbitshot/api/internal/model"
)

const source = "https://cdn.orbitshot.io/source.png"

func pendingWaypoint(id string) model.Waypoint {
	return model.Waypoint{
		ID:                id,
		Azimuth:           model.AzimuthFrontRight,
		Elevation:         model.ElevationHigh,
		Distance:          model.DistanceClose,
		Status:            model.WaypointStatusPending,
		CurrentImageIndex: -1,
	}
}

func mustGet(t *testing.T, s *Store, id string) model.Waypoint {
	t.Helper()
	wp, err := s.Get(id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return wp
}

func TestStore_GetUnknown(t *testing.T) {
	s := New()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutNormalizesIndex(t *testing.T) {
	s := New()

	wp := pendingWaypoint("wp-1")
	wp.CurrentImageIndex = 3 // bogus, no history
	s.Put(wp)

	got := mustGet(t, s, "wp-1")
	if got.CurrentImageIndex != -1 || got.ImageURL != "" {
		t.Errorf("empty history not normalized: idx=%d url=%q", got.CurrentImageIndex, got.ImageURL)
	}

	wp.ImageHistory = []string{"a.png", "b.png"}
	wp.CurrentImageIndex = 7
	s.Put(wp)

	got = mustGet(t, s, "wp-1")
	if got.CurrentImageIndex != 1 || got.ImageURL != "b.png" {
		t.Errorf("out-of-range index not clamped: idx=%d url=%q", got.CurrentImageIndex, got.ImageURL)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	wp := pendingWaypoint("wp-1")
	wp.ImageHistory = []string{"a.png"}
	s.Put(wp)

	got := mustGet(t, s, "wp-1")
	got.ImageHistory[0] = "mutated.png"
	got.Status = model.WaypointStatusFailed

	again := mustGet(t, s, "wp-1")
	if again.ImageHistory[0] != "a.png" {
		t.Errorf("history mutated through returned copy: %v", again.ImageHistory)
	}
	if again.Status != model.WaypointStatusPending {
		t.Errorf("status mutated through returned copy: %s", again.Status)
	}
}

func TestStore_GenerationLifecycle(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))

	if err := s.StartGeneration("wp-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := mustGet(t, s, "wp-1"); got.Status != model.WaypointStatusGenerating || got.Progress != 0 {
		t.Fatalf("after start: %+v", got)
	}

	if err := s.SetProgress("wp-1", 40); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got := mustGet(t, s, "wp-1"); got.Progress != 40 {
		t.Errorf("progress not stored: %d", got.Progress)
	}

	done, err := s.CompleteGeneration("wp-1", "v1.png")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.WaypointStatusReady || done.Progress != 100 {
		t.Errorf("after complete: %+v", done)
	}
	if len(done.ImageHistory) != 1 || done.CurrentImageIndex != 0 || done.ImageURL != "v1.png" {
		t.Errorf("history after complete: %+v", done)
	}
}

func TestStore_StartRefusedWhileGenerating(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	if err := s.StartGeneration("wp-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.StartGeneration("wp-1"); !errors.Is(err, ErrAlreadyGenerating) {
		t.Fatalf("expected ErrAlreadyGenerating, got %v", err)
	}
}

func TestStore_StartClearsPriorError(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")
	s.FailGeneration("wp-1", "backend exploded")

	if err := s.StartGeneration("wp-1"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if got := mustGet(t, s, "wp-1"); got.Error != nil {
		t.Errorf("error not cleared on retry: %q", *got.Error)
	}
}

func TestStore_ProgressIgnoredUnlessGenerating(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))

	// stale event for a waypoint that was reset
	if err := s.SetProgress("wp-1", 80); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got := mustGet(t, s, "wp-1"); got.Progress != 0 {
		t.Errorf("progress applied to pending waypoint: %d", got.Progress)
	}
}

func TestStore_RedoAppendsVersion(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")
	s.CompleteGeneration("wp-1", "v1.png")

	s.StartGeneration("wp-1")
	got := mustGet(t, s, "wp-1")
	if len(got.ImageHistory) != 1 {
		t.Fatalf("redo start truncated history: %v", got.ImageHistory)
	}

	done, err := s.CompleteGeneration("wp-1", "v2.png")
	if err != nil {
		t.Fatal(err)
	}
	if len(done.ImageHistory) != 2 || done.CurrentImageIndex != 1 || done.ImageURL != "v2.png" {
		t.Errorf("after redo: %+v", done)
	}
}

func TestStore_FailedRedoKeepsHistory(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")
	s.CompleteGeneration("wp-1", "v1.png")

	s.StartGeneration("wp-1")
	if err := s.FailGeneration("wp-1", "timeout"); err != nil {
		t.Fatal(err)
	}

	got := mustGet(t, s, "wp-1")
	if got.Status != model.WaypointStatusFailed {
		t.Errorf("status: %s", got.Status)
	}
	if got.Error == nil || *got.Error != "timeout" {
		t.Errorf("error: %v", got.Error)
	}
	if len(got.ImageHistory) != 1 || got.ImageHistory[0] != "v1.png" {
		t.Errorf("history lost on failed redo: %v", got.ImageHistory)
	}
}

func TestStore_VersionNavigation(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	for _, url := range []string{"v1.png", "v2.png", "v3.png"} {
		s.StartGeneration("wp-1")
		s.CompleteGeneration("wp-1", url)
	}

	wp, err := s.SelectPreviousVersion("wp-1")
	if err != nil {
		t.Fatal(err)
	}
	if wp.CurrentImageIndex != 1 || wp.ImageURL != "v2.png" {
		t.Errorf("previous: idx=%d url=%q", wp.CurrentImageIndex, wp.ImageURL)
	}

	wp, _ = s.SelectPreviousVersion("wp-1")
	if wp.CurrentImageIndex != 0 {
		t.Errorf("previous again: idx=%d", wp.CurrentImageIndex)
	}

	// already at the oldest version; stays put
	wp, err = s.SelectPreviousVersion("wp-1")
	if err != nil {
		t.Fatal(err)
	}
	if wp.CurrentImageIndex != 0 || wp.ImageURL != "v1.png" {
		t.Errorf("previous at lower bound: idx=%d url=%q", wp.CurrentImageIndex, wp.ImageURL)
	}

	wp, _ = s.SelectNextVersion("wp-1")
	wp, _ = s.SelectNextVersion("wp-1")
	if wp.CurrentImageIndex != 2 || wp.ImageURL != "v3.png" {
		t.Errorf("next to newest: idx=%d url=%q", wp.CurrentImageIndex, wp.ImageURL)
	}

	// already at the newest version; stays put
	wp, err = s.SelectNextVersion("wp-1")
	if err != nil {
		t.Fatal(err)
	}
	if wp.CurrentImageIndex != 2 {
		t.Errorf("next at upper bound: idx=%d", wp.CurrentImageIndex)
	}
}

func TestStore_VersionNavigationRefusedWhileGenerating(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")
	s.CompleteGeneration("wp-1", "v1.png")
	s.StartGeneration("wp-1")

	if _, err := s.SelectPreviousVersion("wp-1"); !errors.Is(err, ErrGenerating) {
		t.Errorf("previous: expected ErrGenerating, got %v", err)
	}
	if _, err := s.SelectNextVersion("wp-1"); !errors.Is(err, ErrGenerating) {
		t.Errorf("next: expected ErrGenerating, got %v", err)
	}
}

func TestStore_ToggleOriginal(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))

	wp, err := s.SetOriginal("wp-1", true, source)
	if err != nil {
		t.Fatal(err)
	}
	if !wp.IsOriginal || wp.Status != model.WaypointStatusReady {
		t.Errorf("toggle on: %+v", wp)
	}
	if len(wp.ImageHistory) != 1 || wp.ImageHistory[0] != source || wp.CurrentImageIndex != 0 {
		t.Errorf("toggle on history: %+v", wp)
	}

	wp, err = s.SetOriginal("wp-1", false, source)
	if err != nil {
		t.Fatal(err)
	}
	if wp.IsOriginal || wp.Status != model.WaypointStatusPending {
		t.Errorf("toggle off: %+v", wp)
	}
	if len(wp.ImageHistory) != 0 || wp.CurrentImageIndex != -1 || wp.ImageURL != "" {
		t.Errorf("toggle off history: %+v", wp)
	}
}

func TestStore_ToggleOriginalRefusedWhileGenerating(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")

	if _, err := s.SetOriginal("wp-1", true, source); !errors.Is(err, ErrGenerating) {
		t.Fatalf("expected ErrGenerating, got %v", err)
	}
}

func TestStore_ResetToPending(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.StartGeneration("wp-1")
	s.SetProgress("wp-1", 55)

	reset, err := s.ResetToPending("wp-1")
	if err != nil || !reset {
		t.Fatalf("reset=%v err=%v", reset, err)
	}
	got := mustGet(t, s, "wp-1")
	if got.Status != model.WaypointStatusPending || got.Progress != 0 {
		t.Errorf("after reset: %+v", got)
	}

	// only generating waypoints are touched
	reset, err = s.ResetToPending("wp-1")
	if err != nil || reset {
		t.Errorf("second reset: reset=%v err=%v", reset, err)
	}

	if _, err := s.ResetToPending("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FailAllGenerating(t *testing.T) {
	s := New()
	for _, id := range []string{"wp-1", "wp-2", "wp-3"} {
		s.Put(pendingWaypoint(id))
	}
	s.StartGeneration("wp-1")
	s.StartGeneration("wp-3")

	failed := s.FailAllGenerating([]string{"wp-1", "wp-2", "wp-3", "ghost"}, "run interrupted")
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed, got %v", failed)
	}

	if got := mustGet(t, s, "wp-2"); got.Status != model.WaypointStatusPending {
		t.Errorf("pending waypoint touched: %+v", got)
	}
	for _, id := range []string{"wp-1", "wp-3"} {
		got := mustGet(t, s, id)
		if got.Status != model.WaypointStatusFailed || got.Error == nil || *got.Error != "run interrupted" {
			t.Errorf("%s: %+v", id, got)
		}
	}
}

func TestStore_ListSkipsUnknown(t *testing.T) {
	s := New()
	s.Put(pendingWaypoint("wp-1"))
	s.Put(pendingWaypoint("wp-2"))

	got := s.List([]string{"wp-2", "ghost", "wp-1"})
	if len(got) != 2 {
		t.Fatalf("expected 2 waypoints, got %d", len(got))
	}
	if got[0].ID != "wp-2" || got[1].ID != "wp-1" {
		t.Errorf("order not preserved: %s, %s", got[0].ID, got[1].ID)
	}
}
