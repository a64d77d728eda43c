package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/orbitshot/api/internal/model"
)

const sourceImage = "https://cdn.orbitshot.io/source.png"

func TestGenerate_OriginalShortCircuits(t *testing.T) {
	backend := &scriptedBackend{}
	gen := NewGenerator(backend)
	rec := newRecorder()

	wp := testWaypoint("wp-1")
	wp.IsOriginal = true

	out := gen.Generate(context.Background(), sourceImage, wp, testDims, Options{}, rec.callbacks())

	if !out.Succeeded() || out.ImageURL != sourceImage {
		t.Fatalf("expected source image outcome, got %+v", out)
	}
	if backend.submitCount() != 0 {
		t.Error("original waypoint must not submit a job")
	}
	// Same callback sequence as a real generation
	if rec.startCount() != 1 {
		t.Errorf("expected 1 start, got %d", rec.startCount())
	}
	if got := rec.progressValues("wp-1"); len(got) != 1 || got[0] != 100 {
		t.Errorf("expected synthetic progress(100), got %v", got)
	}
	if url, ok := rec.completedURL("wp-1"); !ok || url != sourceImage {
		t.Errorf("expected complete(%q), got %q", sourceImage, url)
	}
}

func TestGenerate_FirstWinsAcrossCompletionSignals(t *testing.T) {
	backend := &scriptedBackend{script: []model.JobEvent{
		{Kind: model.EventConnected},
		progressEvent(0.5),
		jobCompletedEvent("https://cdn.orbitshot.io/authoritative.png"),
		completedEvent("https://cdn.orbitshot.io/redundant.png"),
	}}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.ImageURL != "https://cdn.orbitshot.io/authoritative.png" {
		t.Fatalf("expected first result to win, got %q", out.ImageURL)
	}
	if url, _ := rec.completedURL("wp-1"); url != out.ImageURL {
		t.Errorf("complete callback got %q", url)
	}
	if _, failed := rec.failMessage("wp-1"); failed {
		t.Error("unexpected fail callback")
	}
}

func TestGenerate_CompletedListShape(t *testing.T) {
	backend := &scriptedBackend{script: []model.JobEvent{
		completedEvent("", "https://cdn.orbitshot.io/one.png", "https://cdn.orbitshot.io/two.png"),
	}}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.ImageURL != "https://cdn.orbitshot.io/one.png" {
		t.Fatalf("expected first list entry, got %q", out.ImageURL)
	}
}

func TestGenerate_CompletedWithoutResultFails(t *testing.T) {
	backend := &scriptedBackend{script: []model.JobEvent{
		progressEvent(0.8),
		completedEvent(""),
	}}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if !strings.Contains(out.Err.Error(), "no result") {
		t.Errorf("unexpected error: %v", out.Err)
	}
	if _, ok := rec.failMessage("wp-1"); !ok {
		t.Error("expected fail callback")
	}
}

func TestGenerate_ErrorEventShortCircuits(t *testing.T) {
	backend := &scriptedBackend{script: []model.JobEvent{
		progressEvent(0.3),
		errorEvent("model refused the image"),
	}}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if msg, _ := rec.failMessage("wp-1"); msg != "model refused the image" {
		t.Errorf("unexpected fail message %q", msg)
	}
}

func TestGenerate_TransportFailure(t *testing.T) {
	backend := &scriptedBackend{transportErr: errors.New("connection reset")}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if !strings.Contains(out.Err.Error(), "progress stream failed") {
		t.Errorf("unexpected error: %v", out.Err)
	}
}

func TestGenerate_SubmitRejection(t *testing.T) {
	backend := &scriptedBackend{submitErr: errors.New("image too large")}
	gen := NewGenerator(backend)
	rec := newRecorder()

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if msg, ok := rec.failMessage("wp-1"); !ok || !strings.Contains(msg, "image too large") {
		t.Errorf("expected rejection fail callback, got %q", msg)
	}
}

func TestGenerate_RefusedStartSkipsSubmission(t *testing.T) {
	backend := &scriptedBackend{}
	gen := NewGenerator(backend)
	rec := newRecorder()
	rec.startErr = errors.New("waypoint is already generating")

	out := gen.Generate(context.Background(), sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())

	if out.Succeeded() {
		t.Fatal("expected failure outcome")
	}
	if backend.submitCount() != 0 {
		t.Error("refused start must not submit")
	}
	// The waypoint belongs to another live attempt; its state is not
	// touched by this one.
	if _, ok := rec.failMessage("wp-1"); ok {
		t.Error("refused start must not fire the fail callback")
	}
}

func TestGenerate_CancelDiscardsStaleEvents(t *testing.T) {
	backend := newManualBackend()
	gen := NewGenerator(backend)
	rec := newRecorder()

	ctx, cancel := context.WithCancel(context.Background())
	outcomes := make(chan Outcome, 1)
	go func() {
		outcomes <- gen.Generate(ctx, sourceImage, testWaypoint("wp-1"), testDims, Options{}, rec.callbacks())
	}()

	var jobID string
	select {
	case jobID = <-backend.submitted:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for submission")
	}

	cancel()

	var out Outcome
	select {
	case out = <-outcomes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}

	if !out.Canceled {
		t.Fatalf("expected canceled outcome, got %+v", out)
	}

	// The abandoned job finishes later; its events must be discarded.
	backend.emit(jobID, jobCompletedEvent("https://cdn.orbitshot.io/stale.png"))
	backend.emit(jobID, completedEvent("https://cdn.orbitshot.io/stale.png"))

	if _, ok := rec.completedURL("wp-1"); ok {
		t.Error("stale job event mutated state after cancel")
	}
	if !backend.isUnsubscribed(jobID) {
		t.Error("expected unsubscribe after cancel")
	}
}
