package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/orbitshot/api/internal/generation"
	"github.com/orbitshot/api/internal/model"
	"github.com/orbitshot/api/internal/service"
	ws "github.com/orbitshot/api/internal/websocket"
)

// GenerateWorker executes orchestration runs queued by the generation
// service. One task is one run: a bounded pool of generators drains the
// run's waypoints, every outcome lands in the waypoint store, and run
// subscribers hear about it over the websocket hub.
type GenerateWorker struct {
	service      *service.GenerationService
	orchestrator *generation.Orchestrator
	hub          *ws.Hub
}

// NewGenerateWorker creates a new generation run worker
func NewGenerateWorker(svc *service.GenerationService, backend generation.Backend, hub *ws.Hub) *GenerateWorker {
	return &GenerateWorker{
		service:      svc,
		orchestrator: generation.NewOrchestrator(backend),
		hub:          hub,
	}
}

// ProcessTask handles one queued generation run
func (w *GenerateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		RunID   string          `json:"runId"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	var payload model.GenerateRunPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failRun(taskPayload.RunID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal run payload: %w", err)
	}

	log.Printf("Starting generation run: %s (%d waypoints, concurrency %d)",
		taskPayload.RunID, len(payload.WaypointIDs), payload.Concurrency)

	return w.runGeneration(ctx, taskPayload.RunID, &payload)
}

func (w *GenerateWorker) runGeneration(ctx context.Context, runID string, payload *model.GenerateRunPayload) (err error) {
	st := w.service.Store()

	runCtx, cancel := w.service.Runs().Register(runID, ctx)
	defer cancel()
	defer w.service.Runs().Remove(runID)

	// Canceled before the worker picked it up
	if runCtx.Err() != nil {
		w.markCanceled(runID)
		return nil
	}

	if err := w.service.MarkRunRunning(ctx, runID); err != nil {
		log.Printf("Failed to mark run %s running: %v", runID, err)
	}

	// A run-level interruption must not leave waypoints stuck in
	// generating: revert them all to failed with a generic message.
	defer func() {
		if r := recover(); r != nil {
			for _, id := range st.FailAllGenerating(payload.WaypointIDs, "generation interrupted") {
				w.hub.BroadcastWaypointError(runID, id, "generation interrupted")
			}
			w.failRun(runID, fmt.Sprintf("generation interrupted: %v", r))
			err = fmt.Errorf("generation run %s panicked: %v", runID, r)
		}
	}()

	waypoints := st.List(payload.WaypointIDs)

	callbacks := generation.Callbacks{
		OnStart: func(id string) error {
			if err := st.StartGeneration(id); err != nil {
				return err
			}
			w.hub.BroadcastWaypointProgress(runID, id, 0, model.WaypointStatusGenerating)
			return nil
		},
		OnProgress: func(id string, pct int) {
			if err := st.SetProgress(id, pct); err == nil {
				w.hub.BroadcastWaypointProgress(runID, id, pct, model.WaypointStatusGenerating)
			}
		},
		OnComplete: func(id, imageURL string) {
			wp, err := st.CompleteGeneration(id, imageURL)
			if err != nil {
				log.Printf("Failed to complete waypoint %s: %v", id, err)
				return
			}
			w.hub.BroadcastWaypointComplete(runID, id, imageURL, wp.CurrentImageIndex)
		},
		OnFail: func(id, message string) {
			if err := st.FailGeneration(id, message); err == nil {
				w.hub.BroadcastWaypointError(runID, id, message)
			}
		},
		OnAllComplete: func(outcomes map[string]generation.Outcome) {
			w.hub.BroadcastRunComplete(runID, resultRefs(outcomes))
		},
	}

	outcomes := w.orchestrator.GenerateAll(runCtx, payload.SourceImage, waypoints,
		generation.Dimensions{Width: payload.Width, Height: payload.Height},
		generation.Options{
			Concurrency: payload.Concurrency,
			TokenType:   payload.TokenType,
			Strength:    payload.Strength,
		},
		callbacks,
	)

	if runCtx.Err() != nil {
		// Local cancel: generating waypoints drop back to pending and
		// their abandoned backend jobs run on unobserved.
		for _, id := range payload.WaypointIDs {
			if reset, _ := st.ResetToPending(id); reset {
				w.hub.BroadcastWaypointProgress(runID, id, 0, model.WaypointStatusPending)
			}
		}
		w.markCanceled(runID)
		log.Printf("Generation run %s canceled", runID)
		return nil
	}

	if err := w.service.CompleteRun(ctx, runID, resultRefs(outcomes)); err != nil {
		log.Printf("Failed to record run %s results: %v", runID, err)
	}
	log.Printf("Generation run %s completed (%d waypoints)", runID, len(outcomes))
	return nil
}

func (w *GenerateWorker) markCanceled(runID string) {
	if err := w.service.MarkRunCanceled(context.Background(), runID); err != nil {
		log.Printf("Failed to mark run %s canceled: %v", runID, err)
	}
}

func (w *GenerateWorker) failRun(runID, errMsg string) {
	if err := w.service.FailRun(context.Background(), runID, errMsg); err != nil {
		log.Printf("Failed to mark run %s failed: %v", runID, err)
	}
}

// resultRefs flattens outcomes to the run's results map: waypoint id to
// image reference, empty on failure.
func resultRefs(outcomes map[string]generation.Outcome) map[string]string {
	results := make(map[string]string, len(outcomes))
	for id, out := range outcomes {
		if out.Succeeded() {
			results[id] = out.ImageURL
		} else {
			results[id] = ""
		}
	}
	return results
}
