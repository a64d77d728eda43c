package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/orbitshot/api/internal/config"
	"github.com/orbitshot/api/internal/model"
	"github.com/orbitshot/api/internal/store"
)

const TaskTypeGenerate = "generation:run"

const runRetention = 24 * time.Hour

// GenerationService owns orchestration runs: it persists run records to
// Redis, queues their execution through asynq, and applies user actions
// (redo, cancel, version navigation, original toggle) to the waypoint
// store.
type GenerationService struct {
	store       *store.Store
	redis       *redis.Client
	asynqClient *asynq.Client
	runs        *RunRegistry
	defaults    config.GenerationConfig
}

func NewGenerationService(waypoints *store.Store, redisClient *redis.Client, asynqClient *asynq.Client, runs *RunRegistry, defaults config.GenerationConfig) *GenerationService {
	return &GenerationService{
		store:       waypoints,
		redis:       redisClient,
		asynqClient: asynqClient,
		runs:        runs,
		defaults:    defaults,
	}
}

// Store exposes the waypoint store to the worker
func (s *GenerationService) Store() *store.Store {
	return s.store
}

// Runs exposes the run registry to the worker
func (s *GenerationService) Runs() *RunRegistry {
	return s.runs
}

// StartRun registers the request's waypoints and queues one orchestration
// run covering all of them.
func (s *GenerationService) StartRun(ctx context.Context, req *model.GenerateStartRequest) (*model.GenerateStartResponse, error) {
	now := time.Now()
	waypointIDs := make([]string, 0, len(req.Waypoints))
	for _, spec := range req.Waypoints {
		s.store.Put(model.Waypoint{
			ID:                spec.ID,
			Azimuth:           spec.Azimuth,
			Elevation:         spec.Elevation,
			Distance:          spec.Distance,
			IsOriginal:        spec.IsOriginal,
			Status:            model.WaypointStatusPending,
			CurrentImageIndex: -1,
		})
		waypointIDs = append(waypointIDs, spec.ID)
	}

	run := &model.Run{
		ID:          uuid.New().String(),
		Status:      model.RunStatusQueued,
		SourceImage: req.SourceImage,
		WaypointIDs: waypointIDs,
		Width:       req.Width,
		Height:      req.Height,
		Concurrency: s.concurrency(req.Concurrency),
		TokenType:   s.tokenType(req.TokenType),
		Strength:    req.Strength,
		CreatedAt:   now,
	}

	if err := s.enqueueRun(ctx, run); err != nil {
		return nil, err
	}

	return &model.GenerateStartResponse{
		RunID:     run.ID,
		Status:    run.Status,
		Waypoints: len(waypointIDs),
		CreatedAt: now,
	}, nil
}

// RedoWaypoint queues a single-waypoint run. A waypoint already owned by
// a live generation attempt is refused; a successful redo appends a new
// history version instead of overwriting.
func (s *GenerationService) RedoWaypoint(ctx context.Context, waypointID string, req *model.RedoRequest) (*model.RedoResponse, error) {
	wp, err := s.store.Get(waypointID)
	if err != nil {
		return nil, err
	}
	if wp.Status == model.WaypointStatusGenerating {
		return nil, store.ErrAlreadyGenerating
	}

	now := time.Now()
	run := &model.Run{
		ID:          uuid.New().String(),
		Status:      model.RunStatusQueued,
		SourceImage: req.SourceImage,
		WaypointIDs: []string{waypointID},
		Width:       req.Width,
		Height:      req.Height,
		Concurrency: 1,
		TokenType:   s.tokenType(req.TokenType),
		Strength:    req.Strength,
		CreatedAt:   now,
	}

	if err := s.enqueueRun(ctx, run); err != nil {
		return nil, err
	}

	return &model.RedoResponse{
		RunID:      run.ID,
		WaypointID: waypointID,
		Status:     run.Status,
		CreatedAt:  now,
	}, nil
}

// GetRunStatus returns the run record plus the live waypoint states
func (s *GenerationService) GetRunStatus(ctx context.Context, runID string) (*model.RunStatusResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &model.RunStatusResponse{
		RunID:       run.ID,
		Status:      run.Status,
		Error:       run.Error,
		Waypoints:   s.store.List(run.WaypointIDs),
		Results:     run.Results,
		CreatedAt:   run.CreatedAt,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}, nil
}

// CancelRun stops a queued or running run locally. Remote jobs already
// submitted keep running on the backend; their events are discarded and
// the affected waypoints drop back to pending.
func (s *GenerationService) CancelRun(ctx context.Context, runID string) (*model.CancelRunResponse, error) {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == model.RunStatusSucceeded || run.Status == model.RunStatusFailed || run.Status == model.RunStatusCanceled {
		return nil, fmt.Errorf("run already completed")
	}

	s.runs.Cancel(runID)

	run.Status = model.RunStatusCanceled
	now := time.Now()
	run.CompletedAt = &now
	if err := s.saveRun(ctx, run); err != nil {
		return nil, err
	}

	return &model.CancelRunResponse{
		Success: true,
		RunID:   runID,
		Status:  model.RunStatusCanceled,
	}, nil
}

// GetWaypoint returns one waypoint's current state
func (s *GenerationService) GetWaypoint(waypointID string) (model.Waypoint, error) {
	return s.store.Get(waypointID)
}

// SelectPreviousVersion moves a waypoint's current image one version back
func (s *GenerationService) SelectPreviousVersion(waypointID string) (model.Waypoint, error) {
	return s.store.SelectPreviousVersion(waypointID)
}

// SelectNextVersion moves a waypoint's current image one version forward
func (s *GenerationService) SelectNextVersion(waypointID string) (model.Waypoint, error) {
	return s.store.SelectNextVersion(waypointID)
}

// ToggleOriginal flips a waypoint between generated output and the
// unmodified source image
func (s *GenerationService) ToggleOriginal(waypointID string, req *model.ToggleOriginalRequest) (model.Waypoint, error) {
	return s.store.SetOriginal(waypointID, req.IsOriginal, req.SourceImage)
}

// MarkRunRunning records that the worker picked up the run
func (s *GenerationService) MarkRunRunning(ctx context.Context, runID string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != model.RunStatusQueued {
		return nil
	}
	run.Status = model.RunStatusRunning
	now := time.Now()
	run.StartedAt = &now
	return s.saveRun(ctx, run)
}

// CompleteRun records the run's per-waypoint results. The run succeeds as
// a whole even when individual waypoints failed; their outcome lives in
// the results map and the waypoint states.
func (s *GenerationService) CompleteRun(ctx context.Context, runID string, results map[string]string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	run.Status = model.RunStatusSucceeded
	run.Results = results
	now := time.Now()
	run.CompletedAt = &now
	return s.saveRun(ctx, run)
}

// FailRun marks the whole run failed (run-level interruption)
func (s *GenerationService) FailRun(ctx context.Context, runID, errMsg string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	run.Status = model.RunStatusFailed
	run.Error = &errMsg
	now := time.Now()
	run.CompletedAt = &now
	return s.saveRun(ctx, run)
}

// MarkRunCanceled records a cancellation observed by the worker
func (s *GenerationService) MarkRunCanceled(ctx context.Context, runID string) error {
	run, err := s.getRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status == model.RunStatusCanceled {
		return nil
	}
	run.Status = model.RunStatusCanceled
	now := time.Now()
	run.CompletedAt = &now
	return s.saveRun(ctx, run)
}

// Helper methods

func (s *GenerationService) enqueueRun(ctx context.Context, run *model.Run) error {
	if err := s.saveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	task, err := newGenerateTask(run)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	// No automatic retries: a failed waypoint is retried only by an
	// explicit user redo.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("generate"),
		asynq.MaxRetry(0),
		asynq.Retention(runRetention),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (s *GenerationService) concurrency(requested int) int {
	if requested > 0 {
		return requested
	}
	if s.defaults.Concurrency > 0 {
		return s.defaults.Concurrency
	}
	return 4
}

func (s *GenerationService) tokenType(requested model.TokenType) model.TokenType {
	if requested == "" {
		return model.TokenTypeStandard
	}
	return requested
}

func (s *GenerationService) saveRun(ctx context.Context, run *model.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("run:%s", run.ID), data, runRetention).Err()
}

func (s *GenerationService) getRun(ctx context.Context, runID string) (*model.Run, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("run:%s", runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run not found")
		}
		return nil, err
	}

	var run model.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}

	return &run, nil
}

func newGenerateTask(run *model.Run) (*asynq.Task, error) {
	payload := model.GenerateRunPayload{
		SourceImage: run.SourceImage,
		WaypointIDs: run.WaypointIDs,
		Width:       run.Width,
		Height:      run.Height,
		Concurrency: run.Concurrency,
		TokenType:   run.TokenType,
		Strength:    run.Strength,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	taskPayload := map[string]interface{}{
		"runId":   run.ID,
		"payload": json.RawMessage(payloadBytes),
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}
