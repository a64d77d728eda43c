package generation

import (
	"context"
	"sync"

	"github.com/orbitshot/api/internal/model"
)

// Orchestrator drives one run's waypoints through a bounded pool of
// pull-loop workers. A fixed batch split would leave slots idle after a
// fast completion, so workers share a single FIFO queue and refill their
// slot the moment an outcome lands, success or failure alike. Worst-case
// run time is then bounded by the slowest job, not by a failing one.
type Orchestrator struct {
	gen *Generator
}

func NewOrchestrator(backend Backend) *Orchestrator {
	return &Orchestrator{gen: NewGenerator(backend)}
}

// GenerateAll runs every waypoint to a terminal per-run outcome and
// returns the full outcome map. Completion order across waypoints is
// whatever the backend produces; the only ordering guarantee is within
// one waypoint's own event stream.
//
// When ctx is canceled mid-run, in-flight generators stop listening to
// their jobs and remaining queued waypoints are marked canceled;
// OnAllComplete does not fire for a canceled run.
func (o *Orchestrator) GenerateAll(ctx context.Context, sourceImage string, waypoints []model.Waypoint, dims Dimensions, opts Options, cb Callbacks) map[string]Outcome {
	results := make(map[string]Outcome, len(waypoints))
	if len(waypoints) == 0 {
		if cb.OnAllComplete != nil {
			cb.OnAllComplete(results)
		}
		return results
	}

	queue := make(chan model.Waypoint, len(waypoints))
	for _, wp := range waypoints {
		queue <- wp
	}
	close(queue)

	workers := opts.concurrency()
	if workers > len(waypoints) {
		workers = len(waypoints)
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for wp := range queue {
				if ctx.Err() != nil {
					mu.Lock()
					results[wp.ID] = Outcome{WaypointID: wp.ID, Canceled: true, Err: ctx.Err()}
					mu.Unlock()
					continue
				}
				out := o.gen.Generate(ctx, sourceImage, wp, dims, opts, cb)
				mu.Lock()
				results[wp.ID] = out
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ctx.Err() == nil && cb.OnAllComplete != nil {
		cb.OnAllComplete(results)
	}
	return results
}
