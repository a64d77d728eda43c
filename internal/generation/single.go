package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/orbitshot/api/internal/model"
)

// Generator runs one waypoint's generation attempt end to end: submit,
// attach a progress stream, reconcile completion signals, resolve once.
type Generator struct {
	backend Backend
}

func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend}
}

// Generate resolves one waypoint to a terminal Outcome. It never returns
// a Go error: submission rejections, in-band error events, transport
// failures and protocol violations all become failure outcomes so the
// pool can always move on to the next queued waypoint.
//
// An original waypoint short-circuits to the source image but still walks
// the same callback sequence (start, progress 100, complete), so callers
// cannot tell it apart from a real generation except by latency.
func (g *Generator) Generate(ctx context.Context, sourceImage string, wp model.Waypoint, dims Dimensions, opts Options, cb Callbacks) Outcome {
	if err := cb.start(wp.ID); err != nil {
		// The store refused the start (already generating). The waypoint
		// belongs to another live attempt, so no fail callback either.
		return Outcome{WaypointID: wp.ID, Err: err}
	}

	if wp.IsOriginal {
		cb.progress(wp.ID, 100)
		cb.complete(wp.ID, sourceImage)
		return Outcome{WaypointID: wp.ID, ImageURL: sourceImage}
	}

	jobID, err := g.backend.Submit(ctx, SubmitRequest{
		Image:     sourceImage,
		Azimuth:   wp.Azimuth,
		Elevation: wp.Elevation,
		Distance:  wp.Distance,
		Width:     dims.Width,
		Height:    dims.Height,
		TokenType: opts.TokenType,
		Strength:  opts.Strength,
	})
	if err != nil {
		msg := fmt.Sprintf("generation request rejected: %v", err)
		cb.fail(wp.ID, msg)
		return Outcome{WaypointID: wp.ID, Err: errors.New(msg)}
	}

	var (
		result   string
		resolved = make(chan Outcome, 1)
		once     sync.Once
	)
	resolve := func(out Outcome) {
		once.Do(func() { resolved <- out })
	}

	onEvent := func(ev model.JobEvent) {
		switch ev.Kind {
		case model.EventConnected:
			// informational only
		case model.EventProgress:
			cb.progress(wp.ID, ev.ProgressPct())
		case model.EventJobCompleted, model.EventCompleted:
			result = Reconcile(result, ev)
			if result != "" {
				resolve(Outcome{WaypointID: wp.ID, ImageURL: result})
			} else if ev.Kind == model.EventCompleted {
				// Terminal event with no usable result anywhere: a
				// backend contract violation, treated as failure.
				resolve(Outcome{WaypointID: wp.ID, Err: errors.New("generation completed but returned no result")})
			}
		case model.EventError:
			msg := ev.Message
			if msg == "" {
				msg = "generation failed"
			}
			resolve(Outcome{WaypointID: wp.ID, Err: errors.New(msg)})
		}
	}
	onTransportError := func(err error) {
		resolve(Outcome{WaypointID: wp.ID, Err: fmt.Errorf("progress stream failed: %v", err)})
	}

	stream := OpenStream(g.backend, jobID, onEvent, onTransportError)
	defer stream.Close()

	select {
	case out := <-resolved:
		if out.Err != nil {
			cb.fail(wp.ID, out.Err.Error())
		} else {
			cb.complete(wp.ID, out.ImageURL)
		}
		return out
	case <-ctx.Done():
		// Local cancel: stop listening, leave the remote job running.
		// The caller resets the waypoint; no fail callback here.
		return Outcome{WaypointID: wp.ID, Canceled: true, Err: ctx.Err()}
	}
}
