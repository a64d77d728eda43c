package generation

import "github.com/orbitshot/api/internal/model"

// Reconcile applies the first-wins completion policy for one job.
//
// The backend may signal completion twice: an authoritative job-completed
// event and a run-level completed event that sometimes repeats the same
// result, sometimes carries it as a list, and sometimes carries nothing.
// The earliest result captured is final; later signals never override it.
func Reconcile(prior string, ev model.JobEvent) string {
	if prior != "" {
		return prior
	}
	switch ev.Kind {
	case model.EventJobCompleted:
		return ev.ResultURL
	case model.EventCompleted:
		if ev.ResultURL != "" {
			return ev.ResultURL
		}
		if len(ev.ResultURLs) > 0 {
			return ev.ResultURLs[0]
		}
	}
	return ""
}
