package booking

import "github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/model"

// Completed and cancelled are terminal and have no entry.
var transitions = map[model.Status][]model.Status{
	model.StatusScheduled:  {model.StatusStarted, model.StatusCancelled},
	model.StatusStarted:    {model.StatusWaiting, model.StatusInProgress, model.StatusCompleted, model.StatusCancelled},
	model.StatusWaiting:    {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusCompleted, model.StatusWaiting, model.StatusCancelled},
}

// CanTransition reports whether an appointment in from may move to to.
// Repeating the current status is always allowed and re-stamps timestamps.
// Without strict every move between known statuses is accepted.
func CanTransition(from, to model.Status, strict bool) bool {
	if !to.Valid() {
		return false
	}
	if from == to || !strict {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
