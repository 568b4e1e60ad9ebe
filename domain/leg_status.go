package domain

import "time"

// TransportSummary is the task-level view computed from its legs.
type TransportSummary struct {
	Status      TransportState `json:"transport_status"`
	CompletedAt *time.Time     `json:"transporte_concluido_em,omitempty"`
}

// Summary returns the transport status currently stored on the task.
func (t *Task) Summary() TransportSummary {
	if t == nil {
		return TransportSummary{Status: TransportPending}
	}
	status := t.TransportStatus
	if status == "" {
		status = TransportPending
	}
	return TransportSummary{Status: status, CompletedAt: cloneTime(t.TransportCompletedAt)}
}

// AggregateLegs reduces a leg list to the task's transport status. An empty
// list is pending. The completion time is stamped with now when the task
// enters the completed state, kept from previous while it stays there, and
// cleared when any leg is pending again.
func AggregateLegs(legs []Leg, previous TransportSummary, now time.Time) TransportSummary {
	if len(legs) == 0 {
		return TransportSummary{Status: TransportPending}
	}
	for _, leg := range legs {
		if !leg.IsCompleted() {
			return TransportSummary{Status: TransportPending}
		}
	}

	completedAt := now
	if previous.Status == TransportCompleted && previous.CompletedAt != nil {
		completedAt = *previous.CompletedAt
	}
	return TransportSummary{Status: TransportCompleted, CompletedAt: &completedAt}
}
