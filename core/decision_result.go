package core

// DecisionResult is the outcome of a Decide function. Build it with IdempotentDecision,
// SuccessDecision or ErrorDecision only.
type DecisionResult struct {
	Outcome string
	Event   DomainEvent
	Err     error
}

const (
	idempotentOutcome = "idempotent"
	successOutcome    = "success"
	errorOutcome      = "error"
)

// IdempotentDecision means nothing has to change.
func IdempotentDecision() DecisionResult {
	return DecisionResult{Outcome: idempotentOutcome}
}

// SuccessDecision carries the event to append.
func SuccessDecision(event DomainEvent) DecisionResult {
	return DecisionResult{Outcome: successOutcome, Event: event}
}

// ErrorDecision carries a failure event to append and the error to return.
func ErrorDecision(event DomainEvent, err error) DecisionResult {
	return DecisionResult{Outcome: errorOutcome, Event: event, Err: err}
}

func (r DecisionResult) IsIdempotent() bool {
	return r.Outcome == idempotentOutcome
}

func (r DecisionResult) HasEventToAppend() bool {
	return r.Outcome != idempotentOutcome && r.Event != nil
}

// HasError returns the business error of an ErrorDecision, nil otherwise.
func (r DecisionResult) HasError() error {
	if r.Outcome == errorOutcome {
		return r.Err
	}

	return nil
}
