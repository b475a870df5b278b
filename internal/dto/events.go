package dto

import "github.com/uimetrics/uima-go-api/internal/models"

// Event type and action identifiers used on the websocket wire.
const (
	EventTypeResult   = "result"
	EventTypeComplete = "complete"
	EventTypeError    = "error"

	ActionPushResult          = "pushResult"
	ActionPushComplete        = "pushComplete"
	ActionPushValidationError = "pushValidationError"
	ActionPushGeneralError    = "pushGeneralError"
)

// ResultEntry is one value of a metric result event. Value is a JSON number
// for int/float results and a Base64 string for image results; an empty
// string marks a best-effort view that could not be produced.
type ResultEntry struct {
	ResultID string             `json:"resultId"`
	Index    int                `json:"index"`
	Value    models.ResultValue `json:"value"`
	Judgment string             `json:"judgment,omitempty"`
}

// MetricResultEvent delivers one metric's complete ordered values. A failed
// task carries no results and a populated failure block instead.
type MetricResultEvent struct {
	Type     string              `json:"type"`
	Action   string              `json:"action"`
	MetricID string              `json:"metricId"`
	Results  []ResultEntry       `json:"results"`
	Failure  *models.TaskFailure `json:"failure,omitempty"`
}

// SessionCompleteEvent terminates a successful session, emitted exactly once.
type SessionCompleteEvent struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// ValidationErrorEvent rejects the whole request before any task starts.
type ValidationErrorEvent struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// GeneralErrorEvent aborts a session on an infrastructure-level failure.
type GeneralErrorEvent struct {
	Type    string `json:"type"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

// NewMetricResultEvent assembles the wire event for one task outcome using
// the metric's declared result descriptors.
func NewMetricResultEvent(outcome models.TaskOutcome, desc models.MetricDescriptor) MetricResultEvent {
	event := MetricResultEvent{
		Type:     EventTypeResult,
		Action:   ActionPushResult,
		MetricID: outcome.MetricID,
		Results:  []ResultEntry{},
		Failure:  outcome.Failure,
	}

	for i, value := range outcome.Values {
		entry := ResultEntry{Index: i, Value: value}
		if i < len(desc.Results) {
			entry.ResultID = desc.Results[i].ID
		}
		if i < len(outcome.Judgments) {
			entry.Judgment = outcome.Judgments[i]
		}
		event.Results = append(event.Results, entry)
	}

	return event
}

// NewSessionCompleteEvent builds the terminal success event.
func NewSessionCompleteEvent() SessionCompleteEvent {
	return SessionCompleteEvent{Type: EventTypeComplete, Action: ActionPushComplete}
}

// NewValidationErrorEvent builds a request-level rejection event.
func NewValidationErrorEvent(message string) ValidationErrorEvent {
	return ValidationErrorEvent{Type: EventTypeError, Action: ActionPushValidationError, Message: message}
}

// NewGeneralErrorEvent builds an infrastructure failure event.
func NewGeneralErrorEvent(message string) GeneralErrorEvent {
	return GeneralErrorEvent{Type: EventTypeError, Action: ActionPushGeneralError, Message: message}
}
