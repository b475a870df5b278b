package models

import "time"

// FailureKind categorises why a single task did not produce values.
type FailureKind string

// Task failure kinds. Failures are isolated to the offending metric and never
// abort sibling tasks.
const (
	FailureInvalidInput FailureKind = "invalid_input"
	FailureComputation  FailureKind = "computation_failure"
	FailureTimeout      FailureKind = "timeout"
)

// TaskState tracks one evaluation task through its lifecycle.
type TaskState int

// Task states.
const (
	TaskPending TaskState = iota
	TaskRunning
	TaskCompleted
)

// TaskFailure describes a failed task outcome.
type TaskFailure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// TaskOutcome is the completion report for one metric within a session.
// Exactly one of Values or Failure is set. Judgments is aligned with Values
// by index; entries are empty for unclassified values.
type TaskOutcome struct {
	MetricID  string        `json:"metricId"`
	Values    []ResultValue `json:"values,omitempty"`
	Judgments []string      `json:"judgments,omitempty"`
	Failure   *TaskFailure  `json:"failure,omitempty"`
	Duration  time.Duration `json:"-"`
	Cached    bool          `json:"-"`
}

// Failed reports whether the task completed with a failure.
func (o TaskOutcome) Failed() bool {
	return o.Failure != nil
}
