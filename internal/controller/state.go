package controller

import (
	"fmt"

	"github.com/studyplan/studyplan/internal/plan"
)

// Phase is the lifecycle position of the most recent generate attempt.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
	PhaseFailure
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	case PhaseFailure:
		return "failure"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Kind classifies a failed attempt.
type Kind string

const (
	// KindValidation is a local rejection; the service was never contacted.
	KindValidation Kind = "validation"
	// KindUnreachable means no HTTP response was received.
	KindUnreachable Kind = "unreachable"
	// KindServerRejected covers non-2xx statuses and unusable 2xx bodies.
	KindServerRejected Kind = "server_rejected"
)

// Failure describes why the latest attempt did not produce a plan.
type Failure struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Malformed is set when the service rejected the payload itself (422).
	Malformed bool
	// InvalidBody is set when a 2xx response could not be decoded as a plan.
	InvalidBody bool
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Input is the raw, unvalidated form the user submitted.
type Input struct {
	Subjects    string
	Hours       string
	DaysPerWeek string
}

// State is an immutable snapshot of the controller.
type State struct {
	Phase Phase
	// Seq is the sequence number of the most recently initiated generate.
	Seq     uint64
	Model   *plan.Model
	Failure *Failure
	// SuccessFlag is raised on success and drops on its own after the
	// configured delay, or immediately on the next generate.
	SuccessFlag bool
}

// Submitting reports whether a request is in flight.
func (s State) Submitting() bool { return s.Phase == PhaseSubmitting }

// HasPlan reports whether a plan is available for rendering or export.
func (s State) HasPlan() bool { return s.Model != nil }
