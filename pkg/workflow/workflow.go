// Package workflow defines the conversation stage state machine.
//
// The transition table is the single source of truth for legal stage
// progressions; callers reject any transition the table does not list
// before mutating session state.
package workflow

import "fmt"

// Stage is one phase of the conversation-driven workflow.
type Stage string

const (
	// StageGreeting opens the conversation.
	StageGreeting Stage = "PROVIDE_GREETING"
	// StageAskClarifyingQuestions gathers missing detail about the request.
	StageAskClarifyingQuestions Stage = "ASK_CLARIFYING_QUESTIONS"
	// StageCreateConfirmationPlan proposes a plan for user approval.
	StageCreateConfirmationPlan Stage = "CREATE_CONFIRMATION_PLAN"
	// StageGenerateStrawman produces the first full outline.
	StageGenerateStrawman Stage = "GENERATE_STRAWMAN"
	// StageRefineStrawman revises the outline per user feedback.
	StageRefineStrawman Stage = "REFINE_STRAWMAN"
	// StageContentGeneration enriches the accepted outline with text.
	StageContentGeneration Stage = "CONTENT_GENERATION"
	// StageLayoutGeneration is reserved for a future layout-tuning phase.
	// It has no transitions and is never entered.
	StageLayoutGeneration Stage = "LAYOUT_GENERATION"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid reports whether s is a known stage value.
func (s Stage) IsValid() bool {
	switch s {
	case StageGreeting, StageAskClarifyingQuestions, StageCreateConfirmationPlan,
		StageGenerateStrawman, StageRefineStrawman, StageContentGeneration,
		StageLayoutGeneration:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the stage has no outgoing transitions.
func (s Stage) IsTerminal() bool {
	return len(stageTransitions[s]) == 0
}

// stageTransitions is the canonical transition table.
//
//nolint:gochecknoglobals // Single source of truth for the state machine
var stageTransitions = map[Stage][]Stage{
	StageGreeting: {
		StageAskClarifyingQuestions,
	},
	StageAskClarifyingQuestions: {
		StageCreateConfirmationPlan,
	},
	StageCreateConfirmationPlan: {
		StageGenerateStrawman,
		StageAskClarifyingQuestions, // plan rejected: gather more detail
		StageCreateConfirmationPlan, // parameter change: re-plan in place
	},
	StageGenerateStrawman: {
		StageRefineStrawman,
		StageContentGeneration,
	},
	StageRefineStrawman: {
		StageRefineStrawman, // repeated refinement rounds
		StageContentGeneration,
	},
	StageContentGeneration: {}, // terminal
}

// NextStages returns the allowed target stages from the given stage.
// The returned slice is a copy; callers may mutate it freely.
func NextStages(from Stage) []Stage {
	targets := stageTransitions[from]
	out := make([]Stage, len(targets))
	copy(out, targets)
	return out
}

// ValidateTransition reports whether the from → to transition is legal.
func ValidateTransition(from, to Stage) bool {
	for _, allowed := range stageTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports an attempted transition outside the table.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid stage transition: %s -> %s", e.From, e.To)
}

// Transition validates and returns the target stage, or an
// InvalidTransitionError without mutating anything.
func Transition(from, to Stage) (Stage, error) {
	if !ValidateTransition(from, to) {
		return from, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}
