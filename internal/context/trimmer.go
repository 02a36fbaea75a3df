package ctxwindow

import "github.com/parley-chat/parley/pkg/turn"

// Trimmer selects the turn subset sent to the completion provider.
// All methods are pure functions over their input.
type Trimmer struct {
	estimator TokenEstimator
	window    Window
}

// NewTrimmer creates a Trimmer. A nil estimator gets the reference
// TurnEstimator.
func NewTrimmer(estimator TokenEstimator, w Window) *Trimmer {
	if estimator == nil {
		estimator = NewTurnEstimator(0, 0)
	}
	return &Trimmer{
		estimator: estimator,
		window:    w.withDefaults(),
	}
}

// Trim returns the subset of turns to send to the provider.
//
// When the input is within budget (non-system count ≤ MaxMessages and
// total estimated tokens ≤ MaxTokens) the input is returned unchanged.
// Otherwise the result is the pinned system turn (the first system
// turn, if any) followed by the last KeepRecent non-system turns, with
// the oldest of those dropped one at a time while the payload exceeds
// MaxTokens — down to a floor of system + 1 turn. A single oversized
// turn can therefore still exceed the budget; that is accepted rather
// than splitting turns.
func (tr *Trimmer) Trim(turns []turn.Turn) []turn.Turn {
	system, rest := splitPinned(turns)

	if len(rest) <= tr.window.MaxMessages &&
		EstimateTurns(tr.estimator, turns) <= tr.window.MaxTokens {
		return turns
	}

	recent := rest
	if len(recent) > tr.window.KeepRecent {
		recent = recent[len(recent)-tr.window.KeepRecent:]
	}

	out := make([]turn.Turn, 0, len(system)+len(recent))
	out = append(out, system...)
	out = append(out, recent...)

	// Drop the oldest kept turn until under budget; never below
	// system + 1 other turn.
	for len(out) > 2 && EstimateTurns(tr.estimator, out) > tr.window.MaxTokens {
		if len(system) > 0 {
			out = append(out[:1], out[2:]...)
		} else {
			out = out[1:]
		}
	}

	return out
}

// NeedsSummarization reports whether the non-system turn count exceeds
// the summarization threshold (80% of MaxMessages in the reference
// policy). It is a hook for an optional summarization collaborator and
// performs no summarization itself.
func (tr *Trimmer) NeedsSummarization(turns []turn.Turn) bool {
	_, rest := splitPinned(turns)
	return float64(len(rest)) > tr.window.SummarizeAt*float64(tr.window.MaxMessages)
}

// splitPinned separates at most one pinned system turn (the first turn
// with the system role) from the remaining turns.
func splitPinned(turns []turn.Turn) (system, rest []turn.Turn) {
	pinned := -1
	for i := range turns {
		if turns[i].Role == turn.RoleSystem {
			pinned = i
			break
		}
	}
	if pinned < 0 {
		return nil, turns
	}

	rest = make([]turn.Turn, 0, len(turns)-1)
	rest = append(rest, turns[:pinned]...)
	rest = append(rest, turns[pinned+1:]...)
	return turns[pinned : pinned+1], rest
}
