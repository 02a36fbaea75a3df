package ctxwindow

import "github.com/parley-chat/parley/pkg/turn"

// TokenEstimator assigns an approximate cost in model tokens to a turn.
type TokenEstimator interface {
	Estimate(t turn.Turn) int
}

// TurnEstimator approximates token counts from content length: content
// bytes divided by a characters-per-token ratio, rounded up, plus a
// fixed per-turn overhead for role and metadata framing.
//
// This is a deliberately crude, model-agnostic heuristic — not a
// tokenizer. Swapping in an exact tokenizer for a specific provider
// does not change the Trimmer's contract.
type TurnEstimator struct {
	CharsPerToken int
	TurnOverhead  int
}

// NewTurnEstimator creates a TurnEstimator with the reference policy:
// 4 characters per token, 10 tokens of per-turn overhead. Non-positive
// arguments fall back to those defaults.
func NewTurnEstimator(charsPerToken, overhead int) *TurnEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	if overhead <= 0 {
		overhead = 10
	}
	return &TurnEstimator{CharsPerToken: charsPerToken, TurnOverhead: overhead}
}

// Estimate returns ceil(len(content)/CharsPerToken) + TurnOverhead.
func (e *TurnEstimator) Estimate(t turn.Turn) int {
	n := len(t.Content)
	tokens := (n + e.CharsPerToken - 1) / e.CharsPerToken
	return tokens + e.TurnOverhead
}

// EstimateTurns returns the total estimated tokens for a turn sequence.
func EstimateTurns(estimator TokenEstimator, turns []turn.Turn) int {
	total := 0
	for i := range turns {
		total += estimator.Estimate(turns[i])
	}
	return total
}
