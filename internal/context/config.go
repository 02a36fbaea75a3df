// Package ctxwindow decides which subset of a conversation's turns is
// sent to the completion provider: it pins the system instruction,
// keeps a recency window, and enforces hard caps on turn count and
// estimated tokens. The authoritative history is never mutated; only
// the outbound copy is trimmed.
package ctxwindow

// Window holds the trimming policy knobs.
type Window struct {
	// MaxTokens is the hard cap on the total estimated tokens of an
	// outbound payload.
	MaxTokens int

	// MaxMessages is the hard cap on non-system turns before trimming
	// kicks in.
	MaxMessages int

	// KeepRecent is the number of most-recent non-system turns retained
	// when trimming.
	KeepRecent int

	// SummarizeAt is the fraction of MaxMessages beyond which
	// NeedsSummarization reports true.
	SummarizeAt float64
}

// withDefaults returns a copy of w with zero-valued fields replaced by
// the reference policy constants.
func (w Window) withDefaults() Window {
	if w.MaxTokens == 0 {
		w.MaxTokens = 4000
	}
	if w.MaxMessages == 0 {
		w.MaxMessages = 30
	}
	if w.KeepRecent == 0 {
		w.KeepRecent = 10
	}
	if w.SummarizeAt == 0 {
		w.SummarizeAt = 0.8
	}
	return w
}
