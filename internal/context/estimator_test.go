package ctxwindow_test

import (
	"strings"
	"testing"

	ctxwindow "github.com/parley-chat/parley/internal/context"
	"github.com/parley-chat/parley/pkg/turn"
)

// Compile-time interface guard: TurnEstimator must satisfy TokenEstimator.
var _ ctxwindow.TokenEstimator = (*ctxwindow.TurnEstimator)(nil)

func TestNewTurnEstimator_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		charsPerToken int
		overhead      int
		wantRatio     int
		wantOverhead  int
	}{
		{name: "explicit", charsPerToken: 3, overhead: 5, wantRatio: 3, wantOverhead: 5},
		{name: "zero_defaults", charsPerToken: 0, overhead: 0, wantRatio: 4, wantOverhead: 10},
		{name: "negative_defaults", charsPerToken: -1, overhead: -2, wantRatio: 4, wantOverhead: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			est := ctxwindow.NewTurnEstimator(tt.charsPerToken, tt.overhead)
			if est.CharsPerToken != tt.wantRatio || est.TurnOverhead != tt.wantOverhead {
				t.Errorf("NewTurnEstimator(%d, %d) = {%d, %d}, want {%d, %d}",
					tt.charsPerToken, tt.overhead,
					est.CharsPerToken, est.TurnOverhead,
					tt.wantRatio, tt.wantOverhead)
			}
		})
	}
}

func TestTurnEstimator_Estimate(t *testing.T) {
	t.Parallel()

	est := ctxwindow.NewTurnEstimator(0, 0)

	tests := []struct {
		name    string
		content string
		want    int
	}{
		// ceil(len/4) + 10
		{name: "empty", content: "", want: 10},
		{name: "one_char", content: "a", want: 11},
		{name: "exact_multiple", content: "abcd", want: 11},
		{name: "five_chars", content: "hello", want: 12},
		{name: "hundred_chars", content: strings.Repeat("x", 100), want: 35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := est.Estimate(turn.Turn{Role: turn.RoleUser, Content: tt.content})
			if got != tt.want {
				t.Errorf("Estimate(%d chars) = %d, want %d", len(tt.content), got, tt.want)
			}
		})
	}
}

func TestEstimateTurns(t *testing.T) {
	t.Parallel()

	est := ctxwindow.NewTurnEstimator(0, 0)

	turns := []turn.Turn{
		{Role: turn.RoleSystem, Content: "be helpful"},   // ceil(10/4)+10 = 13
		{Role: turn.RoleUser, Content: "hi"},             // ceil(2/4)+10 = 11
		{Role: turn.RoleAssistant, Content: "hello you"}, // ceil(9/4)+10 = 13
	}

	if got, want := ctxwindow.EstimateTurns(est, turns), 37; got != want {
		t.Errorf("EstimateTurns = %d, want %d", got, want)
	}
	if got := ctxwindow.EstimateTurns(est, nil); got != 0 {
		t.Errorf("EstimateTurns(nil) = %d, want 0", got)
	}
}
