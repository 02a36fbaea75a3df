package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/parley-chat/parley/internal/security"
)

func TestValidateContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "plain_text", content: "hello", wantErr: nil},
		{name: "multiline", content: "line one\nline two", wantErr: nil},
		{name: "empty", content: "", wantErr: security.ErrEmptyMessage},
		{name: "whitespace_only", content: "   \n\t  ", wantErr: security.ErrEmptyMessage},
		{name: "at_limit", content: strings.Repeat("a", 10_000), wantErr: nil},
		{name: "over_limit", content: strings.Repeat("a", 10_001), wantErr: security.ErrMessageTooLong},
		{name: "over_limit_after_trim", content: "  " + strings.Repeat("a", 10_001) + "  ", wantErr: security.ErrMessageTooLong},
		{name: "script_tag", content: "<script>evil()</script>", wantErr: security.ErrUnsafeContent},
		{name: "script_tag_mixed_case", content: "<ScRiPt src='x'>", wantErr: security.ErrUnsafeContent},
		{name: "javascript_uri", content: `click <a href="javascript:alert(1)">here</a>`, wantErr: security.ErrUnsafeContent},
		{name: "event_handler", content: `<img src=x onerror=alert(1)>`, wantErr: security.ErrUnsafeContent},
		{name: "event_handler_spaced", content: `<div onclick = "go()">`, wantErr: security.ErrUnsafeContent},
		{name: "eval_call", content: "please run eval(payload)", wantErr: security.ErrUnsafeContent},
		{name: "eval_spaced", content: "eval  (x)", wantErr: security.ErrUnsafeContent},
		{name: "eval_as_word", content: "medieval history is fascinating", wantErr: nil},
		{name: "on_word_without_assign", content: "carry on friends", wantErr: nil},
		{name: "description_of_tag", content: "what does a script element do?", wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := security.ValidateContent(tt.content)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateContent(%q) = %v, want %v", truncate(tt.content), err, tt.wantErr)
			}
		})
	}
}

// First failure wins: an oversized message that also contains unsafe
// content reports the length error.
func TestValidateContent_OrderOfChecks(t *testing.T) {
	t.Parallel()

	content := "<script>" + strings.Repeat("a", 10_001)
	if err := security.ValidateContent(content); !errors.Is(err, security.ErrMessageTooLong) {
		t.Errorf("ValidateContent = %v, want ErrMessageTooLong", err)
	}
}

func TestValidateContent_RuneCounting(t *testing.T) {
	t.Parallel()

	// 10,000 multi-byte runes is exactly at the limit even though the
	// byte length is far larger.
	content := strings.Repeat("é", 10_000)
	if err := security.ValidateContent(content); err != nil {
		t.Errorf("ValidateContent(10k multibyte runes) = %v, want nil", err)
	}
	if err := security.ValidateContent(content + "é"); !errors.Is(err, security.ErrMessageTooLong) {
		t.Error("ValidateContent(10,001 multibyte runes) should exceed the limit")
	}
}

func TestReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "empty", err: security.ErrEmptyMessage, want: "empty"},
		{name: "too_long", err: security.ErrMessageTooLong, want: "too long"},
		{name: "unsafe", err: security.ErrUnsafeContent, want: "unsafe content"},
		{name: "unrelated", err: errors.New("other"), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := security.Reason(tt.err); got != tt.want {
				t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
