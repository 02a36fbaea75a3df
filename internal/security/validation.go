// Package security implements inbound message validation for the chat
// engine. This is a defense-in-depth layer against markup injection,
// not content moderation.
package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxContentLength is the maximum accepted message length in Unicode
// code points, measured after trimming surrounding whitespace.
const MaxContentLength = 10_000

// Validation errors. Checks are applied in declaration order and the
// first failure wins.
var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message exceeds maximum length")
	ErrUnsafeContent  = errors.New("message contains unsafe content")
)

// unsafePatterns match embedded script openers, javascript: URIs,
// inline event-handler assignments, and eval-style calls.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script\b`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
}

// ValidateContent checks a user message before it enters a conversation.
// Pure function of its input; no side effects.
func ValidateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return ErrMessageTooLong
	}
	for _, p := range unsafePatterns {
		if p.MatchString(trimmed) {
			return ErrUnsafeContent
		}
	}
	return nil
}

// Reason maps a validation error to its wire-level reason string.
// Returns "" for nil and for non-validation errors.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyMessage):
		return "empty"
	case errors.Is(err, ErrMessageTooLong):
		return "too long"
	case errors.Is(err, ErrUnsafeContent):
		return "unsafe content"
	}
	return ""
}
