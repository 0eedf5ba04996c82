// Package errors defines the typed error taxonomy used across the review
// engine. Every failure that crosses a package boundary is classified so
// callers can decide between aborting, retrying, and degrading.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind categorizes a failure for control-flow decisions.
type Kind int

const (
	// KindConfig means a missing credential or an invalid provider/model
	// pairing. Fatal; nothing runs.
	KindConfig Kind = iota
	// KindHistoryUnavailable means the repository log could not be read.
	// Retried once, then the review proceeds without history context.
	KindHistoryUnavailable
	// KindProviderThrottled is a rate-limit signal from the provider.
	// Retried with exponential backoff.
	KindProviderThrottled
	// KindProviderRejected covers auth failures, quota exhaustion, and
	// malformed requests. Never retried.
	KindProviderRejected
	// KindGenerationFailed means retries were exhausted during finding
	// generation. The run terminates with no fabricated findings.
	KindGenerationFailed
	// KindReflectionAmbiguous marks a malformed self-reflection scoring
	// response. Not fatal; unscored findings are kept.
	KindReflectionAmbiguous
	// KindFeedbackStore is a feedback log write failure. Surfaced to the
	// caller, never aborts an in-progress review.
	KindFeedbackStore
	// KindInternal is an unexpected internal state.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindHistoryUnavailable:
		return "history_unavailable"
	case KindProviderThrottled:
		return "provider_throttled"
	case KindProviderRejected:
		return "provider_rejected"
	case KindGenerationFailed:
		return "generation_failed"
	case KindReflectionAmbiguous:
		return "reflection_ambiguous"
	case KindFeedbackStore:
		return "feedback_store"
	default:
		return "internal"
	}
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so callers can use errors.Is against sentinel values
// built with New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification to an existing error. Returns nil for a
// nil cause.
func Wrap(err error, kind Kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// KindOf returns the classification of err, or KindInternal for untyped
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether err is a throttling signal that the retry
// policy may back off and retry.
func IsRetryable(err error) bool {
	return IsKind(err, KindProviderThrottled)
}

// ConfigErrorf builds a fatal configuration error. The message must name
// the missing or invalid setting.
func ConfigErrorf(format string, args ...any) *Error {
	return Newf(KindConfig, format, args...)
}

// Throttled wraps a provider rate-limit signal.
func Throttled(err error, message string) *Error {
	return Wrap(err, KindProviderThrottled, message)
}

// Rejected wraps a non-retryable provider failure.
func Rejected(err error, message string) *Error {
	return Wrap(err, KindProviderRejected, message)
}

const maxErrorBody = 512

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`AIza[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]{8,}`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)\s*[=:]\s*[^\s&"']+`),
}

// Sanitize truncates a provider error body and strips credential-shaped
// substrings so secrets never reach logs, statistics, or surfaced errors.
func Sanitize(body string) string {
	for _, re := range secretPatterns {
		body = re.ReplaceAllString(body, "[REDACTED]")
	}
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "...(truncated)"
	}
	return body
}
