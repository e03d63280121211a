package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"omnisearch/internal/domain"
)

// FailureKind is the classified cause of one failed backend run. Every kind
// counts toward suspension; parse failures are logged distinctly because
// they usually mean the provider changed its response format.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureNetwork   FailureKind = "network"
	FailureParse     FailureKind = "parse"
	FailureRateLimit FailureKind = "rate_limit"
	FailureBlocked   FailureKind = "blocked"
)

// Classifier turns adapter and transport errors into failure kinds.
type Classifier struct{}

// NewClassifier creates a new classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify inspects an error from one backend run. The ctx lets a run that
// was cancelled by the deadline classify as a timeout even when the
// underlying error says something vaguer.
func (c *Classifier) Classify(ctx context.Context, err error) FailureKind {
	if ctx != nil && ctx.Err() != nil {
		return FailureTimeout
	}

	// Sentinels first: adapters wrap their own failures in these.
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, domain.ErrRateLimit):
		return FailureRateLimit
	case errors.Is(err, domain.ErrBlocked):
		return FailureBlocked
	case errors.Is(err, domain.ErrParse):
		return FailureParse
	case errors.Is(err, domain.ErrNetwork):
		return FailureNetwork
	}

	if status, ok := statusOf(err); ok {
		return classifyStatus(status)
	}

	return classifyString(err.Error())
}

// HTTPStatusError carries an HTTP status from the transport into
// classification.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body != "" {
		return "unexpected status " + strconv.Itoa(e.Status) + ": " + e.Body
	}
	return "unexpected status " + strconv.Itoa(e.Status)
}

func statusOf(err error) (int, bool) {
	var se *HTTPStatusError
	if errors.As(err, &se) {
		return se.Status, true
	}
	return 0, false
}

func classifyStatus(status int) FailureKind {
	switch {
	case status == 429:
		return FailureRateLimit
	case status == 403 || status == 451:
		return FailureBlocked
	case status >= 500:
		return FailureNetwork
	default:
		return FailureParse
	}
}

// classifyString is the fallback for untyped transport errors.
func classifyString(msg string) FailureKind {
	lower := strings.ToLower(msg)

	for _, p := range []string{"rate limit", "too many requests"} {
		if strings.Contains(lower, p) {
			return FailureRateLimit
		}
	}
	for _, p := range []string{"captcha", "forbidden", "blocked"} {
		if strings.Contains(lower, p) {
			return FailureBlocked
		}
	}
	for _, p := range []string{"timeout", "deadline exceeded", "timed out"} {
		if strings.Contains(lower, p) {
			return FailureTimeout
		}
	}
	for _, p := range []string{
		"connection refused", "no such host", "connection reset",
		"broken pipe", "eof", "tls",
	} {
		if strings.Contains(lower, p) {
			return FailureNetwork
		}
	}
	return FailureParse
}
