package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"direct sentinel", ErrParse, CodeParse},
		{"wrapped sentinel", fmt.Errorf("duckduckgo: %w", ErrRateLimit), CodeRateLimit},
		{"domain error", NewDomainError("Executor.Run", ErrTimeout, "budget exhausted"), CodeTimeout},
		{"unknown", errors.New("something else"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCodeOf(tt.err); got != tt.want {
				t.Errorf("ErrorCodeOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	de := NewDomainError("Registry.Get", ErrBackendNotFound, "wikipedia")
	if !errors.Is(de, ErrBackendNotFound) {
		t.Error("DomainError should unwrap to its sentinel")
	}
	want := "Registry.Get: wikipedia: backend not found"
	if de.Error() != want {
		t.Errorf("Error() = %q, want %q", de.Error(), want)
	}
}

func TestWrapOpNil(t *testing.T) {
	if WrapOp("op", nil) != nil {
		t.Error("WrapOp(nil) should be nil")
	}
	err := WrapOp("Cache.Get", ErrCacheStore)
	if !errors.Is(err, ErrCacheStore) {
		t.Error("WrapOp should preserve the sentinel")
	}
}

func TestIsBackendFailure(t *testing.T) {
	for _, err := range []error{ErrTimeout, ErrNetwork, ErrParse, ErrRateLimit, ErrBlocked} {
		if !IsBackendFailure(err) {
			t.Errorf("IsBackendFailure(%v) = false, want true", err)
		}
	}
	if IsBackendFailure(ErrCollector) {
		t.Error("collector corruption is not a backend failure")
	}
}
