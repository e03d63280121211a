package collect

import (
	"testing"

	"omnisearch/internal/domain"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https folds to http", "https://Example.com/Page", "http://example.com/Page"},
		{"www stripped", "http://www.example.com/a", "http://example.com/a"},
		{"default port stripped", "https://example.com:443/a", "http://example.com/a"},
		{"trailing slash stripped", "http://example.com/a/", "http://example.com/a"},
		{"root keeps slash", "http://example.com", "http://example.com/"},
		{"tracking params removed", "http://example.com/a?utm_source=x&id=7", "http://example.com/a?id=7"},
		{"all params tracking", "http://example.com/a?utm_source=x&fbclid=y", "http://example.com/a"},
		{"query sorted", "http://example.com/a?b=2&a=1", "http://example.com/a?a=1&b=2"},
		{"fragment dropped", "http://example.com/a#section", "http://example.com/a"},
		{"relative url rejected", "/just/a/path", ""},
		{"garbage rejected", "::::", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFingerprintWebEquivalence(t *testing.T) {
	a := &domain.WebResult{Meta: domain.Meta{Title: "Go", URL: "https://go.dev/doc/?utm_source=x"}}
	b := &domain.WebResult{Meta: domain.Meta{Title: "The Go docs", URL: "http://www.go.dev/doc"}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("equivalent URLs should share a fingerprint: %q vs %q", Fingerprint(a), Fingerprint(b))
	}
}

func TestFingerprintContentKey(t *testing.T) {
	a := &domain.Answer{Meta: domain.Meta{Title: "Speed  of Light"}, Text: "299792458 m/s"}
	b := &domain.Answer{Meta: domain.Meta{Title: "speed of light"}, Text: "299792458  M/S"}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("same normalized answer should share a fingerprint")
	}

	c := &domain.Answer{Meta: domain.Meta{Title: "speed of light"}, Text: "fast"}
	if Fingerprint(a) == Fingerprint(c) {
		t.Error("different answer text must not collide")
	}
}

func TestFingerprintKindsDistinct(t *testing.T) {
	a := &domain.Answer{Meta: domain.Meta{Title: "π"}, Text: "3.14159"}
	s := &domain.Suggestion{Meta: domain.Meta{Title: "π"}}
	if Fingerprint(a) == Fingerprint(s) {
		t.Error("different kinds with equal titles must not merge")
	}
}

func TestFingerprintStructuredOrderInsensitive(t *testing.T) {
	a := &domain.Structured{Meta: domain.Meta{Title: "Vienna"}, Fields: []domain.KV{
		{Key: "Temp", Value: "21C"}, {Key: "Wind", Value: "12km/h"},
	}}
	b := &domain.Structured{Meta: domain.Meta{Title: "Vienna"}, Fields: []domain.KV{
		{Key: "Wind", Value: "12km/h"}, {Key: "Temp", Value: "21C"},
	}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Error("field order must not change the fingerprint")
	}
}
