package dispatch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"omnisearch/internal/domain"
)

// ShortcutLookup resolves a bang code ("w" in "!w cats") to a backend id.
type ShortcutLookup func(code string) (backendID string, ok bool)

// ShortcutHook rewrites "!code terms" queries to target a single backend.
// An unknown code passes through untouched so literal bangs still search.
type ShortcutHook struct {
	Lookup ShortcutLookup
}

func (h *ShortcutHook) Name() string  { return "shortcuts" }
func (h *ShortcutHook) Priority() int { return 10 }

func (h *ShortcutHook) Before(q domain.Query) (domain.PreOutcome, error) {
	text := strings.TrimSpace(q.Text)
	if !strings.HasPrefix(text, "!") {
		return domain.PreOutcome{}, nil
	}

	code, rest, _ := strings.Cut(text[1:], " ")
	if code == "" {
		return domain.PreOutcome{}, nil
	}
	id, ok := h.Lookup(code)
	if !ok {
		return domain.PreOutcome{}, nil
	}

	rewritten := q.WithText(strings.TrimSpace(rest)).WithBackends(id)
	return domain.PreOutcome{Query: &rewritten}, nil
}

// SanitizeHook normalizes query whitespace and caps runaway input length.
type SanitizeHook struct {
	MaxLen int // 0 uses the default
}

const defaultMaxQueryLen = 512

func (h *SanitizeHook) Name() string  { return "sanitize" }
func (h *SanitizeHook) Priority() int { return 0 }

func (h *SanitizeHook) Before(q domain.Query) (domain.PreOutcome, error) {
	maxLen := h.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxQueryLen
	}

	text := q.Normalized()
	if len(text) > maxLen {
		// Cut on a rune boundary so a multi-byte character at the cap is
		// dropped whole rather than split into invalid UTF-8.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = strings.TrimRight(text[:cut], " ")
	}
	if text == q.Text {
		return domain.PreOutcome{}, nil
	}
	rewritten := q.WithText(text)
	return domain.PreOutcome{Query: &rewritten}, nil
}

// HostBlockHook drops merged results whose URL host matches a configured
// blocklist entry, by exact or subdomain suffix match.
type HostBlockHook struct {
	Hosts []string
}

func (h *HostBlockHook) Name() string  { return "hostblock" }
func (h *HostBlockHook) Priority() int { return 10 }

func (h *HostBlockHook) After(page domain.ResultPage) (domain.ResultPage, error) {
	if len(h.Hosts) == 0 {
		return page, nil
	}

	kept := page.Results[:0:0]
	for _, r := range page.Results {
		if h.blocked(r.Common().URL) {
			continue
		}
		kept = append(kept, r)
	}
	page.Results = kept
	return page, nil
}

func (h *HostBlockHook) blocked(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, b := range h.Hosts {
		b = strings.ToLower(b)
		if host == b || strings.HasSuffix(host, "."+b) {
			return true
		}
	}
	return false
}

// SuggestionTrimHook removes suggestions and corrections that only repeat
// the query itself.
type SuggestionTrimHook struct{}

func (h *SuggestionTrimHook) Name() string  { return "dedupehints" }
func (h *SuggestionTrimHook) Priority() int { return 20 }

func (h *SuggestionTrimHook) After(page domain.ResultPage) (domain.ResultPage, error) {
	query := strings.ToLower(strings.TrimSpace(page.Query))

	trim := func(in []string) []string {
		out := in[:0:0]
		seen := map[string]bool{}
		for _, s := range in {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || key == query || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
		return out
	}

	page.Suggestions = trim(page.Suggestions)
	page.Corrections = trim(page.Corrections)
	return page, nil
}
