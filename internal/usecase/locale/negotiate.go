// Package locale maps a user-requested language/region onto the closest
// locale a backend declares support for. Resolution is a pure function over
// static descriptor traits; it touches no network or mutable state.
package locale

import (
	"golang.org/x/text/language"

	"omnisearch/internal/domain"
)

// Resolve picks the backend-specific locale for a requested BCP 47 tag.
// Matching prefers an exact declared tag, then a language-only fallback
// (de-AT matches a declared de), then the backend's declared default.
// ok is false only when nothing usable exists and the backend marks locale
// matching as mandatory; such a backend is ineligible for the request.
func Resolve(traits domain.Traits, requested string) (loc string, ok bool) {
	if len(traits.Locales) == 0 {
		// Locale-agnostic backend: pass the default through, or nothing.
		if traits.DefaultLocale != "" {
			return traits.DefaultLocale, true
		}
		return "", !traits.LocaleRequired
	}

	if requested != "" {
		if matched, found := match(traits.Locales, requested); found {
			return matched, true
		}
	}

	if traits.DefaultLocale != "" {
		return traits.DefaultLocale, true
	}
	return "", !traits.LocaleRequired
}

// match runs the declared set through the x/text matcher and returns the
// declared tag string (not the canonicalized match) so adapters receive the
// exact code they advertised.
func match(declared []string, requested string) (string, bool) {
	req, err := language.Parse(requested)
	if err != nil {
		return "", false
	}

	tags := make([]language.Tag, 0, len(declared))
	valid := make([]string, 0, len(declared))
	for _, d := range declared {
		tag, err := language.Parse(d)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		valid = append(valid, d)
	}
	if len(tags) == 0 {
		return "", false
	}

	matcher := language.NewMatcher(tags)
	_, idx, conf := matcher.Match(req)
	if conf == language.No {
		return "", false
	}
	return valid[idx], true
}
