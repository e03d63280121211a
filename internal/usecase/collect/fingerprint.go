package collect

import (
	"net/url"
	"sort"
	"strings"

	"omnisearch/internal/domain"
)

// trackingParams are query parameters stripped during URL normalization so
// the same page reached through different campaigns fingerprints equal.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"msclkid":      true,
	"ref":          true,
	"ref_src":      true,
	"source":       true,
	"spm":          true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_medium":   true,
	"utm_source":   true,
	"utm_term":     true,
	"yclid":        true,
}

// Fingerprint computes the dedup key for one result. Web-like variants key
// on the normalized URL; URL-less variants key on kind plus normalized
// title and payload so two backends answering the same question merge.
func Fingerprint(r domain.Result) string {
	m := r.Common()
	if m.URL != "" {
		if u := NormalizeURL(m.URL); u != "" {
			return "url:" + u
		}
	}
	return contentKey(r)
}

// NormalizeURL canonicalizes a URL for comparison: lowercased scheme and
// host, https folded onto http, default port and trailing slash stripped,
// tracking parameters removed, remaining query sorted, fragment dropped.
// Returns "" when the input does not parse as an absolute URL.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "https" {
		scheme = "http"
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	query := ""
	if u.RawQuery != "" {
		kept := url.Values{}
		for key, vals := range u.Query() {
			if trackingParams[strings.ToLower(key)] {
				continue
			}
			for _, v := range vals {
				kept.Add(key, v)
			}
		}
		if len(kept) > 0 {
			// Encode sorts keys, making the query order-insensitive.
			query = "?" + kept.Encode()
		}
	}

	return scheme + "://" + host + path + query
}

// contentKey builds a similarity key for results without a usable URL.
func contentKey(r domain.Result) string {
	m := r.Common()
	parts := []string{string(r.Kind()), normalizeText(m.Title)}

	switch v := r.(type) {
	case *domain.Answer:
		parts = append(parts, normalizeText(v.Text))
	case *domain.KeyValue:
		parts = append(parts, pairsKey(v.Pairs))
	case *domain.Structured:
		parts = append(parts, pairsKey(v.Fields))
	case *domain.CodeSnippet:
		parts = append(parts, normalizeText(v.Code))
	}

	return "content:" + strings.Join(parts, "|")
}

func pairsKey(pairs []domain.KV) string {
	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, normalizeText(p.Key)+"="+normalizeText(p.Value))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
