package engine

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"omnisearch/internal/domain"
)

const wikipediaPageSize = 10

// Wikipedia queries the MediaWiki search API. The endpoint host is derived
// from the negotiated locale, so "de-AT" searches de.wikipedia.org.
type Wikipedia struct {
	desc    domain.Descriptor
	baseURL string // test override; empty derives the host from the locale
}

// NewWikipedia creates the adapter.
func NewWikipedia(desc domain.Descriptor, baseURL string) *Wikipedia {
	desc.Kind = domain.KindOnline
	desc.Traits.Paging = true
	if desc.Traits.DefaultLocale == "" {
		desc.Traits.DefaultLocale = "en"
	}
	return &Wikipedia{desc: desc, baseURL: baseURL}
}

func (w *Wikipedia) Descriptor() domain.Descriptor { return w.desc }

func (w *Wikipedia) BuildRequest(q domain.Query, loc string) (*domain.RequestSpec, error) {
	lang := localeLanguage(loc)
	base := w.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.wikipedia.org", lang)
	}

	// The API echoes requestid verbatim, which lets the parser recover
	// the language without keeping per-request state on the adapter.
	params := url.Values{
		"action":    {"query"},
		"list":      {"search"},
		"format":    {"json"},
		"srsearch":  {q.Normalized()},
		"srlimit":   {strconv.Itoa(wikipediaPageSize)},
		"srinfo":    {"suggestion"},
		"srprop":    {"snippet"},
		"requestid": {lang},
	}
	if off := (q.Page() - 1) * wikipediaPageSize; off > 0 {
		params.Set("sroffset", strconv.Itoa(off))
	}
	return &domain.RequestSpec{
		Method: "GET",
		URL:    base + "/w/api.php?" + params.Encode(),
	}, nil
}

type wikiResponse struct {
	RequestID string `json:"requestid"`
	Query     struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func (w *Wikipedia) ParseResponse(raw *domain.RawResponse) ([]domain.Result, error) {
	var body wikiResponse
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return nil, domain.WrapOp("wikipedia", domain.ErrParse)
	}

	lang := body.RequestID
	if lang == "" {
		lang = "en"
	}

	var out []domain.Result
	for _, hit := range body.Query.Search {
		out = append(out, &domain.WebResult{
			Meta: domain.Meta{
				Title: hit.Title,
				URL: fmt.Sprintf("https://%s.wikipedia.org/wiki/%s",
					lang, url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_"))),
			},
			Snippet: htmlTagPattern.ReplaceAllString(hit.Snippet, ""),
		})
	}
	if s := body.Query.SearchInfo.Suggestion; s != "" {
		out = append(out, &domain.Correction{Meta: domain.Meta{Title: s}})
	}
	return out, nil
}

// localeLanguage reduces a BCP 47 tag to its language part.
func localeLanguage(loc string) string {
	if loc == "" {
		return "en"
	}
	lang, _, _ := strings.Cut(loc, "-")
	return strings.ToLower(lang)
}
