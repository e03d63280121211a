package engine

import (
	"encoding/json"
	"net/url"

	"omnisearch/internal/domain"
)

const defaultDuckDuckGoURL = "https://api.duckduckgo.com"

// DuckDuckGo queries the instant-answer JSON API. It emits a direct answer
// when the API has one, plus web results from the related topics.
type DuckDuckGo struct {
	desc    domain.Descriptor
	baseURL string
}

// NewDuckDuckGo creates the adapter. An empty baseURL uses the public API.
func NewDuckDuckGo(desc domain.Descriptor, baseURL string) *DuckDuckGo {
	if baseURL == "" {
		baseURL = defaultDuckDuckGoURL
	}
	desc.Kind = domain.KindOnline
	desc.Traits.SafeSearch = true
	return &DuckDuckGo{desc: desc, baseURL: baseURL}
}

func (d *DuckDuckGo) Descriptor() domain.Descriptor { return d.desc }

func (d *DuckDuckGo) BuildRequest(q domain.Query, _ string) (*domain.RequestSpec, error) {
	params := url.Values{
		"q":           {q.Normalized()},
		"format":      {"json"},
		"no_html":     {"1"},
		"no_redirect": {"1"},
	}
	switch q.SafeSearch {
	case domain.SafeSearchStrict:
		params.Set("kp", "1")
	case domain.SafeSearchOff:
		params.Set("kp", "-2")
	}
	return &domain.RequestSpec{
		Method: "GET",
		URL:    d.baseURL + "/?" + params.Encode(),
	}, nil
}

// ddgResponse is the subset of the instant-answer payload we consume.
type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// ddgTopic is either a leaf (FirstURL set) or a named group of leaves.
type ddgTopic struct {
	FirstURL string     `json:"FirstURL"`
	Text     string     `json:"Text"`
	Topics   []ddgTopic `json:"Topics"`
}

func (d *DuckDuckGo) ParseResponse(raw *domain.RawResponse) ([]domain.Result, error) {
	var body ddgResponse
	if err := json.Unmarshal(raw.Body, &body); err != nil {
		return nil, domain.WrapOp("duckduckgo", domain.ErrParse)
	}

	var out []domain.Result
	if body.AbstractText != "" {
		out = append(out, &domain.Answer{
			Meta: domain.Meta{Title: body.Heading, URL: body.AbstractURL},
			Text: body.AbstractText,
		})
	}
	for _, topic := range flattenTopics(body.RelatedTopics) {
		out = append(out, &domain.WebResult{
			Meta:    domain.Meta{Title: topic.Text, URL: topic.FirstURL},
			Snippet: topic.Text,
		})
	}
	return out, nil
}

func flattenTopics(topics []ddgTopic) []ddgTopic {
	var out []ddgTopic
	for _, t := range topics {
		if t.FirstURL != "" {
			out = append(out, t)
			continue
		}
		out = append(out, flattenTopics(t.Topics)...)
	}
	return out
}
