package domain

import "time"

// ResultKind tags a result variant. The collector dispatches on the kind
// when merging fields and when splitting primary results from side channels.
type ResultKind string

const (
	KindWeb        ResultKind = "web"
	KindAnswer     ResultKind = "answer"
	KindKeyValue   ResultKind = "keyvalue"
	KindCode       ResultKind = "code"
	KindDocument   ResultKind = "document"
	KindFile       ResultKind = "file"
	KindStructured ResultKind = "structured"
	KindSuggestion ResultKind = "suggestion"
	KindCorrection ResultKind = "correction"
)

// Meta carries the fields common to every result variant. Backend and
// Position are stamped by the executor when the item enters the collector.
type Meta struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Backend  string `json:"backend"`  // emitting backend id
	Position int    `json:"position"` // 1-based rank in the backend's own list
	Template string `json:"template,omitempty"`
}

// Result is one item parsed from a backend response. Implementations are
// immutable once emitted; ownership transfers to the collector.
type Result interface {
	Kind() ResultKind
	Common() *Meta
}

// WebResult is an ordinary link result.
type WebResult struct {
	Meta
	Snippet     string     `json:"snippet,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
}

func (r *WebResult) Kind() ResultKind { return KindWeb }
func (r *WebResult) Common() *Meta    { return &r.Meta }

// Answer is a direct instant answer (definition, conversion, fact).
type Answer struct {
	Meta
	Text string `json:"text"`
}

func (r *Answer) Kind() ResultKind { return KindAnswer }
func (r *Answer) Common() *Meta    { return &r.Meta }

// KV is one ordered key/value pair inside a record or structured answer.
type KV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// KeyValue is a record result rendered as a field table.
type KeyValue struct {
	Meta
	Pairs []KV `json:"pairs"`
}

func (r *KeyValue) Kind() ResultKind { return KindKeyValue }
func (r *KeyValue) Common() *Meta    { return &r.Meta }

// CodeSnippet is a source code excerpt result.
type CodeSnippet struct {
	Meta
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

func (r *CodeSnippet) Kind() ResultKind { return KindCode }
func (r *CodeSnippet) Common() *Meta    { return &r.Meta }

// Document is a paper or publication result.
type Document struct {
	Meta
	Abstract    string     `json:"abstract,omitempty"`
	Authors     []string   `json:"authors,omitempty"`
	DOI         string     `json:"doi,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func (r *Document) Kind() ResultKind { return KindDocument }
func (r *Document) Common() *Meta    { return &r.Meta }

// FileResult is a downloadable file result.
type FileResult struct {
	Meta
	Size       int64  `json:"size,omitempty"`
	MagnetLink string `json:"magnet_link,omitempty"`
	SeedCount  int    `json:"seed_count,omitempty"`
	LeechCount int    `json:"leech_count,omitempty"`
}

func (r *FileResult) Kind() ResultKind { return KindFile }
func (r *FileResult) Common() *Meta    { return &r.Meta }

// Structured is a weather/finance style answer rendered from ordered fields.
type Structured struct {
	Meta
	Fields []KV `json:"fields"`
}

func (r *Structured) Kind() ResultKind { return KindStructured }
func (r *Structured) Common() *Meta    { return &r.Meta }

// Suggestion proposes an alternative query. Title holds the suggestion text.
type Suggestion struct {
	Meta
}

func (r *Suggestion) Kind() ResultKind { return KindSuggestion }
func (r *Suggestion) Common() *Meta    { return &r.Meta }

// Correction proposes a spelling correction. Title holds the corrected text.
type Correction struct {
	Meta
}

func (r *Correction) Kind() ResultKind { return KindCorrection }
func (r *Correction) Common() *Meta    { return &r.Meta }

// SideChannel reports whether the kind belongs in a side list rather than
// the primary ranked results.
func SideChannel(k ResultKind) bool {
	switch k {
	case KindAnswer, KindStructured, KindSuggestion, KindCorrection:
		return true
	default:
		return false
	}
}

// MergedResult is one deduplicated entry of the final ranked set. Result is
// the highest-quality representative among the duplicates; Backends lists
// every contributing backend (never empty).
type MergedResult struct {
	Result    `json:"result"`
	Backends  []string       `json:"backends"`
	Positions map[string]int `json:"positions"` // backend id -> 1-based rank
	Score     float64        `json:"score"`
}

// ResultPage is the merged result set returned to the caller. It is mutated
// only by the collector during one request and read-only afterwards.
type ResultPage struct {
	Query       string         `json:"query"`
	Results     []MergedResult `json:"results"`
	Answers     []Result       `json:"answers,omitempty"`
	Structured  []Result       `json:"structured,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Corrections []string       `json:"corrections,omitempty"`
	Elapsed     time.Duration  `json:"elapsed"`
}
