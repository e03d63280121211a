package collect

import (
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnisearch/internal/domain"
)

func web(title, url, snippet string) *domain.WebResult {
	return &domain.WebResult{
		Meta:    domain.Meta{Title: title, URL: url},
		Snippet: snippet,
	}
}

func TestAddUnregisteredBackend(t *testing.T) {
	c := New(0)
	err := c.Add("ghost", []domain.Result{web("x", "http://x.test/", "")})
	require.Error(t, err)
	assert.Equal(t, domain.CodeCollector, domain.ErrorCodeOf(err))
}

func TestRegisterDuplicate(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("a", 1))
	err := c.Register("a", 1)
	require.Error(t, err)
	assert.Equal(t, domain.CodeDuplicate, domain.ErrorCodeOf(err))
}

func TestPositionsStamped(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("ddg", 1))
	require.NoError(t, c.Add("ddg", []domain.Result{
		web("first", "http://a.test/1", ""),
		web("second", "http://a.test/2", ""),
	}))
	page := c.Finalize("q")
	require.Len(t, page.Results, 2)
	assert.Equal(t, 1, page.Results[0].Positions["ddg"])
	assert.Equal(t, 2, page.Results[1].Positions["ddg"])
}

func TestDeduplicationIdempotence(t *testing.T) {
	// Two backends returning the identical list must merge to one item per
	// URL with both backends contributing.
	c := New(0)
	require.NoError(t, c.Register("a", 1))
	require.NoError(t, c.Register("b", 1))

	list := func() []domain.Result {
		return []domain.Result{
			web("Go", "https://go.dev/", "The Go programming language"),
			web("Docs", "https://go.dev/doc/", ""),
		}
	}
	require.NoError(t, c.Add("a", list()))
	require.NoError(t, c.Add("b", list()))

	page := c.Finalize("go")
	require.Len(t, page.Results, 2)
	for _, r := range page.Results {
		assert.Equal(t, []string{"a", "b"}, r.Backends)
	}
}

func TestMergePrefersRicherFields(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("bare", 1))
	require.NoError(t, c.Register("rich", 1))

	require.NoError(t, c.Add("bare", []domain.Result{web("Go", "https://go.dev/", "")}))
	require.NoError(t, c.Add("rich", []domain.Result{web("Go", "https://go.dev/", "The Go programming language")}))

	page := c.Finalize("go")
	require.Len(t, page.Results, 1)
	wr := page.Results[0].Result.(*domain.WebResult)
	assert.Equal(t, "The Go programming language", wr.Snippet)
	assert.Equal(t, []string{"bare", "rich"}, page.Results[0].Backends)
}

func TestCorroborationRaisesScore(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("a", 1))
	require.NoError(t, c.Register("b", 1))

	// Both backends agree on /shared at rank 1; /only appears once.
	require.NoError(t, c.Add("a", []domain.Result{web("Shared", "http://x.test/shared", "")}))
	require.NoError(t, c.Add("b", []domain.Result{
		web("Shared", "http://x.test/shared", ""),
		web("Only", "http://x.test/only", ""),
	}))

	page := c.Finalize("q")
	require.Len(t, page.Results, 2)
	assert.Equal(t, "http://x.test/shared", page.Results[0].Common().URL)
	assert.Greater(t, page.Results[0].Score, page.Results[1].Score)
}

func TestWeightInfluencesOrder(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("heavy", 3))
	require.NoError(t, c.Register("light", 1))

	require.NoError(t, c.Add("heavy", []domain.Result{web("H", "http://h.test/", "")}))
	require.NoError(t, c.Add("light", []domain.Result{web("L", "http://l.test/", "")}))

	page := c.Finalize("q")
	require.Len(t, page.Results, 2)
	assert.Equal(t, "H", page.Results[0].Common().Title)
}

func TestEarlierRankScoresHigher(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("a", 1))
	require.NoError(t, c.Add("a", []domain.Result{
		web("First", "http://x.test/1", ""),
		web("Second", "http://x.test/2", ""),
	}))
	page := c.Finalize("q")
	require.Len(t, page.Results, 2)
	assert.Greater(t, page.Results[0].Score, page.Results[1].Score)
}

func TestSideChannelSplit(t *testing.T) {
	c := New(0)
	require.NoError(t, c.Register("a", 1))
	require.NoError(t, c.Add("a", []domain.Result{
		web("Result", "http://x.test/", ""),
		&domain.Answer{Meta: domain.Meta{Title: "42"}, Text: "forty-two"},
		&domain.Suggestion{Meta: domain.Meta{Title: "go concurrency patterns"}},
		&domain.Correction{Meta: domain.Meta{Title: "golang"}},
		&domain.Structured{Meta: domain.Meta{Title: "Weather"}, Fields: []domain.KV{{Key: "t", Value: "21"}}},
	}))

	page := c.Finalize("q")
	assert.Len(t, page.Results, 1)
	assert.Len(t, page.Answers, 1)
	assert.Equal(t, []string{"go concurrency patterns"}, page.Suggestions)
	assert.Equal(t, []string{"golang"}, page.Corrections)
	assert.Len(t, page.Structured, 1)
}

// TestMergeDeterminism feeds the same per-backend buckets through many
// random concurrent interleavings and requires identical output every time.
func TestMergeDeterminism(t *testing.T) {
	backendLists := map[string][]func() domain.Result{}
	for _, b := range []string{"alpha", "beta", "gamma", "delta"} {
		b := b
		var fns []func() domain.Result
		for i := 0; i < 8; i++ {
			i := i
			fns = append(fns, func() domain.Result {
				return web(
					fmt.Sprintf("title %d", i),
					fmt.Sprintf("http://site-%d.test/page", i%5), // forced overlap across backends
					fmt.Sprintf("snippet from %s", b),
				)
			})
		}
		backendLists[b] = fns
	}

	run := func(seed int64) []string {
		c := New(0)
		for id := range backendLists {
			if err := c.Register(id, 1); err != nil {
				t.Fatal(err)
			}
		}

		// Shuffle launch order and add in concurrent goroutines.
		ids := make([]string, 0, len(backendLists))
		for id := range backendLists {
			ids = append(ids, id)
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				var results []domain.Result
				for _, fn := range backendLists[id] {
					results = append(results, fn())
				}
				if err := c.Add(id, results); err != nil {
					t.Error(err)
				}
			}(id)
		}
		wg.Wait()

		page := c.Finalize("determinism")
		keys := make([]string, 0, len(page.Results))
		for _, r := range page.Results {
			keys = append(keys, fmt.Sprintf("%s|%.6f|%v", r.Common().URL, r.Score, r.Backends))
		}
		return keys
	}

	want := run(0)
	for seed := int64(1); seed < 10; seed++ {
		got := run(seed)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("ordering varies with interleaving (seed %d):\nwant %v\ngot  %v", seed, want, got)
		}
	}
}
