package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"agent-optimus/models"
	"agent-optimus/utils"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	pages map[string]*PageDetails
	fail  map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*PageDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.fail[url] > 0 {
		f.fail[url]--
		return nil, errors.New("net::ERR_TIMED_OUT")
	}
	if d, ok := f.pages[url]; ok {
		return d, nil
	}
	return nil, errors.New("404")
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		calls: map[string]int{},
		fail:  map[string]int{},
		pages: map[string]*PageDetails{
			"https://a": {Title: "Page A", ImageURL: "https://img/a.jpg", Description: "Sunny flat"},
			"https://b": {Title: "Page B", ImageURL: "https://img/b.jpg"},
		},
	}
}

func opts() Options {
	return Options{MaxConcurrency: 2, MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestEnrichFillsOnlyEmptyFields(t *testing.T) {
	f := newFake()
	e := NewListingEnricher(f, opts(), utils.NopLogger())

	recs := []*models.PropertyRecord{
		{PropertyURL: "https://a", Title: "From CSV"},
		{PropertyURL: "https://b", Title: "B", ImageURL: "https://img/csv.jpg", Description: "set"},
	}
	e.Enrich(context.Background(), recs)

	assert.Equal(t, "From CSV", recs[0].Title)
	assert.Equal(t, "https://img/a.jpg", recs[0].ImageURL)
	assert.Equal(t, "Sunny flat", recs[0].Description)
	assert.Equal(t, 0, f.calls["https://b"], "complete records are not fetched")
}

func TestEnrichFetchesEachURLOnce(t *testing.T) {
	f := newFake()
	e := NewListingEnricher(f, opts(), utils.NopLogger())

	recs := []*models.PropertyRecord{{PropertyURL: "https://a"}, {PropertyURL: "https://a"}}
	e.Enrich(context.Background(), recs)

	assert.Equal(t, 1, f.calls["https://a"])
	assert.Equal(t, "Page A", recs[0].Title)
	assert.Equal(t, "Page A", recs[1].Title)
}

func TestEnrichRetriesThenGivesUp(t *testing.T) {
	f := newFake()
	f.fail["https://a"] = 1
	e := NewListingEnricher(f, opts(), utils.NopLogger())

	recs := []*models.PropertyRecord{{PropertyURL: "https://a"}, {PropertyURL: "https://missing"}}
	e.Enrich(context.Background(), recs)

	assert.Equal(t, 2, f.calls["https://a"])
	assert.Equal(t, "Page A", recs[0].Title)
	assert.Equal(t, 2, f.calls["https://missing"])
	assert.Empty(t, recs[1].Title)
}
