// Package enrich fills property fields a CSV export left empty by reading
// the public listing page.
package enrich

import (
	"context"
	"time"

	"agent-optimus/metrics"
	"agent-optimus/models"
	"agent-optimus/utils"
)

// PageDetails is what a listing page offers back to a record.
type PageDetails struct {
	Title       string `json:"title"`
	ImageURL    string `json:"image"`
	Description string `json:"description"`
}

// Fetcher reads one listing page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*PageDetails, error)
}

// Options tunes how hard listing sites are hit.
type Options struct {
	MaxConcurrency int
	RateLimit      time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// ListingEnricher visits the listing page of every record missing its title,
// image or description and fills only the empty fields.
type ListingEnricher struct {
	fetcher Fetcher
	opts    Options
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

func NewListingEnricher(fetcher Fetcher, opts Options, logger *utils.Logger) *ListingEnricher {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &ListingEnricher{
		fetcher: fetcher,
		opts:    opts,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Enrich blocks until every page has been tried. Failures are logged and
// leave the record as it was.
func (e *ListingEnricher) Enrich(ctx context.Context, records []*models.PropertyRecord) {
	byURL := make(map[string][]*models.PropertyRecord)
	var order []string
	seen := utils.NewKeySet()
	for _, r := range records {
		if !needsEnrichment(r) {
			continue
		}
		if seen.Add(r.PropertyURL) {
			order = append(order, r.PropertyURL)
		}
		byURL[r.PropertyURL] = append(byURL[r.PropertyURL], r)
	}
	if len(order) == 0 {
		return
	}

	e.logger.Info("[enrich] Visiting %d listing pages", len(order))
	pool := utils.NewWorkerPool(e.opts.MaxConcurrency, e.opts.RateLimit)
	for _, url := range order {
		url := url
		targets := byURL[url]
		pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			var details *PageDetails
			err := e.retry.Do(ctx, "listing-page", func() error {
				var err error
				details, err = e.fetcher.Fetch(ctx, url)
				return err
			})
			if err != nil {
				metrics.EnrichedListings.WithLabelValues("error").Inc()
				e.logger.Warn("[enrich] %s: %v", url, err)
				return
			}
			metrics.EnrichedListings.WithLabelValues("ok").Inc()
			for _, r := range targets {
				apply(r, details)
			}
		})
	}
	pool.Wait()
}

func needsEnrichment(r *models.PropertyRecord) bool {
	return r.PropertyURL != "" && (r.ImageURL == "" || r.Title == "" || r.Description == "")
}

func apply(r *models.PropertyRecord, d *PageDetails) {
	if d == nil {
		return
	}
	if r.ImageURL == "" {
		r.ImageURL = d.ImageURL
	}
	if r.Title == "" {
		r.Title = d.Title
	}
	if r.Description == "" {
		r.Description = d.Description
	}
}
