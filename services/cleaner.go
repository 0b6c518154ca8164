package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"agent-optimus/models"
)

var (
	// nonDigitRegexp matches everything a price keeps out: currency, separators, decimals.
	nonDigitRegexp = regexp.MustCompile(`\D+`)
	// leadingIntRegexp captures the integer prefix of a count ("3", "3 beds").
	leadingIntRegexp = regexp.MustCompile(`^[+-]?\d+`)
	// leadingDecimalRegexp captures the decimal prefix of a count ("2.5", "1 bath").
	leadingDecimalRegexp = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)`)
)

// Column keys after header normalization. Where a listing export uses more
// than one spelling, every spelling is listed; the first present wins.
var (
	colPropertyURL = []string{"property_url"}
	colImageURL    = []string{"image_url"}
	colTitle       = []string{"title"}
	colAddress     = []string{"address"}
	colSuburb      = []string{"suburb"}
	colDescription = []string{"description"}
	colPrice       = []string{"price"}
	colBedrooms    = []string{"bedroom", "bedrooms"}
	colBathrooms   = []string{"bath", "bathrooms"}
	colGarages     = []string{"garage", "garages"}
	colSize        = []string{"p24_size", "size"}
)

// Cleaner turns RawRecords into PropertyRecords ready for the batch writer.
type Cleaner struct {
	source string
	editor string
	now    func() time.Time
}

// NewCleaner creates a Cleaner stamping records with the given import
// channel (source) and editor tags.
func NewCleaner(source, editor string) *Cleaner {
	return &Cleaner{source: source, editor: editor, now: time.Now}
}

// Clean converts one row. ok is false when the row has no property URL and
// must be left out of the batch.
func (c *Cleaner) Clean(raw models.RawRecord, agentID string) (rec *models.PropertyRecord, ok bool) {
	url := raw.Get(colPropertyURL...)
	if url == "" {
		return nil, false
	}

	return &models.PropertyRecord{
		ID:           EncodeIdentity(url),
		AgentID:      agentID,
		PropertyURL:  url,
		ImageURL:     raw.Get(colImageURL...),
		Title:        raw.Get(colTitle...),
		Address:      raw.Get(colAddress...),
		Suburb:       raw.Get(colSuburb...),
		Description:  raw.Get(colDescription...),
		Price:        parsePrice(raw.Get(colPrice...)),
		Bedrooms:     parseCount(raw.Get(colBedrooms...)),
		Bathrooms:    parseDecimal(raw.Get(colBathrooms...)),
		Garages:      parseCount(raw.Get(colGarages...)),
		Size:         raw.Get(colSize...),
		Source:       c.source,
		Status:       models.PropertyStatusActive,
		IsAIEnabled:  true,
		CreatedAt:    c.now(),
		LastEditedBy: c.editor,
	}, true
}

// parsePrice keeps only the digits of raw.
// Examples:
//
//	"R 1,500,000" → 1500000
//	"N/A"         → 0
func parsePrice(raw string) int64 {
	digits := nonDigitRegexp.ReplaceAllString(raw, "")
	if digits == "" {
		return 0
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseCount reads the integer prefix of raw; nil when there is none.
func parseCount(raw string) *int {
	match := leadingIntRegexp.FindString(strings.TrimSpace(raw))
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

// parseDecimal reads the decimal prefix of raw; nil when there is none.
func parseDecimal(raw string) *float64 {
	match := leadingDecimalRegexp.FindString(strings.TrimSpace(raw))
	if match == "" {
		return nil
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &f
}
