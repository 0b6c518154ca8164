package models

import "time"

// RawRecord is one parsed CSV row keyed by normalized header name.
// Values are trimmed; a header with no cell on this row is absent.
type RawRecord map[string]string

// Get returns the value for the first key present in r.
func (r RawRecord) Get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v
		}
	}
	return ""
}

type PropertyStatus string

const (
	PropertyStatusActive PropertyStatus = "Active"
	PropertyStatusSold   PropertyStatus = "Sold"
	PropertyStatusDraft  PropertyStatus = "Draft"
)

// PropertyRecord is the canonical property document stored in the
// properties collection. ID is derived from PropertyURL.
//
// Bedrooms, Bathrooms and Garages are nil when the source value was not
// parseable; a nil field never overwrites a stored value.
type PropertyRecord struct {
	ID           string         `json:"id"`
	AgentID      string         `json:"agentId"`
	PropertyURL  string         `json:"propertyUrl"`
	ImageURL     string         `json:"imageUrl"`
	Title        string         `json:"title"`
	Address      string         `json:"address"`
	Suburb       string         `json:"suburb"`
	Description  string         `json:"description"`
	Price        int64          `json:"price"`
	Bedrooms     *int           `json:"bedrooms,omitempty"`
	Bathrooms    *float64       `json:"bathrooms,omitempty"`
	Garages      *int           `json:"garages,omitempty"`
	Size         string         `json:"size"`
	Source       string         `json:"source"`
	Status       PropertyStatus `json:"status"`
	IsAIEnabled  bool           `json:"isAiEnabled"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastEditedBy string         `json:"lastEditedBy"`
}

// MergeInto overlays r onto existing: every field of r overwrites, except
// nil optional numerics and an AgentID that is already set on existing.
func (r *PropertyRecord) MergeInto(existing *PropertyRecord) *PropertyRecord {
	merged := *r
	if existing == nil {
		return &merged
	}
	if existing.AgentID != "" {
		merged.AgentID = existing.AgentID
	}
	if merged.Bedrooms == nil {
		merged.Bedrooms = existing.Bedrooms
	}
	if merged.Bathrooms == nil {
		merged.Bathrooms = existing.Bathrooms
	}
	if merged.Garages == nil {
		merged.Garages = existing.Garages
	}
	return &merged
}
