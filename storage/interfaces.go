package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"agent-optimus/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("storage: not found")

// PropertyStore is the properties collection.
type PropertyStore interface {
	// CommitBatch merge-upserts every record in one atomic write. Either all
	// records are applied or none are.
	CommitBatch(ctx context.Context, records []*models.PropertyRecord) error
	GetProperty(ctx context.Context, id string) (*models.PropertyRecord, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.PropertyRecord, error)
}

// LeadStore is the leads collection owned by the conversation bot.
type LeadStore interface {
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	// AddIntelTags unions tags into the lead's tag set. Tags already present
	// are ignored and nothing is ever removed.
	AddIntelTags(ctx context.Context, id string, tags []string) error
}

// UserStore is the user-profile collection.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	UserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	ActivateTrial(ctx context.Context, id string, at time.Time) error
}

// Bucket is blob storage for uploaded files.
type Bucket interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// FoldByID collapses records sharing an ID into one, applying later records
// over earlier ones with merge semantics. First-seen order is kept.
func FoldByID(records []*models.PropertyRecord) []*models.PropertyRecord {
	index := make(map[string]int, len(records))
	out := make([]*models.PropertyRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r.MergeInto(out[i])
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
