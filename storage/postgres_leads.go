package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"agent-optimus/models"
)

// LeadChangesChannel is the NOTIFY channel fired by the leads trigger.
// Payload: {"id": "<lead id>", "before_len": <messages before the update>}.
const LeadChangesChannel = "lead_changes"

// GetLead loads a lead with its full conversation.
func (ps *PostgresStore) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var (
		l            models.Lead
		conversation []byte
	)
	err := ps.db.QueryRowContext(ctx, `
		SELECT id, agent_id, name, phone, conversation, intel_tags, updated_at
		FROM leads WHERE id = $1
	`, id).Scan(&l.ID, &l.AgentID, &l.Name, &l.Phone, &conversation, pq.Array(&l.IntelTags), &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get lead: %w", err)
	}
	if err := json.Unmarshal(conversation, &l.Conversation); err != nil {
		return nil, fmt.Errorf("postgres: decode conversation of lead %s: %w", id, err)
	}
	return &l, nil
}

// AddIntelTags unions tags into intel_tags. The row is left alone when every
// tag is already present, so no change notification fires.
func (ps *PostgresStore) AddIntelTags(ctx context.Context, id string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	res, err := ps.db.ExecContext(ctx, `
		UPDATE leads
		SET intel_tags = ARRAY(SELECT DISTINCT t FROM unnest(intel_tags || $2::text[]) AS t ORDER BY t),
		    updated_at = NOW()
		WHERE id = $1 AND NOT ($2::text[] <@ intel_tags)
	`, id, pq.Array(tags))
	if err != nil {
		return fmt.Errorf("postgres: add intel tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: add intel tags: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := ps.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("postgres: add intel tags: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// SaveLead inserts or replaces a lead. The conversation bot owns leads; this
// exists for seeding and operational tooling.
func (ps *PostgresStore) SaveLead(ctx context.Context, l *models.Lead) error {
	conversation, err := json.Marshal(l.Conversation)
	if err != nil {
		return fmt.Errorf("postgres: encode conversation: %w", err)
	}
	tags := l.IntelTags
	if tags == nil {
		tags = []string{}
	}
	_, err = ps.db.ExecContext(ctx, `
		INSERT INTO leads (id, agent_id, name, phone, conversation, intel_tags, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			agent_id     = EXCLUDED.agent_id,
			name         = EXCLUDED.name,
			phone        = EXCLUDED.phone,
			conversation = EXCLUDED.conversation,
			intel_tags   = EXCLUDED.intel_tags,
			updated_at   = EXCLUDED.updated_at
	`, l.ID, l.AgentID, l.Name, l.Phone, conversation, pq.Array(tags), time.Now())
	if err != nil {
		return fmt.Errorf("postgres: save lead: %w", err)
	}
	return nil
}
