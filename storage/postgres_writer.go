package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"agent-optimus/models"
)

const propertyColumns = 18

// PostgresStore persists properties, leads and users to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var (
	_ PropertyStore = (*PostgresStore)(nil)
	_ LeadStore     = (*PostgresStore)(nil)
	_ UserStore     = (*PostgresStore)(nil)
)

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS properties (
			id             TEXT PRIMARY KEY,
			agent_id       TEXT             NOT NULL DEFAULT '',
			property_url   TEXT             NOT NULL,
			image_url      TEXT             NOT NULL DEFAULT '',
			title          TEXT             NOT NULL DEFAULT '',
			address        TEXT             NOT NULL DEFAULT '',
			suburb         TEXT             NOT NULL DEFAULT '',
			description    TEXT             NOT NULL DEFAULT '',
			price          BIGINT           NOT NULL DEFAULT 0,
			bedrooms       INTEGER,
			bathrooms      DOUBLE PRECISION,
			garages        INTEGER,
			size           TEXT             NOT NULL DEFAULT '',
			source         TEXT             NOT NULL DEFAULT '',
			status         TEXT             NOT NULL DEFAULT 'Active',
			is_ai_enabled  BOOLEAN          NOT NULL DEFAULT TRUE,
			created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
			last_edited_by TEXT             NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_properties_agent  ON properties(agent_id);
		CREATE INDEX IF NOT EXISTS idx_properties_suburb ON properties(suburb);
		CREATE INDEX IF NOT EXISTS idx_properties_price  ON properties(price);

		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			email              TEXT        NOT NULL DEFAULT '',
			role               TEXT        NOT NULL DEFAULT 'agent',
			status             TEXT        NOT NULL DEFAULT 'pending',
			token_hash         TEXT        UNIQUE,
			trial_activated_at TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS leads (
			id           TEXT PRIMARY KEY,
			agent_id     TEXT        NOT NULL DEFAULT '',
			name         TEXT        NOT NULL DEFAULT '',
			phone        TEXT        NOT NULL DEFAULT '',
			conversation JSONB       NOT NULL DEFAULT '[]',
			intel_tags   TEXT[]      NOT NULL DEFAULT '{}',
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_leads_agent ON leads(agent_id);

		CREATE OR REPLACE FUNCTION notify_lead_change() RETURNS trigger AS $$
		DECLARE
			before_len INTEGER := 0;
		BEGIN
			IF TG_OP = 'UPDATE' THEN
				before_len := jsonb_array_length(OLD.conversation);
			END IF;
			PERFORM pg_notify('` + LeadChangesChannel + `',
				json_build_object('id', NEW.id, 'before_len', before_len)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS leads_notify_change ON leads;
		CREATE TRIGGER leads_notify_change
			AFTER INSERT OR UPDATE ON leads
			FOR EACH ROW EXECUTE FUNCTION notify_lead_change();
	`)
	return err
}

// Ping checks the database connection.
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// CommitBatch merge-upserts records inside a single transaction.
func (ps *PostgresStore) CommitBatch(ctx context.Context, records []*models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}
	records = FoldByID(records)

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stmtSize = 50
	for i := 0; i < len(records); i += stmtSize {
		end := i + stmtSize
		if end > len(records) {
			end = len(records)
		}
		if err := upsertProperties(ctx, tx, records[i:end]); err != nil {
			return fmt.Errorf("postgres: upsert properties: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func upsertProperties(ctx context.Context, tx *sql.Tx, batch []*models.PropertyRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*propertyColumns)

	for idx, r := range batch {
		placeholders := make([]string, propertyColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", idx*propertyColumns+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.ID, r.AgentID, r.PropertyURL, r.ImageURL, r.Title, r.Address, r.Suburb,
			r.Description, r.Price, r.Bedrooms, r.Bathrooms, r.Garages, r.Size,
			r.Source, string(r.Status), r.IsAIEnabled, r.CreatedAt, r.LastEditedBy)
	}

	query := fmt.Sprintf(`
		INSERT INTO properties (
			id, agent_id, property_url, image_url, title, address, suburb,
			description, price, bedrooms, bathrooms, garages, size,
			source, status, is_ai_enabled, created_at, last_edited_by
		)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			agent_id       = COALESCE(NULLIF(properties.agent_id, ''), EXCLUDED.agent_id),
			property_url   = EXCLUDED.property_url,
			image_url      = EXCLUDED.image_url,
			title          = EXCLUDED.title,
			address        = EXCLUDED.address,
			suburb         = EXCLUDED.suburb,
			description    = EXCLUDED.description,
			price          = EXCLUDED.price,
			bedrooms       = COALESCE(EXCLUDED.bedrooms, properties.bedrooms),
			bathrooms      = COALESCE(EXCLUDED.bathrooms, properties.bathrooms),
			garages        = COALESCE(EXCLUDED.garages, properties.garages),
			size           = EXCLUDED.size,
			source         = EXCLUDED.source,
			status         = EXCLUDED.status,
			is_ai_enabled  = EXCLUDED.is_ai_enabled,
			created_at     = EXCLUDED.created_at,
			last_edited_by = EXCLUDED.last_edited_by
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

const selectProperty = `
	SELECT id, agent_id, property_url, image_url, title, address, suburb,
	       description, price, bedrooms, bathrooms, garages, size,
	       source, status, is_ai_enabled, created_at, last_edited_by
	FROM properties`

// GetProperty loads one property by identity.
func (ps *PostgresStore) GetProperty(ctx context.Context, id string) (*models.PropertyRecord, error) {
	row := ps.db.QueryRowContext(ctx, selectProperty+` WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get property: %w", err)
	}
	return p, nil
}

// ListByAgent retrieves every property owned by agentID.
func (ps *PostgresStore) ListByAgent(ctx context.Context, agentID string) ([]*models.PropertyRecord, error) {
	rows, err := ps.db.QueryContext(ctx, selectProperty+` WHERE agent_id = $1 ORDER BY created_at, id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list properties: %w", err)
	}
	defer rows.Close()

	var out []*models.PropertyRecord
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan property: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*models.PropertyRecord, error) {
	var (
		p         models.PropertyRecord
		status    string
		bedrooms  sql.NullInt64
		bathrooms sql.NullFloat64
		garages   sql.NullInt64
	)
	if err := row.Scan(
		&p.ID, &p.AgentID, &p.PropertyURL, &p.ImageURL, &p.Title, &p.Address, &p.Suburb,
		&p.Description, &p.Price, &bedrooms, &bathrooms, &garages, &p.Size,
		&p.Source, &status, &p.IsAIEnabled, &p.CreatedAt, &p.LastEditedBy,
	); err != nil {
		return nil, err
	}
	p.Status = models.PropertyStatus(status)
	if bedrooms.Valid {
		n := int(bedrooms.Int64)
		p.Bedrooms = &n
	}
	if bathrooms.Valid {
		f := bathrooms.Float64
		p.Bathrooms = &f
	}
	if garages.Valid {
		n := int(garages.Int64)
		p.Garages = &n
	}
	return &p, nil
}
