package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"agent-optimus/models"
)

// LeadChangeFunc observes a lead update after it has been applied.
type LeadChangeFunc func(ctx context.Context, change models.LeadChange)

// MemoryStore is an in-process document store implementing every store
// interface. Lead writes are delivered to observers synchronously, which is
// how local runs and tests drive the reactor without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	properties map[string]*models.PropertyRecord
	leads      map[string]*models.Lead
	users      map[string]*models.User
	tokens     map[string]string
	observers  []LeadChangeFunc

	// BeforeCommit, when set, runs before a batch is applied. A non-nil
	// error aborts the batch untouched.
	BeforeCommit func(records []*models.PropertyRecord) error
}

var (
	_ PropertyStore = (*MemoryStore)(nil)
	_ LeadStore     = (*MemoryStore)(nil)
	_ UserStore     = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		properties: make(map[string]*models.PropertyRecord),
		leads:      make(map[string]*models.Lead),
		users:      make(map[string]*models.User),
		tokens:     make(map[string]string),
	}
}

func (m *MemoryStore) CommitBatch(_ context.Context, records []*models.PropertyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeforeCommit != nil {
		if err := m.BeforeCommit(records); err != nil {
			return err
		}
	}
	for _, r := range FoldByID(records) {
		m.properties[r.ID] = r.MergeInto(m.properties[r.ID])
	}
	return nil
}

func (m *MemoryStore) GetProperty(_ context.Context, id string) (*models.PropertyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListByAgent(_ context.Context, agentID string) ([]*models.PropertyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.PropertyRecord
	for _, p := range m.properties {
		if p.AgentID == agentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PropertyCount returns the number of stored properties across all agents.
func (m *MemoryStore) PropertyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.properties)
}

// OnLeadChange registers fn to be called after every lead write.
func (m *MemoryStore) OnLeadChange(fn LeadChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// SaveLead inserts or replaces a lead, the way the conversation bot writes.
func (m *MemoryStore) SaveLead(ctx context.Context, l *models.Lead) error {
	m.mu.Lock()
	before := m.leads[l.ID]
	after := cloneLead(l)
	after.UpdatedAt = time.Now()
	m.leads[l.ID] = after
	observers := append([]LeadChangeFunc(nil), m.observers...)
	m.mu.Unlock()

	notify(ctx, observers, before, after)
	return nil
}

func (m *MemoryStore) GetLead(_ context.Context, id string) (*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneLead(l), nil
}

func (m *MemoryStore) AddIntelTags(ctx context.Context, id string, tags []string) error {
	m.mu.Lock()
	before, ok := m.leads[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	after := cloneLead(before)
	grew := false
	for _, t := range tags {
		if !after.HasTag(t) {
			after.IntelTags = append(after.IntelTags, t)
			grew = true
		}
	}
	if !grew {
		m.mu.Unlock()
		return nil
	}
	after.UpdatedAt = time.Now()
	m.leads[id] = after
	observers := append([]LeadChangeFunc(nil), m.observers...)
	m.mu.Unlock()

	notify(ctx, observers, before, after)
	return nil
}

// PutUser stores a user profile, optionally reachable by an API token hash.
func (m *MemoryStore) PutUser(u *models.User, tokenHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *u
	m.users[u.ID] = &cp
	if tokenHash != "" {
		m.tokens[tokenHash] = u.ID
	}
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) UserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.tokens[tokenHash]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUser(ctx, id)
}

func (m *MemoryStore) ActivateTrial(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = models.UserStatusActive
	u.TrialActivatedAt = &at
	return nil
}

func notify(ctx context.Context, observers []LeadChangeFunc, before, after *models.Lead) {
	if len(observers) == 0 {
		return
	}
	change := models.LeadChange{After: cloneLead(after)}
	if before != nil {
		change.Before = cloneLead(before)
	} else {
		change.Before = &models.Lead{ID: after.ID}
	}
	for _, fn := range observers {
		fn(ctx, change)
	}
}

func cloneLead(l *models.Lead) *models.Lead {
	cp := *l
	cp.Conversation = append([]models.Message(nil), l.Conversation...)
	cp.IntelTags = append([]string(nil), l.IntelTags...)
	return &cp
}
