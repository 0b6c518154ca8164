package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

func msgs(contents ...string) []models.Message {
	out := make([]models.Message, len(contents))
	for i, c := range contents {
		out[i] = models.Message{Role: "user", Content: c, Timestamp: time.Unix(int64(i), 0)}
	}
	return out
}

func TestScanTags(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"I will pay CASH", []string{TagCashBuyer}},
		{"My bond is pre-approved", []string{TagBondApplicant}},
		{"Need to move ASAP", []string{TagHotLead}},
		{"hello there", nil},
		{"cash, urgent, bond", []string{TagCashBuyer, TagBondApplicant, TagHotLead}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScanTags(msgs(tt.text)), "ScanTags(%q)", tt.text)
	}
}

func TestReactNoopWithoutNewMessages(t *testing.T) {
	r := NewIntelReactor(storage.NewMemoryStore(), utils.NopLogger())
	lead := &models.Lead{ID: "l1", Conversation: msgs("cash buyer here")}

	_, ok := r.React(lead, lead)
	assert.False(t, ok, "unchanged conversation")

	shorter := &models.Lead{ID: "l1", Conversation: msgs("cash buyer here", "x")}
	_, ok = r.React(shorter, lead)
	assert.False(t, ok, "conversation did not grow")
}

func TestReactOnlyReportsNewTags(t *testing.T) {
	r := NewIntelReactor(storage.NewMemoryStore(), utils.NopLogger())
	before := &models.Lead{ID: "l1", Conversation: msgs("hi"), IntelTags: []string{TagCashBuyer}}
	after := &models.Lead{ID: "l1", Conversation: msgs("hi", "cash, and I need it urgent"), IntelTags: []string{TagCashBuyer}}

	update, ok := r.React(before, after)
	require.True(t, ok)
	assert.Equal(t, []string{TagHotLead}, update.Added)

	after.IntelTags = append(after.IntelTags, TagHotLead)
	_, ok = r.React(before, after)
	assert.False(t, ok, "tag set would not grow")
}

func TestReactorUnionLaw(t *testing.T) {
	priors := [][]string{nil, {"vip"}, {TagHotLead}, {TagCashBuyer, TagBondApplicant}}

	for _, prior := range priors {
		store := storage.NewMemoryStore()
		r := NewIntelReactor(store, utils.NopLogger())
		ctx := context.Background()
		require.NoError(t, store.SaveLead(ctx, &models.Lead{ID: "l1", IntelTags: prior}))

		store.OnLeadChange(r.Observe)
		require.NoError(t, store.SaveLead(ctx, &models.Lead{
			ID: "l1", IntelTags: prior, Conversation: msgs("Paying cash", "it's urgent"),
		}))

		lead, err := store.GetLead(ctx, "l1")
		require.NoError(t, err)
		assert.Subset(t, lead.IntelTags, []string{TagCashBuyer, TagHotLead})
		assert.Subset(t, lead.IntelTags, prior, "tags never shrink")
	}
}

type countingLeads struct {
	storage.LeadStore
	writes int
}

func (c *countingLeads) AddIntelTags(ctx context.Context, id string, tags []string) error {
	c.writes++
	return c.LeadStore.AddIntelTags(ctx, id, tags)
}

func TestReactorIdempotentAndLoopFree(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	leads := &countingLeads{LeadStore: store}
	r := NewIntelReactor(leads, utils.NopLogger())
	store.OnLeadChange(r.Observe)

	require.NoError(t, store.SaveLead(ctx, &models.Lead{ID: "l1", Conversation: msgs("bond approved soon")}))
	assert.Equal(t, 1, leads.writes, "one write, and the write's own change is a no-op")

	lead, err := store.GetLead(ctx, "l1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{TagBondApplicant, TagHotLead}, lead.IntelTags)

	// Re-running the scan on the unchanged conversation writes nothing.
	require.NoError(t, r.Handle(ctx, models.LeadChange{Before: lead, After: lead}))
	_, ok := r.React(&models.Lead{ID: "l1"}, lead)
	assert.False(t, ok)
	assert.Equal(t, 1, leads.writes)

	// A new message without new keywords writes nothing either.
	lead.Conversation = append(lead.Conversation, msgs("thanks")...)
	require.NoError(t, store.SaveLead(ctx, lead))
	assert.Equal(t, 1, leads.writes)
}
