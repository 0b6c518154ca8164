package watcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-optimus/models"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

func conversation(texts ...string) []models.Message {
	msgs := make([]models.Message, len(texts))
	for i, t := range texts {
		msgs[i] = models.Message{Role: "user", Content: t}
	}
	return msgs
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent(`{"id":"lead-1","before_len":3}`)
	require.NoError(t, err)
	assert.Equal(t, "lead-1", ev.ID)
	assert.Equal(t, 3, ev.BeforeLen)

	_, err = ParseEvent(`{"before_len":3}`)
	assert.Error(t, err)

	_, err = ParseEvent(`not json`)
	assert.Error(t, err)
}

func TestBeforeLead(t *testing.T) {
	after := &models.Lead{ID: "l", Conversation: conversation("hi", "cash please")}

	before := BeforeLead(after, 1)
	assert.Len(t, before.Conversation, 1)
	assert.Len(t, after.Conversation, 2)

	assert.Len(t, BeforeLead(after, 9).Conversation, 2)
}

func newListener(t *testing.T) (*LeadListener, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	reactor := services.NewIntelReactor(store, utils.NopLogger())
	return NewLeadListener("", store, reactor, utils.NopLogger()), store
}

func TestDispatchTagsGrownConversation(t *testing.T) {
	l, store := newListener(t)
	ctx := context.Background()
	require.NoError(t, store.SaveLead(ctx, &models.Lead{
		ID:           "lead-1",
		Conversation: conversation("Hello", "I am paying CASH and need it ASAP"),
	}))

	require.NoError(t, l.Dispatch(ctx, `{"id":"lead-1","before_len":1}`))

	lead, err := store.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{services.TagCashBuyer, services.TagHotLead}, lead.IntelTags)
}

func TestDispatchIgnoresTagOnlyUpdate(t *testing.T) {
	l, store := newListener(t)
	ctx := context.Background()
	require.NoError(t, store.SaveLead(ctx, &models.Lead{
		ID:           "lead-1",
		Conversation: conversation("bond approved"),
	}))

	// Same length before and after: the notification came from a tag write.
	require.NoError(t, l.Dispatch(ctx, `{"id":"lead-1","before_len":1}`))

	lead, err := store.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	assert.Empty(t, lead.IntelTags)
}

func TestDispatchMissingLead(t *testing.T) {
	l, _ := newListener(t)
	assert.NoError(t, l.Dispatch(context.Background(), `{"id":"gone","before_len":0}`))
}
