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

func newTrialFixture() (*TrialService, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	store.PutUser(&models.User{ID: "admin-1", Role: models.RoleAdmin, Status: models.UserStatusActive}, "")
	store.PutUser(&models.User{ID: "agent-1", Role: models.RoleAgent, Status: models.UserStatusPending}, "")
	store.PutUser(&models.User{ID: "agent-2", Role: models.RoleAgent, Status: models.UserStatusPending}, "")

	svc := NewTrialService(store, utils.NopLogger())
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestActivateTrialByAdmin(t *testing.T) {
	svc, store := newTrialFixture()

	res, err := svc.ActivateTrial(context.Background(), &models.Caller{ID: "admin-1"}, "agent-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	u, err := store.GetUser(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, u.Status)
	require.NotNil(t, u.TrialActivatedAt)
	assert.Equal(t, time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC), *u.TrialActivatedAt)
}

func TestActivateTrialFailures(t *testing.T) {
	tests := []struct {
		name   string
		caller *models.Caller
		target string
		want   Code
	}{
		{"no caller", nil, "agent-1", CodeUnauthenticated},
		{"not an admin", &models.Caller{ID: "agent-2"}, "agent-1", CodePermissionDenied},
		{"unknown caller profile", &models.Caller{ID: "ghost"}, "agent-1", CodePermissionDenied},
		{"missing target", &models.Caller{ID: "admin-1"}, "", CodeInvalidArgument},
		{"unknown target", &models.Caller{ID: "admin-1"}, "nobody", CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTrialFixture()
			_, err := svc.ActivateTrial(context.Background(), tt.caller, tt.target)
			assert.Equal(t, tt.want, CodeOf(err))

			u, _ := store.GetUser(context.Background(), "agent-1")
			assert.Equal(t, models.UserStatusPending, u.Status, "no partial effect")
		})
	}
}
