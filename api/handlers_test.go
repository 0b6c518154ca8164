package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-optimus/models"
	"agent-optimus/services"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

const listingCSV = "Property URL;Price;Title;Suburb;Bedroom\n" +
	"https://www.property24.com/for-sale/1;R 1,250,000;Garden Cottage;Claremont;2\n" +
	";R 9;Missing URL;Claremont;1\n"

type fixture struct {
	store  *storage.MemoryStore
	server *httptest.Server
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func newFixture(t *testing.T, db Pinger) *fixture {
	t.Helper()
	bucket, err := storage.NewDiskBucket(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	store.PutUser(&models.User{ID: "agent-1", Role: models.RoleAgent, Status: models.UserStatusPending}, HashToken("agent-token"))
	store.PutUser(&models.User{ID: "admin-1", Role: models.RoleAdmin, Status: models.UserStatusActive}, HashToken("admin-token"))

	logger := utils.NopLogger()
	imp := services.NewImporter(bucket, store, services.ImporterConfig{Source: "csv_import", Editor: "csv_import"}, logger)

	srv := httptest.NewServer(NewRouter(Deps{
		Uploader:   services.NewUploader(bucket, imp, logger),
		Trials:     services.NewTrialService(store, logger),
		Insights:   services.NewInsightService(logger),
		Properties: store,
		Users:      store,
		DB:         db,
		Logger:     logger,
	}))
	t.Cleanup(srv.Close)
	return &fixture{store: store, server: srv}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error body, got %v", body)
	return e["code"].(string)
}

func TestUploadPropertyCSV(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/functions/uploadPropertyCSV", "agent-token", map[string]string{
		"fileName":          "listings.csv",
		"fileContentBase64": base64.StdEncoding.EncodeToString([]byte(listingCSV)),
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully processed 1 properties.", body["message"])

	props, err := f.store.ListByAgent(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, int64(1250000), props[0].Price)
}

func TestUploadPropertyCSVErrors(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/functions/uploadPropertyCSV", "", map[string]string{
		"fileName": "a.csv", "fileContentBase64": "eA==",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", errorCode(t, body))

	status, body = f.do(t, http.MethodPost, "/functions/uploadPropertyCSV", "wrong-token", map[string]string{
		"fileName": "a.csv", "fileContentBase64": "eA==",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", errorCode(t, body))

	status, body = f.do(t, http.MethodPost, "/functions/uploadPropertyCSV", "agent-token", map[string]string{
		"fileName": "a.csv",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid-argument", errorCode(t, body))
}

func TestActivateTrial(t *testing.T) {
	f := newFixture(t, nil)

	status, body := f.do(t, http.MethodPost, "/functions/activateTrial", "agent-token", map[string]string{"userId": "agent-1"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission-denied", errorCode(t, body))

	status, body = f.do(t, http.MethodPost, "/functions/activateTrial", "admin-token", map[string]string{"userId": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not-found", errorCode(t, body))

	status, body = f.do(t, http.MethodPost, "/functions/activateTrial", "admin-token", map[string]string{"userId": "agent-1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	u, err := f.store.GetUser(context.Background(), "agent-1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, u.Status)
	assert.NotNil(t, u.TrialActivatedAt)
}

func TestPropertyInsights(t *testing.T) {
	f := newFixture(t, nil)

	status, _ := f.do(t, http.MethodGet, "/properties/insights", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	_, _ = f.do(t, http.MethodPost, "/functions/uploadPropertyCSV", "agent-token", map[string]string{
		"fileName":          "listings.csv",
		"fileContentBase64": base64.StdEncoding.EncodeToString([]byte(listingCSV)),
	})

	status, body := f.do(t, http.MethodGet, "/properties/insights", "agent-token", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["totalProperties"])
	assert.EqualValues(t, 1250000, body["maxPrice"])
}

func TestHealth(t *testing.T) {
	status, body := newFixture(t, nil).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = newFixture(t, downDB{}).do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))

	r.Header.Set("Authorization", "bearer abc ")
	assert.Equal(t, "abc", bearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(r))
}

// failingUsers is a user store whose token lookups hit a broken backend.
type failingUsers struct {
	*storage.MemoryStore
}

func (failingUsers) UserByTokenHash(context.Context, string) (*models.User, error) {
	return nil, errors.New("pq: connection reset by peer")
}

func TestIdentifyLookupFailureIsInternal(t *testing.T) {
	reached := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })
	h := NewAuthenticator(failingUsers{storage.NewMemoryStore()}, utils.NopLogger()).Identify(next)

	req := httptest.NewRequest(http.MethodPost, "/functions/activateTrial", nil)
	req.Header.Set("Authorization", "Bearer agent-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal", body["error"]["code"])
	assert.NotContains(t, body["error"]["message"], "connection reset")
}
