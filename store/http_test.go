package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
)

func TestHTTPAdapter_ListOpenJobs(t *testing.T) {
	created := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		json.NewEncoder(w).Encode([]*jobs.Job{
			{ID: "job-1", Status: jobs.StatusOpen, PriorityClass: jobs.PriorityEmergency, CreatedAt: created, Version: 3},
		})
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	list, err := adapter.ListOpenJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "job-1", list[0].ID)
	assert.Equal(t, jobs.PriorityEmergency, list[0].PriorityClass)
	assert.Equal(t, int64(3), list[0].Version)
	assert.True(t, created.Equal(list[0].CreatedAt))
}

func TestHTTPAdapter_GetCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-1/candidates", r.URL.Path)
		json.NewEncoder(w).Encode([]*jobs.ContractorCandidate{
			{ID: "c-1", DistanceMiles: 4.5, Rating: 4.8, Available: true},
		})
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	candidates, err := adapter.GetCandidates(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "c-1", candidates[0].ID)
	assert.True(t, candidates[0].Available)
}

func TestHTTPAdapter_OfferJob(t *testing.T) {
	expires := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/jobs/job-1/offers", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c-1", body["contractor_id"])
		assert.Equal(t, expires.Format(time.RFC3339), body["expires_at"])

		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	status, err := adapter.OfferJob(context.Background(), "job-1", "c-1", expires)
	require.NoError(t, err)
	assert.Equal(t, jobs.OfferAccepted, status)
}

func TestHTTPAdapter_AssignJob_VersionConflict(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/job-1/assignment", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	err := adapter.AssignJob(context.Background(), "job-1", "c-1", 3)
	require.Error(t, err)
	assert.True(t, errors.IsVersionConflict(err))
}

func TestHTTPAdapter_ServerErrorIsStoreUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	_, err := adapter.ListOpenJobs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestHTTPAdapter_TransportErrorIsStoreUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	adapter := NewHTTPAdapter(ts.URL)
	_, err := adapter.ListOpenJobs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsStoreUnavailable(err))
}

func TestHTTPAdapter_NotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	adapter := NewHTTPAdapter(ts.URL)
	err := adapter.EscalateManually(context.Background(), "job-unknown")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestHTTPAdapter_ContextDeadlinePassesThrough(t *testing.T) {
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer ts.Close()
	defer close(block)

	adapter := NewHTTPAdapter(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := adapter.OfferJob(ctx, "job-1", "c-1", time.Now().Add(time.Minute))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.IsStoreUnavailable(err))
}
