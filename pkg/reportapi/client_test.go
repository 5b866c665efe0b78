package reportapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hongsheng-mining/mill-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testReport() model.ReportPayload {
	return model.ReportPayload{
		ShiftDate: "2025-08-19",
		ShiftType: "乙班",
		RunTime:   8,
		RawOre:    model.RawOrePayload{WetWeight: 128, Moisture: 3, PbGrade: 3.75, AgGrade: 161},
	}
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	var got model.ReportPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reports", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	require.NoError(t, c.Submit(context.Background(), testReport()))

	assert.Equal(t, "2025-08-19", got.ShiftDate)
	assert.Equal(t, "乙班", got.ShiftType)
	assert.InDelta(t, 3.75, got.RawOre.PbGrade, 0.0001)
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxRetries(2), WithRateLimit(1000, 10))
	require.NoError(t, c.Submit(context.Background(), testReport()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubmitClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad shift payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxRetries(3), WithRateLimit(1000, 10))
	err := c.Submit(context.Background(), testReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitGivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithMaxRetries(1), WithRateLimit(1000, 10))
	err := c.Submit(context.Background(), testReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubmitCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, WithRateLimit(1000, 10))
	err := c.Submit(ctx, testReport())
	require.Error(t, err)
}
