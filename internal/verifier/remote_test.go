package verifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sflowg/workflow-compiler/internal/codegen"
)

func sampleBundle() *codegen.Bundle {
	return &codegen.Bundle{
		Workflow:        "export async function sampleWorkflow(): Promise<void> {}\n",
		Activities:      "export {};\n",
		Worker:          "export {};\n",
		PackageManifest: "{}\n",
		BuildConfig:     "{}\n",
	}
}

func TestRemote_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var req remoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Files, 5)
		assert.Equal(t, "src/workflow.ts", req.Files[0].Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			Success: false,
			TypeErrors: []TypeError{
				{File: "src/workflow.ts", Line: 1, Column: 1, Code: "TS1005", Message: "';' expected."},
			},
			DurationMs: 42,
		})
	}))
	defer srv.Close()

	v := NewRemote(RemoteConfig{URL: srv.URL + "/", Timeout: 5 * time.Second, MaxRetries: 2, RetryWaitMS: 1})
	result, err := v.Verify(context.Background(), sampleBundle())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, result.Success)
	require.Len(t, result.TypeErrors, 1)
	assert.Equal(t, "TS1005", result.TypeErrors[0].Code)
	assert.Equal(t, int64(42), result.DurationMs)
	assert.NotNil(t, result.LintIssues)
}

func TestRemote_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "bad bundle"}`))
	}))
	defer srv.Close()

	v := NewRemote(RemoteConfig{URL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 3, RetryWaitMS: 1})
	_, err := v.Verify(context.Background(), sampleBundle())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad bundle")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "typeErrors": [], "lintIssues": []}`))
	}))
	defer srv.Close()

	v := NewRemote(RemoteConfig{URL: srv.URL, Timeout: 5 * time.Second})
	result, err := v.Verify(context.Background(), sampleBundle())
	require.NoError(t, err)
	assert.True(t, result.Success)
}
