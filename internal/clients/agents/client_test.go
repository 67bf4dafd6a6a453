package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, server *httptest.Server, retries int) *client {
	t.Helper()
	return &client{
		log:        testLogger(t),
		baseURL:    server.URL,
		token:      "test-token",
		httpClient: server.Client(),
		maxRetries: retries,
	}
}

func TestRunDepartmentWorkflowPostsAndReturnsBody(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody workflowRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"department":"character","qualified":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, 0)
	raw, err := c.RunDepartmentWorkflow(context.Background(), "character", "qualify:foundation", map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("RunDepartmentWorkflow: %v", err)
	}
	if gotPath != "/v1/departments/character/workflows" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.Kind != "qualify:foundation" {
		t.Fatalf("request kind = %s", gotBody.Kind)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if decoded["department"] != "character" {
		t.Fatalf("response = %v", decoded)
	}
}

func TestRunDepartmentWorkflowSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"unknown department"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, 3)
	start := time.Now()
	_, err := c.RunDepartmentWorkflow(context.Background(), "nope", "qualify:foundation", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "unknown department") {
		t.Fatalf("err = %v, want status and body snippet", err)
	}
	// 422 is not retryable, so the call must not have burned backoff time.
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("non-retryable status was retried")
	}
}

func TestRunDepartmentWorkflowRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"department":"audio"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server, 2)
	raw, err := c.RunDepartmentWorkflow(context.Background(), "audio", "qualify:production", nil)
	if err != nil {
		t.Fatalf("RunDepartmentWorkflow: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("hits = %d, want retry then success", hits)
	}
	if len(raw) == 0 {
		t.Fatal("empty response body")
	}
}

func TestRunDepartmentWorkflowRequiresDepartment(t *testing.T) {
	c := &client{log: testLogger(t), baseURL: "http://unused", httpClient: http.DefaultClient}
	if _, err := c.RunDepartmentWorkflow(context.Background(), " ", "qualify:foundation", nil); err == nil {
		t.Fatal("expected error for blank department")
	}
}

func TestNewClientRequiresServiceURL(t *testing.T) {
	t.Setenv("AGENTS_SERVICE_URL", "")
	if _, err := NewClient(testLogger(t)); err == nil {
		t.Fatal("expected error without AGENTS_SERVICE_URL")
	}

	t.Setenv("AGENTS_SERVICE_URL", "http://agents.local/")
	c, err := NewClient(testLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.(*client).baseURL != "http://agents.local" {
		t.Fatalf("baseURL = %s, want trailing slash trimmed", c.(*client).baseURL)
	}
}
