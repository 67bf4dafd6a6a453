package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jomapps/aladdin-sub006/internal/pkg/httpx"
	"github.com/jomapps/aladdin-sub006/internal/platform/envutil"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

// Client invokes department workflows on the external agents service.
// The response body is returned raw; the caller owns decoding, so this
// package stays agnostic of pipeline types.
type Client interface {
	RunDepartmentWorkflow(ctx context.Context, department, kind string, payload any) (json.RawMessage, error)
}

type workflowRequest struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

type agentsHTTPError struct {
	StatusCode int
	Body       string
}

func (e *agentsHTTPError) Error() string {
	return fmt.Sprintf("agents service returned %d: %s", e.StatusCode, httpx.BodySnippet([]byte(e.Body), 300))
}

func (e *agentsHTTPError) HTTPStatusCode() int { return e.StatusCode }

type client struct {
	log        *logger.Logger
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("AGENTS_SERVICE_URL")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing AGENTS_SERVICE_URL")
	}

	timeout := envutil.Duration("AGENTS_TIMEOUT", 5*time.Minute)
	maxRetries := envutil.Int("AGENTS_MAX_RETRIES", 2)
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &client{
		log:        log.With("client", "AgentsService"),
		baseURL:    baseURL,
		token:      strings.TrimSpace(os.Getenv("AGENTS_SERVICE_TOKEN")),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) RunDepartmentWorkflow(ctx context.Context, department, kind string, payload any) (json.RawMessage, error) {
	if strings.TrimSpace(department) == "" {
		return nil, fmt.Errorf("agents: department is required")
	}
	path := "/v1/departments/" + url.PathEscape(department) + "/workflows"

	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, path, workflowRequest{Kind: kind, Payload: payload})
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("agents request retrying",
			"department", department,
			"kind", kind,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &agentsHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
