// Package analysis provides the client for the remote impact-analysis
// service, which maps a set of available tests and a commit range onto the
// subset of tests impacted by the change.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/testwiseco/testwise/pkg/execution"
)

// ErrUndetermined indicates the service answered but explicitly could not
// determine the impacted subset (null result body).
var ErrUndetermined = errors.New("analysis service could not determine impacted tests")

// Request describes one impacted-tests query.
type Request struct {
	AvailableTests []execution.TestDetails `json:"availableTests"`
	Baseline       string                  `json:"baseline,omitempty"`
	End            string                  `json:"end"`
	Partition      string                  `json:"partition"`
}

// Client answers impacted-tests queries. Implementations return an error for
// every transport, status, or decode failure; interpreting those as a
// fallback decision is the orchestrator's job.
type Client interface {
	ImpactedTests(ctx context.Context, req Request) ([]string, error)
}

// HTTPClient is the Client implementation for the HTTP analysis service.
type HTTPClient struct {
	baseURL     string
	project     string
	accessToken string
	http        *http.Client
}

// NewHTTPClient creates a client for the analysis service rooted at baseURL.
func NewHTTPClient(baseURL, project, accessToken string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:     baseURL,
		project:     project,
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

// ImpactedTests posts the query and decodes the impacted test id list.
func (c *HTTPClient) ImpactedTests(ctx context.Context, req Request) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding impacted-tests request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/projects/%s/impacted-tests", c.baseURL, url.PathEscape(c.project))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building impacted-tests request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("querying impacted tests: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("impacted-tests query returned %s", resp.Status)
	}

	var impacted *[]string
	if err := json.NewDecoder(resp.Body).Decode(&impacted); err != nil {
		return nil, fmt.Errorf("decoding impacted-tests response: %w", err)
	}
	if impacted == nil {
		return nil, ErrUndetermined
	}

	return *impacted, nil
}
