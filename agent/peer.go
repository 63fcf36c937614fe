package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Peer is the HTTP client for a sibling agent on the same host. A primary
// holds one Peer per registered secondary; a secondary holds one Peer for its
// primary.
type Peer struct {
	baseURL string
	http    *http.Client
}

// NewPeer creates a client for the agent listening on the given local port.
func NewPeer(port int, timeout time.Duration) *Peer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Peer{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		http:    &http.Client{Timeout: timeout},
	}
}

// Register announces ownPort to this peer's registration endpoint.
func (p *Peer) Register(ctx context.Context, ownPort int) error {
	return p.do(ctx, http.MethodPost, fmt.Sprintf("/register?port=%d", ownPort))
}

// Unregister withdraws ownPort from this peer's registry.
func (p *Peer) Unregister(ctx context.Context, ownPort int) error {
	return p.do(ctx, http.MethodDelete, fmt.Sprintf("/register?port=%d", ownPort))
}

// SignalTestStart relays a test start event to this peer.
func (p *Peer) SignalTestStart(ctx context.Context, testID string) error {
	return p.do(ctx, http.MethodPost, "/test/start/"+url.PathEscape(testID))
}

// SignalTestEnd relays a test end event to this peer.
func (p *Peer) SignalTestEnd(ctx context.Context, testID string) error {
	return p.do(ctx, http.MethodPost, "/test/end/"+url.PathEscape(testID))
}

func (p *Peer) do(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s %s returned %s", method, path, resp.Status)
	}
	return nil
}
