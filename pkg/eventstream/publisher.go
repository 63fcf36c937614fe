// Package eventstream publishes test lifecycle events to an event stream
// backend so downstream consumers (dashboards, audit trails) can observe
// execution rounds as they happen. Publishing is always fire-and-forget from
// the coordination server's point of view.
package eventstream

import "context"

// Publisher publishes test lifecycle events to an event stream backend.
type Publisher interface {
	PublishTestEvent(ctx context.Context, event *TestLifecycleEvent) error
	Close() error
}
