package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTestStarted is emitted when a test start is accepted.
	EventTypeTestStarted = "testwise.test.started"

	// EventTypeTestFinished is emitted when a test end is accepted.
	EventTypeTestFinished = "testwise.test.finished"
)

// TestLifecycleEvent is a transport-neutral event payload for one accepted
// test start or test end.
type TestLifecycleEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	TestID        string    `json:"test_id"`
	SessionID     string    `json:"session_id,omitempty"`
	AgentPort     int       `json:"agent_port"`
	AgentRole     string    `json:"agent_role"`
	Partition     string    `json:"partition,omitempty"`
}

// NewTestLifecycleEvent creates a versioned event with a fresh id and
// timestamp.
func NewTestLifecycleEvent(eventType, testID string) *TestLifecycleEvent {
	return &TestLifecycleEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		TestID:        testID,
	}
}
