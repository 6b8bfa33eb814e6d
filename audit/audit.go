// Package audit records review-workflow actions as an append-only JSONL
// trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies the workflow step an event records.
type Action string

const (
	ActionSubmit           Action = "submit"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRequestRevision  Action = "request_revision"
	ActionResubmit         Action = "resubmit"
)

// Event is one immutable audit record. Events are never edited once
// emitted.
type Event struct {
	EventID        string    `json:"event_id"`
	ItemID         string    `json:"item_id"`
	Action         Action    `json:"action"`
	Actor          string    `json:"actor,omitempty"`
	Role           string    `json:"role,omitempty"`
	DecisionID     string    `json:"decision_id,omitempty"`
	DecisionStatus string    `json:"decision_status,omitempty"`
	FieldCount     int       `json:"field_count,omitempty"`
	Timestamp      time.Time `json:"ts"`
}

// Sink receives audit events. Implementations must tolerate concurrent
// emitters.
type Sink interface {
	Emit(ctx context.Context, e Event) error
	Close() error
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(context.Context, Event) error { return nil }
func (NopSink) Close() error                      { return nil }

// NewEvent stamps an event with an id and timestamp.
func NewEvent(itemID string, action Action) Event {
	return Event{
		EventID:   "evt_" + uuid.NewString(),
		ItemID:    itemID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}
