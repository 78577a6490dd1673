package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/riskgraph/pkg/constants"
)

// EngineEvent is the envelope published to the audit/notification sink for
// simulation lifecycle transitions and risk level changes.
type EngineEvent struct {
	EventID   string              `json:"event_id"`
	TenantID  string              `json:"tenant_id"`
	Type      constants.EventType `json:"type"`
	Subject   string              `json:"subject"` // run id or entity id
	Message   string              `json:"message,omitempty"`
	Payload   json.RawMessage     `json:"payload,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewEngineEvent creates an event envelope with a fresh id and UTC timestamp.
func NewEngineEvent(tenantID string, eventType constants.EventType, subject string, message string) *EngineEvent {
	return &EngineEvent{
		EventID:   uuid.NewString(),
		TenantID:  tenantID,
		Type:      eventType,
		Subject:   subject,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
