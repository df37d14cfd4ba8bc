package events

import (
	"time"

	"github.com/spec-kit/realty-crm/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventClientCreated      EventType = "client_created"
	EventClientStageChanged EventType = "client_stage_changed"
	EventClientReassigned   EventType = "client_reassigned"
	EventClientNoteAdded    EventType = "client_note_added"
	EventUserCreated        EventType = "user_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ClientID  string      `json:"client_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ClientCreatedPayload payload.
type ClientCreatedPayload struct {
	OwnerID      string             `json:"owner_id"`
	FunnelStatus domain.FunnelStage `json:"funnel_status"`
	FullName     string             `json:"full_name"`
}

// ClientStageChangedPayload payload.
type ClientStageChangedPayload struct {
	OldStage domain.FunnelStage `json:"old_stage"`
	NewStage domain.FunnelStage `json:"new_stage"`
}

// ClientReassignedPayload payload.
type ClientReassignedPayload struct {
	OldOwnerID string `json:"old_owner_id"`
	NewOwnerID string `json:"new_owner_id"`
}

// ClientNoteAddedPayload payload.
type ClientNoteAddedPayload struct {
	NoteID      string `json:"note_id"`
	AuthorID    string `json:"author_id"`
	NotePreview string `json:"note_preview"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	ManagerID *string     `json:"manager_id,omitempty"`
}
