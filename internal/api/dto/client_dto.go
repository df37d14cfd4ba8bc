package dto

import (
	"time"

	"github.com/spec-kit/realty-crm/internal/domain"
)

// CreateClientRequest payload.
type CreateClientRequest struct {
	FullName             string  `json:"full_name"`
	Phone                *string `json:"phone"`
	Email                *string `json:"email"`
	FunnelStatus         string  `json:"funnel_status"`
	Notes                *string `json:"notes"`
	UserID               string  `json:"user_id"`
	PropertyOfInterestID *string `json:"property_of_interest_id"`
}

// UpdateClientRequest payload.
type UpdateClientRequest struct {
	FullName             string  `json:"full_name"`
	Phone                *string `json:"phone"`
	Email                *string `json:"email"`
	FunnelStatus         string  `json:"funnel_status"`
	Notes                *string `json:"notes"`
	PropertyOfInterestID *string `json:"property_of_interest_id"`
}

// ChangeStageRequest payload for kanban card moves.
type ChangeStageRequest struct {
	FunnelStatus string `json:"funnel_status"`
}

// ReassignClientRequest payload.
type ReassignClientRequest struct {
	UserID string `json:"user_id"`
}

// CreateNoteRequest payload.
type CreateNoteRequest struct {
	Note string `json:"note"`
}

// ClientResponse represents a client record.
type ClientResponse struct {
	ID                   string             `json:"id"`
	FullName             string             `json:"full_name"`
	Phone                *string            `json:"phone,omitempty"`
	Email                *string            `json:"email,omitempty"`
	FunnelStatus         domain.FunnelStage `json:"funnel_status"`
	Notes                *string            `json:"notes,omitempty"`
	UserID               string             `json:"user_id"`
	PropertyOfInterestID *string            `json:"property_of_interest_id,omitempty"`
	ClosedAt             *time.Time         `json:"closed_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// ClientNoteResponse represents an annotation.
type ClientNoteResponse struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
