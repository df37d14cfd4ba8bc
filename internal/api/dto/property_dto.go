package dto

import (
	"time"

	"github.com/spec-kit/realty-crm/internal/domain"
)

// PropertyRequest payload for create/edit.
type PropertyRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	Price       *float64 `json:"price"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
}

// PropertyResponse represents a listing.
type PropertyResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description *string               `json:"description,omitempty"`
	Address     *string               `json:"address,omitempty"`
	Price       *float64              `json:"price,omitempty"`
	Type        domain.PropertyType   `json:"type"`
	Status      domain.PropertyStatus `json:"status"`
	UserID      string                `json:"user_id"`
	CreatedAt   time.Time             `json:"created_at"`
}
