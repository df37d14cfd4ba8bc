package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/repository"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// PropertyService manages real-estate listings. Listings stay scoped to the
// user who registered them.
type PropertyService struct {
	properties repository.PropertyRepository
}

// PropertyInput describes property create/edit payload.
type PropertyInput struct {
	Title       string
	Description *string
	Address     *string
	Price       *float64
	Type        domain.PropertyType
	Status      domain.PropertyStatus
}

// NewPropertyService constructs the service.
func NewPropertyService(properties repository.PropertyRepository) *PropertyService {
	return &PropertyService{properties: properties}
}

// ListProperties returns the viewer's own listings.
func (s *PropertyService) ListProperties(ctx context.Context, viewer *domain.User) ([]domain.Property, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	properties, err := s.properties.ListByOwner(ctx, viewer.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return properties, nil
}

// CreateProperty registers a listing owned by the viewer.
func (s *PropertyService) CreateProperty(ctx context.Context, viewer *domain.User, input PropertyInput) (*domain.Property, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}

	property := &domain.Property{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Address:     input.Address,
		Price:       input.Price,
		Type:        input.Type,
		Status:      input.Status,
		UserID:      viewer.ID,
	}
	if err := s.properties.Create(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	return property, nil
}

// UpdateProperty edits a listing the viewer owns.
func (s *PropertyService) UpdateProperty(ctx context.Context, viewer *domain.User, propertyID string, input PropertyInput) (*domain.Property, error) {
	property, err := s.getOwnedProperty(ctx, viewer, propertyID)
	if err != nil {
		return nil, err
	}
	if err := validatePropertyInput(&input); err != nil {
		return nil, err
	}

	property.Title = strings.TrimSpace(input.Title)
	property.Description = input.Description
	property.Address = input.Address
	property.Price = input.Price
	property.Type = input.Type
	property.Status = input.Status
	if err := s.properties.Update(ctx, property); err != nil {
		return nil, apperrors.MapError(err)
	}
	return property, nil
}

// DeleteProperty removes a listing the viewer owns.
func (s *PropertyService) DeleteProperty(ctx context.Context, viewer *domain.User, propertyID string) error {
	property, err := s.getOwnedProperty(ctx, viewer, propertyID)
	if err != nil {
		return err
	}
	if err := s.properties.Delete(ctx, property.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *PropertyService) getOwnedProperty(ctx context.Context, viewer *domain.User, propertyID string) (*domain.Property, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("property", map[string]any{"property_id": propertyID})
		}
		return nil, apperrors.MapError(err)
	}
	if property.UserID != viewer.ID {
		return nil, apperrors.NewForbidden("property outside your scope")
	}
	return property, nil
}

func validatePropertyInput(input *PropertyInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return apperrors.NewValidationError("title required", nil)
	}
	if _, ok := domain.ParsePropertyType(string(input.Type)); !ok {
		return apperrors.NewValidationError("unknown property type", map[string]any{"type": input.Type})
	}
	if input.Status == "" {
		input.Status = domain.PropertyStatusAvailable
	}
	if _, ok := domain.ParsePropertyStatus(string(input.Status)); !ok {
		return apperrors.NewValidationError("unknown property status", map[string]any{"status": input.Status})
	}
	return nil
}
