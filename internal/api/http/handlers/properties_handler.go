package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/realty-crm/internal/api/dto"
	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/service"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// PropertiesHandler manages listing endpoints.
type PropertiesHandler struct {
	service *service.PropertyService
}

// NewPropertiesHandler constructs handler.
func NewPropertiesHandler(propertyService *service.PropertyService) *PropertiesHandler {
	return &PropertiesHandler{service: propertyService}
}

// ListProperties GET /properties.
func (h *PropertiesHandler) ListProperties(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	properties, err := h.service.ListProperties(c.Context(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.PropertyResponse, 0, len(properties))
	for i := range properties {
		items = append(items, propertyResponse(&properties[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateProperty POST /properties.
func (h *PropertiesHandler) CreateProperty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input, err := parsePropertyRequest(c)
	if err != nil {
		return err
	}
	property, err := h.service.CreateProperty(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": propertyResponse(property)})
}

// UpdateProperty PUT /properties/:id.
func (h *PropertiesHandler) UpdateProperty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	input, err := parsePropertyRequest(c)
	if err != nil {
		return err
	}
	property, err := h.service.UpdateProperty(c.Context(), principal.User, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": propertyResponse(property)})
}

// DeleteProperty DELETE /properties/:id.
func (h *PropertiesHandler) DeleteProperty(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteProperty(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

func parsePropertyRequest(c *fiber.Ctx) (service.PropertyInput, error) {
	var req dto.PropertyRequest
	if err := c.BodyParser(&req); err != nil {
		return service.PropertyInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Type == "" {
		return service.PropertyInput{}, apperrors.NewValidationError("title and type required", nil)
	}
	input := service.PropertyInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Price:       req.Price,
		Type:        domain.PropertyType(req.Type),
		Status:      domain.PropertyStatus(req.Status),
	}
	return input, nil
}

func propertyResponse(property *domain.Property) dto.PropertyResponse {
	return dto.PropertyResponse{
		ID:          property.ID,
		Title:       property.Title,
		Description: property.Description,
		Address:     property.Address,
		Price:       property.Price,
		Type:        property.Type,
		Status:      property.Status,
		UserID:      property.UserID,
		CreatedAt:   property.CreatedAt,
	}
}
