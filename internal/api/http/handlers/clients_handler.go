package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/realty-crm/internal/api/dto"
	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/service"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// ClientsHandler manages client-record endpoints.
type ClientsHandler struct {
	service *service.ClientService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{service: clientService}
}

// ListClients GET /clients.
func (h *ClientsHandler) ListClients(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter, err := parseClientListQuery(c)
	if err != nil {
		return err
	}
	clients, err := h.service.ListClients(c.Context(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, clientResponse(&clients[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetClient GET /clients/:id.
func (h *ClientsHandler) GetClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	client, err := h.service.GetClient(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// CreateClient POST /clients.
func (h *ClientsHandler) CreateClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return apperrors.NewValidationError("full_name required", nil)
	}
	stage := domain.StageContact
	if req.FunnelStatus != "" {
		parsed, ok := domain.ParseFunnelStage(req.FunnelStatus)
		if !ok {
			return apperrors.NewInvalidStage(req.FunnelStatus)
		}
		stage = parsed
	}

	client, err := h.service.CreateClient(c.Context(), principal.User, service.ClientCreateInput{
		FullName:             req.FullName,
		Phone:                req.Phone,
		Email:                req.Email,
		FunnelStatus:         stage,
		Notes:                req.Notes,
		OwnerID:              req.UserID,
		PropertyOfInterestID: req.PropertyOfInterestID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": clientResponse(client)})
}

// UpdateClient PUT /clients/:id.
func (h *ClientsHandler) UpdateClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.FullName) == "" {
		return apperrors.NewValidationError("full_name required", nil)
	}
	stage, ok := domain.ParseFunnelStage(req.FunnelStatus)
	if !ok {
		return apperrors.NewInvalidStage(req.FunnelStatus)
	}

	client, err := h.service.UpdateClient(c.Context(), principal.User, c.Params("id"), service.ClientUpdateInput{
		FullName:             req.FullName,
		Phone:                req.Phone,
		Email:                req.Email,
		FunnelStatus:         stage,
		Notes:                req.Notes,
		PropertyOfInterestID: req.PropertyOfInterestID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// ChangeStage PATCH /clients/:id/stage.
func (h *ClientsHandler) ChangeStage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangeStageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	stage, ok := domain.ParseFunnelStage(req.FunnelStatus)
	if !ok {
		return apperrors.NewInvalidStage(req.FunnelStatus)
	}

	client, err := h.service.ChangeStage(c.Context(), principal.User, c.Params("id"), stage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// ReassignClient PATCH /clients/:id/owner.
func (h *ClientsHandler) ReassignClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ReassignClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}

	client, err := h.service.ReassignClient(c.Context(), principal.User, c.Params("id"), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": clientResponse(client)})
}

// DeleteClient DELETE /clients/:id.
func (h *ClientsHandler) DeleteClient(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteClient(c.Context(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// AddNote POST /clients/:id/notes.
func (h *ClientsHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	note, err := h.service.AddNote(c.Context(), principal.User, c.Params("id"), req.Note)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": clientNoteResponse(note)})
}

// ListNotes GET /clients/:id/notes.
func (h *ClientsHandler) ListNotes(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notes, err := h.service.ListNotes(c.Context(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ClientNoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, clientNoteResponse(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseClientListQuery(c *fiber.Ctx) (service.ClientListFilter, error) {
	filter := service.ClientListFilter{}
	if owner := c.Query("user_id"); owner != "" {
		filter.OwnerID = &owner
	}
	if stageStr := c.Query("funnel_status"); stageStr != "" {
		stage, ok := domain.ParseFunnelStage(stageStr)
		if !ok {
			return filter, apperrors.NewInvalidStage(stageStr)
		}
		filter.Stage = &stage
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	filter.Limit = c.QueryInt("limit")
	filter.Offset = c.QueryInt("offset")
	return filter, nil
}

func clientResponse(client *domain.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:                   client.ID,
		FullName:             client.FullName,
		Phone:                client.Phone,
		Email:                client.Email,
		FunnelStatus:         client.FunnelStatus,
		Notes:                client.Notes,
		UserID:               client.UserID,
		PropertyOfInterestID: client.PropertyOfInterestID,
		ClosedAt:             client.ClosedAt,
		CreatedAt:            client.CreatedAt,
		UpdatedAt:            client.UpdatedAt,
	}
}

func clientNoteResponse(note *domain.ClientNote) dto.ClientNoteResponse {
	return dto.ClientNoteResponse{
		ID:        note.ID,
		ClientID:  note.ClientID,
		UserID:    note.UserID,
		UserName:  note.UserName,
		Note:      note.Note,
		CreatedAt: note.CreatedAt,
	}
}
