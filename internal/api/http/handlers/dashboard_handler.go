package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/realty-crm/internal/api/dto"
	"github.com/spec-kit/realty-crm/internal/auth"
	"github.com/spec-kit/realty-crm/internal/domain"
	"github.com/spec-kit/realty-crm/internal/service"
	apperrors "github.com/spec-kit/realty-crm/pkg/util"
)

// DashboardHandler serves pipeline statistics.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: dashboardService}
}

// Stats GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.Stats(c.Context(), principal.User, time.Now())
	if err != nil {
		return err
	}

	counts := make([]dto.StageCount, 0, len(domain.FunnelStages()))
	for _, stage := range domain.FunnelStages() {
		counts = append(counts, dto.StageCount{Stage: string(stage), Count: stats.StageCounts[stage]})
	}
	preview := make([]dto.ClientResponse, 0, len(stats.InactivePreview))
	for i := range stats.InactivePreview {
		preview = append(preview, clientResponse(&stats.InactivePreview[i]))
	}

	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		TotalClients:        stats.TotalClients,
		StageCounts:         counts,
		ContractsClosedYear: stats.ContractsClosedYear,
		Year:                stats.Year,
		InactivePreview:     preview,
	}})
}
