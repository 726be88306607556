package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/agrilink/crm-sync/internal/api/dto"
	"github.com/agrilink/crm-sync/internal/crm"
	"github.com/agrilink/crm-sync/internal/observability"
	"github.com/agrilink/crm-sync/internal/worker"
	apperrors "github.com/agrilink/crm-sync/pkg/util"
)

// SyncRunner triggers a poll cycle outside the regular schedule.
type SyncRunner interface {
	RunOnce(ctx context.Context) (worker.CycleResult, error)
}

// DealDirectory reads and removes CRM deals for operator cleanup.
type DealDirectory interface {
	ListDeals(ctx context.Context) ([]crm.Deal, error)
	DeleteDeal(ctx context.Context, dealID string) (bool, error)
}

// AdminHandler exposes operator endpoints over the sync pipeline and the
// CRM deal inventory.
type AdminHandler struct {
	runner  SyncRunner
	deals   DealDirectory
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(runner SyncRunner, deals DealDirectory, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{runner: runner, deals: deals, metrics: metrics}
}

// RunSync handles POST /admin/sync/run.
func (h *AdminHandler) RunSync(c *fiber.Ctx) error {
	result, err := h.runner.RunOnce(c.UserContext())
	if err != nil {
		return apperrors.NewUpstreamError("sync cycle failed", err)
	}

	return c.JSON(fiber.Map{
		"data": dto.SyncRunResponse{
			Processed: result.Processed,
			Synced:    result.Synced,
			Failed:    result.Failed,
		},
	})
}

// ListDeals handles GET /admin/deals.
func (h *AdminHandler) ListDeals(c *fiber.Ctx) error {
	deals, err := h.deals.ListDeals(c.UserContext())
	if err != nil {
		return apperrors.NewUpstreamError("deal listing failed", err)
	}

	out := make([]dto.DealResponse, 0, len(deals))
	for _, deal := range deals {
		out = append(out, dto.DealResponse{ID: deal.ID, SourceRef: deal.SourceRef})
	}
	return c.JSON(fiber.Map{
		"data": dto.DealListResponse{Deals: out, Count: len(out)},
	})
}

// DeleteDeal handles DELETE /admin/deals/:id.
func (h *AdminHandler) DeleteDeal(c *fiber.Ctx) error {
	dealID := c.Params("id")
	if dealID == "" {
		return apperrors.NewValidationError("deal id required", nil)
	}

	deleted, err := h.deals.DeleteDeal(c.UserContext(), dealID)
	if err != nil {
		return apperrors.NewUpstreamError("deal delete failed", err)
	}
	if !deleted {
		return apperrors.NewNotFound("deal", map[string]any{"id": dealID})
	}

	return c.JSON(fiber.Map{
		"data": dto.DeleteDealResponse{ID: dealID, Deleted: true},
	})
}

// Metrics handles GET /admin/metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
