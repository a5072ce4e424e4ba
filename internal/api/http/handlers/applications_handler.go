package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-line-service/internal/api/dto"
	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/repository"
	"github.com/spec-kit/credit-line-service/internal/service"
	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// ApplicationsHandler manages application endpoints.
type ApplicationsHandler struct {
	service *service.ApplicationService
}

// NewApplicationsHandler constructs the handler.
func NewApplicationsHandler(applicationService *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{service: applicationService}
}

// Create POST /applications.
func (h *ApplicationsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}

	app, err := h.service.Create(c.UserContext(), service.ApplicationCreateInput{
		UserID:          req.UserID,
		RequestedAmount: req.RequestedAmount,
		ExpressDelivery: req.ExpressDelivery,
		Tip:             req.Tip,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": applicationResponse(app)})
}

// Get GET /applications/:id.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	app, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// Disburse POST /applications/:id/disburse.
func (h *ApplicationsHandler) Disburse(c *fiber.Ctx) error {
	var req dto.DisburseFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	app, err := h.service.Disburse(c.UserContext(), service.DisburseInput{
		ApplicationID:   c.Params("id"),
		Amount:          req.Amount,
		Tip:             req.Tip,
		ExpressDelivery: req.ExpressDelivery,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// Repay POST /applications/:id/repay.
func (h *ApplicationsHandler) Repay(c *fiber.Ctx) error {
	var req dto.RepayFundsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	app, err := h.service.Repay(c.UserContext(), service.RepayInput{
		ApplicationID: c.Params("id"),
		Amount:        req.Amount,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// Reject POST /applications/:id/reject.
func (h *ApplicationsHandler) Reject(c *fiber.Ctx) error {
	app, err := h.service.Reject(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationResponse(app)})
}

// ListLedger GET /applications/:id/ledger.
func (h *ApplicationsHandler) ListLedger(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	entries, err := h.service.ListLedger(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, ledgerEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAll GET /applications (admin only).
func (h *ApplicationsHandler) ListAll(c *fiber.Ctx) error {
	filter := repository.ApplicationFilter{}
	filter.Limit, filter.Offset = parsePagination(c)
	if userID := c.Query("user_id"); userID != "" {
		filter.UserID = &userID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ApplicationStatus(strings.TrimSpace(part)))
		}
	}

	apps, err := h.service.ListAll(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, applicationResponse(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	return pageSize, (page - 1) * pageSize
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func applicationResponse(app *domain.Application) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		ID:              app.ID,
		UserID:          app.UserID,
		Status:          app.Status,
		RequestedAmount: app.RequestedAmount,
		DisbursedAmount: app.DisbursedAmount,
		ExpressDelivery: app.ExpressDelivery,
		Tip:             app.Tip,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
}

func ledgerEntryResponse(entry *domain.LedgerEntry) dto.LedgerEntryResponse {
	return dto.LedgerEntryResponse{
		ID:            entry.ID,
		ApplicationID: entry.ApplicationID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		CreatedAt:     entry.CreatedAt,
	}
}
