package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-line-service/internal/api/dto"
	"github.com/spec-kit/credit-line-service/internal/domain"
	"github.com/spec-kit/credit-line-service/internal/service"
	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// UsersHandler manages user endpoints.
type UsersHandler struct {
	users        *service.UserService
	applications *service.ApplicationService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(userService *service.UserService, applicationService *service.ApplicationService) *UsersHandler {
	return &UsersHandler{users: userService, applications: applicationService}
}

// Create POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.Create(c.UserContext(), service.UserCreateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		CreditLimit: req.CreditLimit,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": userResponse(user)})
}

// Get GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// Update PATCH /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.Update(c.UserContext(), c.Params("id"), service.UserPatch{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		CreditLimit: req.CreditLimit,
		IsAdmin:     req.IsAdmin,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

// List GET /users (admin only).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	users, err := h.users.List(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListApplications GET /users/:id/applications.
func (h *UsersHandler) ListApplications(c *fiber.Ctx) error {
	limit, offset := parsePagination(c)
	apps, err := h.applications.ListByUser(c.UserContext(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		items = append(items, applicationResponse(&apps[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		CreditLimit: user.CreditLimit,
		IsAdmin:     user.IsAdmin,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
