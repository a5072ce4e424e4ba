package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/credit-line-service/internal/api/dto"
	"github.com/spec-kit/credit-line-service/internal/auth"
	apperrors "github.com/spec-kit/credit-line-service/pkg/util/errorutil"
)

// AuthHandler issues admin capability tokens.
type AuthHandler struct {
	tokens            *auth.TokenManager
	adminPasswordHash string
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(tokens *auth.TokenManager, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, adminPasswordHash: adminPasswordHash}
}

// AdminToken POST /auth/admin/token exchanges the operator password for a
// signed admin token.
func (h *AuthHandler) AdminToken(c *fiber.Ctx) error {
	var req dto.AdminTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if h.adminPasswordHash == "" {
		return apperrors.NewForbidden("admin token issuance not configured")
	}
	if err := auth.VerifyPassword(h.adminPasswordHash, req.Password); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := h.tokens.GenerateAdminToken()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.AdminTokenResponse{Token: token, ExpiresAt: expiresAt}})
}
