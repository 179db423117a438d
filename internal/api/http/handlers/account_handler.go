package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

// AccountHandler exposes signup, login, confirmation and settings endpoints.
type AccountHandler struct {
	signup        *service.SignupService
	auth          *service.AuthService
	confirmations *service.ConfirmationService
	settings      *service.SettingsService
	deletions     *service.DeletionService
}

// AccountServices bundles the services behind the account endpoints.
type AccountServices struct {
	Signup        *service.SignupService
	Auth          *service.AuthService
	Confirmations *service.ConfirmationService
	Settings      *service.SettingsService
	Deletions     *service.DeletionService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(svc AccountServices) *AccountHandler {
	return &AccountHandler{
		signup:        svc.Signup,
		auth:          svc.Auth,
		confirmations: svc.Confirmations,
		settings:      svc.Settings,
		deletions:     svc.Deletions,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID, Username: u.Username, Email: u.Email, Active: u.Active}
}

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return p, nil
}

// CheckCode handles GET /account/signup/codes/:code. Every invalid code gets
// the same response.
func (h *AccountHandler) CheckCode(c *fiber.Ctx) error {
	sc, err := h.signup.IsCodeValid(c.UserContext(), c.Params("code"))
	if errors.Is(err, domain.ErrInvalidCode) {
		return apperrors.WithCause(apperrors.NewNotFound("signup code", nil), err)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"valid": true, "email": sc.Email}})
}

// Signup handles POST /account/signup.
func (h *AccountHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.signup.CreateUserAndBind(c.UserContext(), service.SignupParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Code,
		Timezone: req.Timezone,
		Language: req.Language,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user":           userResponse(res.User),
			"email_verified": res.EmailAddress.Verified,
			"settings": dto.SettingsResponse{
				Email:    res.EmailAddress.Email,
				Timezone: res.Account.Timezone,
				Language: res.Account.Language,
			},
		},
	})
}

// Login handles POST /account/login.
func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(res.User),
			"auth": dto.AuthResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, PasswordExpired: res.PasswordExpired},
		},
	})
}

// Logout handles POST /account/logout.
func (h *AccountHandler) Logout(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), p.User.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func confirmationResponse(res *service.ConfirmResult) dto.EmailConfirmationResponse {
	return dto.EmailConfirmationResponse{
		Email:     res.EmailAddress.Email,
		Verified:  res.EmailAddress.Verified,
		Expired:   res.Expired,
		Confirmed: res.Confirmed,
	}
}

// PreviewConfirmation handles GET /account/confirm-email/:key.
func (h *AccountHandler) PreviewConfirmation(c *fiber.Ctx) error {
	res, err := h.confirmations.Resolve(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": confirmationResponse(res)})
}

// ConfirmEmail handles POST /account/confirm-email/:key.
func (h *AccountHandler) ConfirmEmail(c *fiber.Ctx) error {
	res, err := h.confirmations.ResolveAndConfirm(c.UserContext(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": confirmationResponse(res)})
}

// ChangePassword handles POST /account/password/change.
func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.auth.ChangePassword(c.UserContext(), p.User.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	if next := c.Query("next"); next != "" {
		return c.JSON(fiber.Map{"data": fiber.Map{"message": "password changed", "next": next}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password changed"}})
}

// RequestPasswordReset handles POST /account/password/reset. The response
// is the same whether or not the address belongs to anyone.
func (h *AccountHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{"message": "if the address is registered, a reset link has been sent"},
	})
}

// ConfirmPasswordReset handles POST /account/password/reset/confirm.
func (h *AccountHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "password updated"}})
}

func settingsResponse(s *service.Settings) dto.SettingsResponse {
	return dto.SettingsResponse{Email: s.Email, Timezone: s.Account.Timezone, Language: s.Account.Language}
}

// GetSettings handles GET /account/settings.
func (h *AccountHandler) GetSettings(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	s, err := h.settings.Get(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(s)})
}

// UpdateSettings handles PUT /account/settings.
func (h *AccountHandler) UpdateSettings(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SettingsUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	s, err := h.settings.Update(c.UserContext(), p.User.ID, service.UpdateSettingsParams{
		Email:    req.Email,
		Timezone: req.Timezone,
		Language: req.Language,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settingsResponse(s)})
}

// Delete handles POST /account/delete.
func (h *AccountHandler) Delete(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	deletion, err := h.deletions.Mark(c.UserContext(), p.User.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": fiber.Map{
			"requested_at": deletion.DateRequested,
			"message":      "your account has been deactivated and will be removed",
		},
	})
}
