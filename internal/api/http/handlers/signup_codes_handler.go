package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
)

// SignupCodesHandler lets staff issue invitations.
type SignupCodesHandler struct {
	codes *service.SignupCodeService
}

// NewSignupCodesHandler constructs handler.
func NewSignupCodesHandler(codes *service.SignupCodeService) *SignupCodesHandler {
	return &SignupCodesHandler{codes: codes}
}

func (h *SignupCodesHandler) response(sc *domain.SignupCode) dto.SignupCodeResponse {
	return dto.SignupCodeResponse{
		ID:        sc.ID,
		Code:      sc.Code,
		Email:     sc.Email,
		MaxUses:   sc.MaxUses,
		UseCount:  sc.UseCount,
		Expiry:    sc.Expiry,
		Sent:      sc.Sent,
		SignupURL: h.codes.SignupURL(sc.Code),
	}
}

// Create handles POST /account/signup-codes.
func (h *SignupCodesHandler) Create(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.SignupCodeCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	inviter := p.User.ID
	sc, err := h.codes.Create(ctx, service.CreateSignupCodeParams{
		Email:       req.Email,
		Code:        req.Code,
		MaxUses:     req.MaxUses,
		ExpiryHours: req.ExpiryHours,
		InviterID:   &inviter,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}

	if req.Send {
		if err := h.codes.Send(ctx, sc, req.Recipients, req.Extra); err != nil {
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": h.response(sc)})
}
