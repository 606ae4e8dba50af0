package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/backbone-auth/internal/api/dto"
	"github.com/spec-kit/backbone-auth/internal/auth"
	"github.com/spec-kit/backbone-auth/internal/service"
	apperrors "github.com/spec-kit/backbone-auth/pkg/util/errorutil"
)

// RoleSessions is the role-session state machine.
type RoleSessions interface {
	Login(ctx context.Context, username, password string) (*service.Result, error)
	DirectLogin(ctx context.Context, username, password, role string) (*service.Result, error)
	SelectRole(ctx context.Context, interimToken, role string) (*service.Result, error)
	SwitchRole(ctx context.Context, caller auth.Claims, newRole string) (*service.Result, error)
}

// Impersonator issues impersonation tokens.
type Impersonator interface {
	Impersonate(ctx context.Context, caller auth.Claims, target, requestedRole string) (*service.Result, error)
}

// AuthHandler exposes the login, role and impersonation endpoints.
type AuthHandler struct {
	sessions      RoleSessions
	impersonation Impersonator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions RoleSessions, impersonation Impersonator) *AuthHandler {
	return &AuthHandler{sessions: sessions, impersonation: impersonation}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.sessions.Login(c.UserContext(), req.Username, req.Password)
	return respond(c, res, err)
}

// DirectLogin handles POST /auth/direct-login.
func (h *AuthHandler) DirectLogin(c *fiber.Ctx) error {
	var req dto.DirectLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.sessions.DirectLogin(c.UserContext(), req.Username, req.Password, req.Role)
	return respond(c, res, err)
}

// SelectRole handles POST /auth/select-role.
func (h *AuthHandler) SelectRole(c *fiber.Ctx) error {
	var req dto.SelectRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.sessions.SelectRole(c.UserContext(), req.Token, req.Role)
	return respond(c, res, err)
}

// SwitchRole handles POST /auth/switch-role.
func (h *AuthHandler) SwitchRole(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SwitchRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.sessions.SwitchRole(c.UserContext(), principal.Claims, req.Role)
	return respond(c, res, err)
}

// Impersonate handles POST /auth/impersonate.
func (h *AuthHandler) Impersonate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ImpersonateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.impersonation.Impersonate(c.UserContext(), principal.Claims, req.Username, req.Role)
	return respond(c, res, err)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	claims := principal.Claims
	resp := dto.MeResponse{
		Username:          principal.Username,
		CurrentRole:       claims.CurrentRole(),
		Roles:             nonNil(claims.Roles()),
		OriginalRoles:     nonNil(claims.OriginalRoles()),
		IsImpersonating:   claims.IsImpersonating(),
		OriginalUsername:  principal.Impersonator,
		ImpersonationRole: claims.ImpersonationRole(),
	}
	if principal.Token != nil {
		resp.ExpiresAt = principal.Token.ExpiresAt
	}
	return c.JSON(fiber.Map{"data": resp})
}

type validatable interface {
	Validate() error
}

func bind(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("invalid request", dto.ValidationDetails(err))
	}
	return nil
}

func respond(c *fiber.Ctx, res *service.Result, err error) error {
	if err != nil {
		return serviceError(err)
	}
	if !res.Success {
		return resultError(res)
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:                 res.Token,
		ExpiresAt:             res.ExpiresAt,
		Username:              res.Username,
		CurrentRole:           res.CurrentRole,
		Roles:                 res.Roles,
		AvailableRoles:        res.AvailableRoles,
		RequiresRoleSelection: res.RequiresRoleSelection,
		OriginalUsername:      res.OriginalUsername,
		ImpersonationRole:     res.ImpersonationRole,
	}})
}

func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return apperrors.NewValidationError("invalid request", nil)
	case errors.Is(err, service.ErrOperationCanceled):
		return apperrors.NewCanceled(err)
	case errors.Is(err, service.ErrStoreUnavailable):
		return apperrors.NewUnavailable("user store unavailable", err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func resultError(res *service.Result) error {
	status := http.StatusForbidden
	switch res.Reason {
	case service.ReasonInvalidCredentials, service.ReasonInvalidToken, service.ReasonNotAuthenticated:
		status = http.StatusUnauthorized
	case service.ReasonInvalidRoleSelection, service.ReasonSingleRole:
		status = http.StatusBadRequest
	case service.ReasonUserNotFound:
		status = http.StatusNotFound
	case service.ReasonSystemError:
		status = http.StatusInternalServerError
	}
	return apperrors.NewDomainError(strings.ToUpper(string(res.Reason)), res.Message, status, nil)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
