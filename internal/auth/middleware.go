package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/backbone-auth/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller as described by its token.
type Principal struct {
	Username string
	Claims   Claims
	Token    *Token
	// Impersonator is the original username when the token impersonates Username.
	Impersonator string
}

// IsImpersonating reports whether the caller acts on behalf of another user.
func (p *Principal) IsImpersonating() bool {
	return p.Claims.IsImpersonating()
}

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (*Token, error)
}

// AuthMiddleware validates bearer tokens. It performs no store lookups.
type AuthMiddleware struct {
	tokens TokenParser
	logger *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens TokenParser, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	token, err := m.tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		// the failure kind is logged but never returned to the caller
		m.logger.Debug("bearer token rejected", zap.String("path", c.Path()), zap.Error(err))
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, NewPrincipal(token))
	return c.Next()
}

// NewPrincipal builds a principal from a verified token.
func NewPrincipal(token *Token) *Principal {
	p := &Principal{
		Username: token.Claims.Subject(),
		Claims:   token.Claims,
		Token:    token,
	}
	if token.Claims.IsImpersonating() {
		p.Impersonator = token.Claims.OriginalUsername()
	}
	return p
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
