// Package middleware holds the Fiber middleware shared by every route: the
// auth gate, request logging, metrics, tracing and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"strings"

	"writeflow/internal/models"
	"writeflow/internal/token"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals populated by the auth gate.
const (
	LocalUserID   = "userID"
	LocalUsername = "username"
	LocalIdentity = "identity"
)

// TokenVerifier turns a bearer token into an identity.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Identity, error)
}

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if tok == "" || strings.Contains(tok, " ") {
		return "", false
	}
	return tok, true
}

// Authenticate resolves the caller's identity. A missing, malformed, invalid
// or revoked token yields nil; it is never an error.
// A nil revoked checker disables the revocation lookup.
func Authenticate(c *fiber.Ctx, verifier TokenVerifier, revoked RevocationChecker) *token.Identity {
	tok, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil
	}

	identity, err := verifier.Verify(tok)
	if err != nil {
		return nil
	}

	if revoked != nil && identity.TokenID != "" {
		isRevoked, err := revoked.IsRevoked(c.UserContext(), identity.TokenID)
		if err != nil {
			// Revocation store outage fails open; the token itself is still valid.
			Logger.WarnContext(c.UserContext(), "token revocation lookup failed", slog.String("error", err.Error()))
		} else if isRevoked {
			return nil
		}
	}

	return identity
}

func attachIdentity(c *fiber.Ctx, identity *token.Identity) {
	c.Locals(LocalUserID, identity.UserID)
	c.Locals(LocalUsername, identity.Username)
	c.Locals(LocalIdentity, identity)

	ctx := context.WithValue(c.UserContext(), UserIDKey, identity.UserID)
	ctx = context.WithValue(ctx, UsernameKey, identity.Username)
	c.SetUserContext(ctx)
}

// AuthRequired rejects anonymous callers with 401 before any handler runs.
func AuthRequired(verifier TokenVerifier, revoked RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := Authenticate(c, verifier, revoked)
		if identity == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Unauthorized"))
		}
		attachIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(verifier TokenVerifier, revoked RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identity := Authenticate(c, verifier, revoked); identity != nil {
			attachIdentity(c, identity)
		}
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthRequired or OptionalAuth.
func IdentityFrom(c *fiber.Ctx) *token.Identity {
	identity, _ := c.Locals(LocalIdentity).(*token.Identity)
	return identity
}
