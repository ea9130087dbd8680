package account

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/stackhouselabs/taskloop/internal/apperror"
	"github.com/stackhouselabs/taskloop/internal/session"
)

// contextKeyIdentity is the Echo context key the verified claims are stored
// under. Other plugins read it via the exported getters below.
const contextKeyIdentity = "auth_identity"

// RequireAuth returns middleware that validates the session token cookie
// and injects the verified identity into the request context. A missing
// token is rejected with 401, an invalid or expired one with 403, and the
// protected handler is never invoked on failure.
func RequireAuth(tokens *session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := tokens.Verify(getTokenCookie(c))
			if err != nil {
				if errors.Is(err, session.ErrNoToken) {
					return apperror.NewUnauthorized("no token provided")
				}
				// Invalid or expired -- clear the stale cookie.
				clearTokenCookie(c)
				return apperror.NewForbidden("invalid or expired token")
			}

			c.Set(contextKeyIdentity, claims)

			return next(c)
		}
	}
}

// GetIdentity retrieves the verified token claims from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetIdentity(c echo.Context) *session.Claims {
	claims, ok := c.Get(contextKeyIdentity).(*session.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user's id from the Echo context.
// Returns 0 if the request is not authenticated.
func GetUserID(c echo.Context) int {
	claims := GetIdentity(c)
	if claims == nil {
		return 0
	}
	return claims.UserID
}
