package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// UserKey is the context key RequireRole stores the signed-in user under.
const UserKey = "user"

// Identity reports the local auth state.
type Identity interface {
	State() domain.AuthState
}

// RequireRole lets the request through only when the local session holds
// one of the allowed roles. The check is local; no backend call is made.
func RequireRole(identity Identity, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	denied := "Access denied"
	if len(allowedRoles) > 0 {
		denied = "Access denied. " + allowedRoles[0].Label() + " privileges required."
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := identity.State().User()
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			}
			if _, ok := allowed[u.Role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": denied})
			}
			c.Set(UserKey, u)
			return next(c)
		}
	}
}
