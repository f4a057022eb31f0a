package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ymzhao891/medichat/internal/identity"
)

const principalKey = "principal"

// Authenticate resolves the bearer token into a principal and stores it on
// the request context.
func (h *Handler) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		principal, err := h.verifier.Verify(c.Request().Context(), token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		c.Set(principalKey, principal)
		return next(c)
	}
}

// principalFrom returns the authenticated principal set by Authenticate.
func principalFrom(c echo.Context) *identity.Principal {
	p, _ := c.Get(principalKey).(*identity.Principal)
	return p
}

// authorize checks the operation against the access policy for the caller's
// role. It writes the 403 response itself and reports whether to proceed.
func (h *Handler) authorize(c echo.Context, operation string) bool {
	principal := principalFrom(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing principal"})
		return false
	}

	allowed, err := h.policy.Allow(c.Request().Context(), operation, principal.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, map[string]string{"error": "policy evaluation failed"})
		return false
	}
	if !allowed {
		c.JSON(http.StatusForbidden, map[string]string{"error": "operation not permitted for role " + string(principal.Role)})
		return false
	}
	return true
}
