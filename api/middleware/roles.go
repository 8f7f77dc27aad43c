package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/stashbot/api/responses"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

// RequireRole admits requests whose authenticated role is one of roles.
// It must run after AdminAuth.
func RequireRole(logg *logger.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !slices.Contains(roles, role) {
				err := pkgerrors.New(pkgerrors.CodeForbidden, "operator role required").
					WithDetails(map[string]any{"required": roles})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
