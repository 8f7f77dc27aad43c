package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/stashbot/api/responses"
	pkgAuth "github.com/angelmondragon/stashbot/pkg/auth"
	"github.com/angelmondragon/stashbot/pkg/config"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

// AdminAuth accepts "Authorization: Bearer <jwt>" minted for the configured
// admin and puts the operator on the request context.
func AdminAuth(cfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAdminToken(cfg, token)
			if err != nil {
				unauthorized(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithAdmin(r.Context(), claims.ChatID, claims.Role)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"admin_id": claims.ChatID, "token_id": claims.ID})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="stashbot-admin"`)
	responses.WriteError(r.Context(), logg, w, err)
}
