package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hondusoft/fieldsales-backend/api/responses"
	pkgauth "github.com/hondusoft/fieldsales-backend/pkg/auth"
	"github.com/hondusoft/fieldsales-backend/pkg/auth/session"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
)

// Auth validates the bearer token, resolves the session's upstream token,
// and seeds the request context with the rep identity. A token whose session
// has expired or was revoked is rejected even if the JWT itself is valid.
func Auth(cfg config.JWTConfig, sessions session.UpstreamTokenResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.ID == "" || claims.SalesRepCode == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "incomplete token"))
				return
			}

			upstreamToken, err := sessions.UpstreamToken(r.Context(), claims.ID)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxSalesRepCode, claims.SalesRepCode)
			ctx = context.WithValue(ctx, ctxSessionID, claims.ID)
			ctx = context.WithValue(ctx, ctxUpstreamToken, upstreamToken)

			if logg != nil {
				ctx = logg.WithSalesRep(ctx, claims.SalesRepCode)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
