package controllers

import (
	"net/http"
	"time"

	"github.com/hondusoft/fieldsales-backend/api/middleware"
	"github.com/hondusoft/fieldsales-backend/api/responses"
	"github.com/hondusoft/fieldsales-backend/api/validators"
	authsvc "github.com/hondusoft/fieldsales-backend/internal/auth"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
)

type loginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	SalesRepCode string    `json:"salesRepCode"`
	FullName     string    `json:"fullName"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthLogin proxies the credential check upstream and returns the local
// access token.
func AuthLogin(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload loginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload.UserName, payload.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, loginResponse{
			AccessToken:  result.AccessToken,
			SalesRepCode: result.SalesRepCode,
			FullName:     result.FullName,
			ExpiresAt:    result.ExpiresAt,
		})
	}
}

// AuthLogout revokes the caller's session.
func AuthLogout(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
