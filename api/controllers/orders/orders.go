package orders

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hondusoft/fieldsales-backend/api/middleware"
	"github.com/hondusoft/fieldsales-backend/api/responses"
	ordersvc "github.com/hondusoft/fieldsales-backend/internal/orders"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
)

// Submit turns the current cart into an upstream order. Edit mode patches
// the existing quotation instead of creating a new one.
func Submit(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repCode, err := repFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := middleware.UpstreamTokenFromContext(r.Context())
		order, err := svc.Submit(r.Context(), repCode, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// GetOrder fetches a single order by its upstream document entry.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := repFromContext(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		docEntry, err := strconv.Atoi(chi.URLParam(r, "docEntry"))
		if err != nil || docEntry <= 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "docEntry must be a positive integer"))
			return
		}

		token := middleware.UpstreamTokenFromContext(r.Context())
		order, err := svc.GetOrder(r.Context(), token, docEntry)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// LastOrder fetches the most recent order submitted from this rep's cart.
func LastOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repCode, err := repFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := middleware.UpstreamTokenFromContext(r.Context())
		order, err := svc.LastOrder(r.Context(), repCode, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func repFromContext(r *http.Request) (string, error) {
	repCode := middleware.SalesRepCodeFromContext(r.Context())
	if repCode == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing rep identity")
	}
	return repCode, nil
}
