package controllers

import (
	"net/http"
	"strconv"

	"github.com/hondusoft/fieldsales-backend/api/middleware"
	"github.com/hondusoft/fieldsales-backend/api/responses"
	catalogsvc "github.com/hondusoft/fieldsales-backend/internal/catalog"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// CatalogProducts lists one page of products with their volume tiers.
func CatalogProducts(svc catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		query, err := catalogQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListProducts(r.Context(), middleware.UpstreamTokenFromContext(r.Context()), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func catalogQuery(r *http.Request) (sap.ProductQuery, error) {
	q := r.URL.Query()

	groupCode, err := strconv.Atoi(q.Get("groupCode"))
	if err != nil {
		return sap.ProductQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "groupCode must be an integer")
	}

	query := sap.ProductQuery{
		GroupCode:    groupCode,
		PriceListNum: q.Get("priceList"),
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return sap.ProductQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "page must be a positive integer")
		}
		query.Page = page
	}
	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return sap.ProductQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "pageSize must be a positive integer")
		}
		query.PageSize = size
	}
	return query, nil
}
