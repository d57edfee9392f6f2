package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hondusoft/fieldsales-backend/api/middleware"
	"github.com/hondusoft/fieldsales-backend/api/responses"
	"github.com/hondusoft/fieldsales-backend/api/validators"
	collectionsvc "github.com/hondusoft/fieldsales-backend/internal/collections"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
)

type collectionInvoiceRequest struct {
	DocEntry   int             `json:"docEntry" validate:"required,min=1"`
	SumApplied decimal.Decimal `json:"sumApplied"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
}

type recordCollectionRequest struct {
	CardCode  string                     `json:"cardCode" validate:"required"`
	Method    string                     `json:"method" validate:"required,oneof=cash transfer check card"`
	Amount    decimal.Decimal            `json:"amount"`
	Account   string                     `json:"account,omitempty"`
	Reference string                     `json:"reference,omitempty"`
	ValueDate string                     `json:"valueDate,omitempty"`
	Latitude  string                     `json:"latitude,omitempty"`
	Longitude string                     `json:"longitude,omitempty"`
	Invoices  []collectionInvoiceRequest `json:"invoices" validate:"required,min=1,dive"`
}

// RecordCollection applies a payment against the customer's open invoices.
func RecordCollection(svc collectionsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "collections service unavailable"))
			return
		}

		repCode := middleware.SalesRepCodeFromContext(r.Context())
		if repCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing rep identity"))
			return
		}

		var payload recordCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoices := make([]collectionsvc.InvoiceApplication, 0, len(payload.Invoices))
		for _, inv := range payload.Invoices {
			invoices = append(invoices, collectionsvc.InvoiceApplication{
				DocEntry:   inv.DocEntry,
				SumApplied: inv.SumApplied,
				BalanceDue: inv.BalanceDue,
			})
		}

		payment, err := svc.Record(r.Context(), repCode, middleware.UpstreamTokenFromContext(r.Context()), collectionsvc.RecordInput{
			CardCode:  payload.CardCode,
			Method:    collectionsvc.Method(payload.Method),
			Amount:    payload.Amount,
			Account:   payload.Account,
			Reference: payload.Reference,
			ValueDate: payload.ValueDate,
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			Invoices:  invoices,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}
