// Package collections shapes invoice-collection payments and records them
// upstream. The cart is never involved: a collection applies money to open
// invoices, it does not create documents locally.
package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// Method selects which settlement block of the payment is populated.
type Method string

const (
	MethodCash     Method = "cash"
	MethodTransfer Method = "transfer"
	MethodCheck    Method = "check"
	MethodCard     Method = "card"
)

const docDateLayout = time.RFC3339

type upstream interface {
	CreateIncomingPayment(ctx context.Context, token string, input sap.IncomingPaymentInput) (*sap.IncomingPayment, error)
}

// InvoiceApplication applies part of the collected amount to one invoice.
type InvoiceApplication struct {
	DocEntry   int
	SumApplied decimal.Decimal
	BalanceDue decimal.Decimal
}

// RecordInput is one collection visit: the customer, the settlement detail,
// and the invoices the amount is applied to. Latitude/Longitude come from
// the device at collection time.
type RecordInput struct {
	CardCode  string
	Method    Method
	Amount    decimal.Decimal
	Account   string
	Reference string
	ValueDate string
	Latitude  string
	Longitude string
	Invoices  []InvoiceApplication
}

// Service records invoice collections against the upstream.
type Service interface {
	Record(ctx context.Context, salesRepCode, upstreamToken string, input RecordInput) (*sap.IncomingPayment, error)
}

type service struct {
	upstream upstream
}

// NewService builds the collections service.
func NewService(up upstream) (Service, error) {
	if up == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	return &service{upstream: up}, nil
}

// Record validates the collection, shapes the payment for the method, and
// posts it upstream. Nothing is persisted locally; the upstream document is
// the record.
func (s *service) Record(ctx context.Context, salesRepCode, upstreamToken string, input RecordInput) (*sap.IncomingPayment, error) {
	payload, err := buildPayment(salesRepCode, input, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	payment, err := s.upstream.CreateIncomingPayment(ctx, upstreamToken, *payload)
	if err != nil {
		return nil, classifyUpstream(err)
	}
	return payment, nil
}

// buildPayment is pure: validation failures here never touch the network.
func buildPayment(salesRepCode string, input RecordInput, now time.Time) (*sap.IncomingPaymentInput, error) {
	if strings.TrimSpace(input.CardCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer card code is required")
	}
	if len(input.Invoices) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one invoice is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	invoices := make([]sap.PaymentInvoice, 0, len(input.Invoices))
	for _, inv := range input.Invoices {
		if inv.DocEntry <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice doc entry is required")
		}
		if !inv.SumApplied.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "applied amount must be positive")
		}
		if inv.SumApplied.GreaterThan(inv.BalanceDue) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "applied amount exceeds the invoice balance")
		}
		invoices = append(invoices, sap.PaymentInvoice{
			DocEntry:   inv.DocEntry,
			SumApplied: inv.SumApplied,
			BalanceDue: inv.BalanceDue,
		})
	}

	payload := &sap.IncomingPaymentInput{
		CardCode:        input.CardCode,
		SalesPersonCode: salesRepCode,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
		DocDate:         now.Format(docDateLayout),
		Checks:          []sap.PaymentCheck{},
		CreditCards:     []sap.PaymentCreditCard{},
		Invoices:        invoices,
	}

	switch input.Method {
	case MethodCash:
		payload.CashAccount = input.Account
		payload.CashSum = input.Amount
	case MethodTransfer:
		payload.TransferAccount = input.Account
		payload.TransferSum = input.Amount
		payload.TransferDate = input.ValueDate
		payload.TransferReference = input.Reference
	case MethodCheck:
		payload.Checks = []sap.PaymentCheck{{
			DueDate:     input.ValueDate,
			CheckNumber: input.Reference,
			CountryCode: "HN",
			BankCode:    input.Account,
			CheckSum:    input.Amount,
		}}
	case MethodCard:
		payload.CreditCards = []sap.PaymentCreditCard{{
			CreditCard:      input.Account,
			VoucherNum:      input.Reference,
			FirstPaymentDue: now.Format(docDateLayout),
			CreditSum:       input.Amount,
		}}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	return payload, nil
}

func classifyUpstream(err error) error {
	var apiErr *sap.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record collection")
}
