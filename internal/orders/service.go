// Package orders builds and submits order payloads from the cart. The
// builder re-resolves every line price at submission time so the payload
// always reflects the tier rules, regardless of what any client displayed.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

const docDateLayout = "2006-01-02"

type cartStore interface {
	Load(ctx context.Context, salesRepCode string) (*models.Cart, error)
	CompleteSubmission(ctx context.Context, salesRepCode string, docEntry int) error
}

type upstream interface {
	CreateOrder(ctx context.Context, token string, input sap.OrderInput) (*sap.Order, error)
	UpdateQuotation(ctx context.Context, token string, docEntry int, input sap.OrderInput) (*sap.Order, error)
	GetQuotation(ctx context.Context, token string, docEntry int) (*sap.Order, error)
}

// Service submits carts as orders and reads submitted orders back.
type Service interface {
	Submit(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error)
	GetOrder(ctx context.Context, upstreamToken string, docEntry int) (*sap.Order, error)
	LastOrder(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error)
}

type service struct {
	cart     cartStore
	upstream upstream
	log      *logger.Logger
	location *time.Location
	dueDays  int
}

// NewService builds the order service. The configured timezone must resolve
// to a real location; the business date depends on it.
func NewService(cart cartStore, up upstream, log *logger.Logger, cfg config.OrdersConfig) (Service, error) {
	if cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if up == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading orders timezone %q: %w", cfg.Timezone, err)
	}
	return &service{
		cart:     cart,
		upstream: up,
		log:      log,
		location: location,
		dueDays:  cfg.DueDays,
	}, nil
}

// Submit validates the cart, builds the payload, and creates the order (or
// patches the quotation being edited). The cart is only reset after the
// upstream accepts; any failure leaves cart, edit state, and comments as
// they were.
func (s *service) Submit(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error) {
	record, err := s.cart.Load(ctx, salesRepCode)
	if err != nil {
		return nil, err
	}

	input, err := buildPayload(record, time.Now().In(s.location), s.dueDays)
	if err != nil {
		return nil, err
	}

	var order *sap.Order
	if record.EditingDocEntry != nil {
		order, err = s.upstream.UpdateQuotation(ctx, upstreamToken, *record.EditingDocEntry, *input)
	} else {
		order, err = s.upstream.CreateOrder(ctx, upstreamToken, *input)
	}
	if err != nil {
		return nil, classifyUpstream(err, "submit order")
	}

	if err := s.cart.CompleteSubmission(ctx, salesRepCode, order.DocEntry); err != nil {
		// The order is in; losing the local reset must not look like a
		// failed submission.
		s.log.Error(ctx, "order submitted but cart reset failed", err)
	}
	return order, nil
}

// GetOrder fetches a submitted order for display.
func (s *service) GetOrder(ctx context.Context, upstreamToken string, docEntry int) (*sap.Order, error) {
	if docEntry <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "doc entry is required")
	}
	order, err := s.upstream.GetQuotation(ctx, upstreamToken, docEntry)
	if err != nil {
		return nil, classifyUpstream(err, "load order")
	}
	return order, nil
}

// LastOrder fetches the most recently submitted order for the rep.
func (s *service) LastOrder(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error) {
	record, err := s.cart.Load(ctx, salesRepCode)
	if err != nil {
		return nil, err
	}
	if record.LastOrderDocEntry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order has been submitted yet")
	}
	return s.GetOrder(ctx, upstreamToken, *record.LastOrderDocEntry)
}

// buildPayload turns the cart into the upstream order shape. It is pure:
// validation failures here never touch the network.
func buildPayload(record *models.Cart, now time.Time, dueDays int) (*sap.OrderInput, error) {
	if record == nil || record.CustomerCardCode == nil || *record.CustomerCardCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a customer must be selected before submitting")
	}
	if len(record.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]sap.OrderLineInput, 0, len(record.LineItems))
	for _, item := range record.LineItems {
		effective := pricing.ResolveUnitPrice([]pricing.Tier(item.Tiers), item.Quantity, item.UnitPrice)
		lines = append(lines, sap.OrderLineInput{
			ItemCode:      item.ItemCode,
			Quantity:      item.Quantity,
			PriceList:     item.OriginalPrice,
			PriceAfterVAT: effective,
			TaxCode:       item.TaxType,
		})
	}

	docDate := now.Format(docDateLayout)
	return &sap.OrderInput{
		CardCode:   *record.CustomerCardCode,
		DocDate:    docDate,
		DocDueDate: now.AddDate(0, 0, dueDays).Format(docDateLayout),
		Comments:   record.OrderComments,
		Lines:      lines,
	}, nil
}

func classifyUpstream(err error, action string) error {
	var apiErr *sap.APIError
	if errors.As(err, &apiErr) && apiErr.NotFound() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
