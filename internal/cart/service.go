// Package cart owns the single durable cart each sales rep works against.
// Every mutation is written through to storage inside a transaction and
// returns a freshly computed snapshot; prices are never stored resolved.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	dbtypes "github.com/hondusoft/fieldsales-backend/pkg/db/types"
	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// MergeStrategy decides what adding an itemCode already in the cart does.
type MergeStrategy string

const (
	// MergeReplace overwrites the existing line's quantity and price.
	MergeReplace MergeStrategy = "replace"
	// MergeReject refuses the add with a conflict error.
	MergeReject MergeStrategy = "reject_duplicate"
)

// Service exposes the cart operations.
type Service interface {
	Snapshot(ctx context.Context, salesRepCode string) (*View, error)
	AddLineItem(ctx context.Context, salesRepCode string, input AddItemInput) (*View, error)
	UpdateLineItem(ctx context.Context, salesRepCode, itemCode string, input UpdateItemInput) (*View, error)
	RemoveLineItem(ctx context.Context, salesRepCode, itemCode string) (*View, error)
	ClearCart(ctx context.Context, salesRepCode string) (*View, error)
	SetCustomer(ctx context.Context, salesRepCode string, customer sap.Customer) (*View, error)
	ClearCustomer(ctx context.Context, salesRepCode string) (*View, error)
	SetComments(ctx context.Context, salesRepCode, comments string) (*View, error)
	EnterEditMode(ctx context.Context, salesRepCode, upstreamToken string, docEntry int) (*View, error)
	ClearEditMode(ctx context.Context, salesRepCode string) (*View, error)

	// Load and CompleteSubmission serve the order submission flow.
	Load(ctx context.Context, salesRepCode string) (*models.Cart, error)
	CompleteSubmission(ctx context.Context, salesRepCode string, docEntry int) error
}

type service struct {
	repo   CartRepository
	tx     txRunner
	orders orderLoader
	policy config.CartConfig
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, orders orderLoader, policy config.CartConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		orders: orders,
		policy: policy,
	}, nil
}

// AddItemInput carries the catalog snapshot copied into the cart at add
// time. Tier data is frozen here; later catalog changes never reprice a
// line already in the cart.
type AddItemInput struct {
	ItemCode          string
	ItemName          string
	BarCode           *string
	ImageURL          *string
	SalesUnit         *string
	SalesItemsPerUnit int
	TaxType           string
	ListPrice         decimal.Decimal
	Tiers             []pricing.Tier
	Quantity          int
	UnitPrice         *decimal.Decimal
	Merge             MergeStrategy
}

// UpdateItemInput adjusts an existing line. Nil fields are untouched.
type UpdateItemInput struct {
	Quantity  *int
	UnitPrice *decimal.Decimal
}

// Snapshot returns the cart with every price resolved for the stored
// quantities. A rep with no persisted cart gets an empty snapshot.
func (s *service) Snapshot(ctx context.Context, salesRepCode string) (*View, error) {
	record, err := s.Load(ctx, salesRepCode)
	if err != nil {
		return nil, err
	}
	return buildView(record, time.Now()), nil
}

// Load reads the persisted cart. A missing row fails open to an empty cart.
func (s *service) Load(ctx context.Context, salesRepCode string) (*models.Cart, error) {
	if strings.TrimSpace(salesRepCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sales rep code is required")
	}
	record, err := s.repo.FindBySalesRep(ctx, salesRepCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{SalesRepCode: salesRepCode}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return record, nil
}

// AddLineItem inserts or merges a line. OriginalPrice is fixed at the first
// add; manual price overrides are floored at it. A quantity of zero or less
// removes the line instead of adding it.
func (s *service) AddLineItem(ctx context.Context, salesRepCode string, input AddItemInput) (*View, error) {
	if strings.TrimSpace(input.ItemCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item code is required")
	}
	if strings.TrimSpace(input.ItemName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if input.ListPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "list price cannot be negative")
	}
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	merge := input.Merge
	if merge == "" {
		merge = MergeReplace
	}
	if merge != MergeReplace && merge != MergeReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown merge strategy")
	}

	// A non-positive quantity means removal, mirroring the update path.
	if input.Quantity <= 0 {
		return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
			if idx := findLine(record.LineItems, input.ItemCode); idx >= 0 {
				record.LineItems = append(record.LineItems[:idx], record.LineItems[idx+1:]...)
			}
			return nil
		})
	}
	quantity := input.Quantity

	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		idx := findLine(record.LineItems, input.ItemCode)
		if idx >= 0 {
			if merge == MergeReject {
				return pkgerrors.New(pkgerrors.CodeConflict, "item already in cart")
			}
			line := &record.LineItems[idx]
			line.Quantity = quantity
			line.UnitPrice = resolveOverride(input.UnitPrice, line.OriginalPrice)
			// A re-add comes from the catalog screen, which carries
			// fresher tier data than the stored line.
			line.Tiers = dbtypes.TierList(input.Tiers)
			return nil
		}

		unitPrice := resolveOverride(input.UnitPrice, input.ListPrice)
		record.LineItems = append(record.LineItems, models.CartLineItem{
			ItemCode:          input.ItemCode,
			ItemName:          input.ItemName,
			BarCode:           input.BarCode,
			ImageURL:          input.ImageURL,
			SalesUnit:         input.SalesUnit,
			SalesItemsPerUnit: max(input.SalesItemsPerUnit, 1),
			TaxType:           input.TaxType,
			OriginalPrice:     input.ListPrice,
			UnitPrice:         unitPrice,
			Quantity:          quantity,
			Position:          nextPosition(record.LineItems),
			Tiers:             dbtypes.TierList(input.Tiers),
		})
		return nil
	})
}

// UpdateLineItem changes quantity and/or price on an existing line. A
// quantity of zero or less removes the line; an unknown itemCode is a no-op.
func (s *service) UpdateLineItem(ctx context.Context, salesRepCode, itemCode string, input UpdateItemInput) (*View, error) {
	if input.UnitPrice != nil && input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		idx := findLine(record.LineItems, itemCode)
		if idx < 0 {
			return nil
		}
		if input.Quantity != nil && *input.Quantity <= 0 {
			record.LineItems = append(record.LineItems[:idx], record.LineItems[idx+1:]...)
			return nil
		}
		line := &record.LineItems[idx]
		if input.Quantity != nil {
			line.Quantity = pricing.ClampQuantity(*input.Quantity).Quantity
		}
		if input.UnitPrice != nil {
			line.UnitPrice = pricing.ClampUnitPrice(*input.UnitPrice, line.OriginalPrice).Price
		}
		return nil
	})
}

// RemoveLineItem drops a line. Unknown itemCodes are a no-op.
func (s *service) RemoveLineItem(ctx context.Context, salesRepCode, itemCode string) (*View, error) {
	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		idx := findLine(record.LineItems, itemCode)
		if idx >= 0 {
			record.LineItems = append(record.LineItems[:idx], record.LineItems[idx+1:]...)
		}
		return nil
	})
}

// ClearCart empties the line items only. The customer selection, comments,
// and edit state survive; each has its own clearing operation.
func (s *service) ClearCart(ctx context.Context, salesRepCode string) (*View, error) {
	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		record.LineItems = nil
		return nil
	})
}

// SetCustomer selects the customer the cart will be submitted against.
func (s *service) SetCustomer(ctx context.Context, salesRepCode string, customer sap.Customer) (*View, error) {
	if strings.TrimSpace(customer.CardCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer card code is required")
	}

	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		changed := record.CustomerCardCode != nil && *record.CustomerCardCode != customer.CardCode
		if changed && s.policy.ClearOnCustomerChange {
			record.LineItems = nil
		}
		record.CustomerCardCode = &customer.CardCode
		record.CustomerCardName = &customer.CardName
		record.CustomerFederalTaxID = &customer.FederalTaxID
		record.CustomerPriceListNum = &customer.PriceListNum
		return nil
	})
}

// ClearCustomer deselects the customer, leaving the line items alone.
func (s *service) ClearCustomer(ctx context.Context, salesRepCode string) (*View, error) {
	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		record.CustomerCardCode = nil
		record.CustomerCardName = nil
		record.CustomerFederalTaxID = nil
		record.CustomerPriceListNum = nil
		return nil
	})
}

// SetComments replaces the free-text order comments.
func (s *service) SetComments(ctx context.Context, salesRepCode, comments string) (*View, error) {
	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		record.OrderComments = comments
		return nil
	})
}

// EnterEditMode loads an existing order and replaces the cart wholesale with
// its lines, customer, and comments. Entering while already editing discards
// the previous edit state first.
func (s *service) EnterEditMode(ctx context.Context, salesRepCode, upstreamToken string, docEntry int) (*View, error) {
	if docEntry <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "doc entry is required")
	}

	order, err := s.orders.GetQuotation(ctx, upstreamToken, docEntry)
	if err != nil {
		var apiErr *sap.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for editing")
	}

	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		resetWorkingState(record)

		record.CustomerCardCode = &order.CardCode
		record.CustomerCardName = &order.CardName
		record.CustomerFederalTaxID = &order.FederalTaxID
		record.OrderComments = order.Comments
		record.EditingDocEntry = &docEntry
		record.EditingSnapshot = dbtypes.OrderSnapshot{Order: order}

		for i, line := range order.Lines {
			record.LineItems = append(record.LineItems, models.CartLineItem{
				ItemCode:          line.ItemCode,
				ItemName:          line.ItemDescription,
				BarCode:           line.BarCode,
				SalesItemsPerUnit: 1,
				TaxType:           line.TaxCode,
				OriginalPrice:     line.PriceAfterVAT,
				UnitPrice:         line.PriceAfterVAT,
				Quantity:          pricing.ClampQuantity(line.Quantity).Quantity,
				Position:          i,
			})
		}
		return nil
	})
}

// ClearEditMode abandons an in-progress edit: edit state, lines, and
// comments are dropped. The customer selection survives.
func (s *service) ClearEditMode(ctx context.Context, salesRepCode string) (*View, error) {
	return s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		record.EditingDocEntry = nil
		record.EditingSnapshot = dbtypes.OrderSnapshot{}
		record.OrderComments = ""
		record.LineItems = nil
		return nil
	})
}

// CompleteSubmission resets the cart after a successful order submission
// and records the submitted docEntry for read-back.
func (s *service) CompleteSubmission(ctx context.Context, salesRepCode string, docEntry int) error {
	_, err := s.mutate(ctx, salesRepCode, func(record *models.Cart) error {
		resetWorkingState(record)
		record.LastOrderDocEntry = &docEntry
		return nil
	})
	return err
}

func (s *service) mutate(ctx context.Context, salesRepCode string, fn func(record *models.Cart) error) (*View, error) {
	if strings.TrimSpace(salesRepCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sales rep code is required")
	}

	var saved *models.Cart
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindBySalesRep(ctx, salesRepCode)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			record, err = repo.Create(ctx, &models.Cart{SalesRepCode: salesRepCode})
			if err != nil {
				return err
			}
		}

		if err := fn(record); err != nil {
			return err
		}

		renumber(record.LineItems)
		if _, err := repo.Update(ctx, record); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, record.ID, record.LineItems); err != nil {
			return err
		}

		saved, err = repo.FindBySalesRep(ctx, salesRepCode)
		return err
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return buildView(saved, time.Now()), nil
}

func resetWorkingState(record *models.Cart) {
	record.LineItems = nil
	record.CustomerCardCode = nil
	record.CustomerCardName = nil
	record.CustomerFederalTaxID = nil
	record.CustomerPriceListNum = nil
	record.OrderComments = ""
	record.EditingDocEntry = nil
	record.EditingSnapshot = dbtypes.OrderSnapshot{}
}

func resolveOverride(requested *decimal.Decimal, floor decimal.Decimal) decimal.Decimal {
	if requested == nil {
		return floor
	}
	return pricing.ClampUnitPrice(*requested, floor).Price
}

func findLine(items []models.CartLineItem, itemCode string) int {
	for i, item := range items {
		if item.ItemCode == itemCode {
			return i
		}
	}
	return -1
}

func nextPosition(items []models.CartLineItem) int {
	next := 0
	for _, item := range items {
		if item.Position >= next {
			next = item.Position + 1
		}
	}
	return next
}

func renumber(items []models.CartLineItem) {
	for i := range items {
		items[i].Position = i
	}
}
