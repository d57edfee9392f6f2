package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// LineView is one cart line with its prices resolved for the stored
// quantity. EffectivePrice and LineTotal are recomputed on every read, never
// stored.
type LineView struct {
	ItemCode          string
	ItemName          string
	BarCode           *string
	ImageURL          *string
	SalesUnit         *string
	SalesItemsPerUnit int
	TaxType           string
	Quantity          int
	OriginalPrice     decimal.Decimal
	UnitPrice         decimal.Decimal
	EffectivePrice    decimal.Decimal
	LineTotal         decimal.Decimal
	Tiers             []pricing.Tier
	ActiveTierMinQty  *int
	ActiveTierExpired bool
}

// View is the cart snapshot returned by every read and mutation.
type View struct {
	Customer          *sap.Customer
	EditingDocEntry   *int
	Comments          string
	LastOrderDocEntry *int
	Lines             []LineView
	ItemCount         int
	OrderTotal        decimal.Decimal
}

// Empty reports whether the cart has no line items.
func (v *View) Empty() bool {
	return len(v.Lines) == 0
}

func buildView(record *models.Cart, now time.Time) *View {
	view := &View{
		OrderTotal: decimal.Zero,
	}
	if record == nil {
		return view
	}

	view.Comments = record.OrderComments
	view.EditingDocEntry = copyIntPtr(record.EditingDocEntry)
	view.LastOrderDocEntry = copyIntPtr(record.LastOrderDocEntry)
	if record.CustomerCardCode != nil {
		view.Customer = &sap.Customer{
			CardCode:     *record.CustomerCardCode,
			CardName:     derefString(record.CustomerCardName),
			FederalTaxID: derefString(record.CustomerFederalTaxID),
			PriceListNum: derefString(record.CustomerPriceListNum),
		}
	}

	view.Lines = make([]LineView, 0, len(record.LineItems))
	for _, item := range record.LineItems {
		line := buildLineView(item, now)
		view.OrderTotal = view.OrderTotal.Add(line.LineTotal)
		view.Lines = append(view.Lines, line)
	}
	view.ItemCount = len(view.Lines)
	return view
}

func buildLineView(item models.CartLineItem, now time.Time) LineView {
	tiers := []pricing.Tier(item.Tiers)
	res := pricing.Resolve(tiers, item.Quantity, item.UnitPrice)

	line := LineView{
		ItemCode:          item.ItemCode,
		ItemName:          item.ItemName,
		BarCode:           item.BarCode,
		ImageURL:          item.ImageURL,
		SalesUnit:         item.SalesUnit,
		SalesItemsPerUnit: item.SalesItemsPerUnit,
		TaxType:           item.TaxType,
		Quantity:          item.Quantity,
		OriginalPrice:     item.OriginalPrice,
		UnitPrice:         item.UnitPrice,
		EffectivePrice:    res.UnitPrice,
		LineTotal:         res.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		Tiers:             tiers,
	}
	if res.Tier != nil {
		minQty := res.Tier.MinQuantity
		line.ActiveTierMinQty = &minQty
		// Expiry never gates pricing; an expired active tier is flagged so
		// the app can badge the stale discount.
		line.ActiveTierExpired = res.Tier.Expired(now)
	}
	return line
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}

func derefString(src *string) string {
	if src == nil {
		return ""
	}
	return *src
}
