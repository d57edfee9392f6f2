package cart

import (
	"time"

	"github.com/shopspring/decimal"

	cartsvc "github.com/hondusoft/fieldsales-backend/internal/cart"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

type tierResponse struct {
	MinimumQuantity int             `json:"minimumQuantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Expiry          *time.Time      `json:"expiry,omitempty"`
	Expired         bool            `json:"expired"`
}

type lineItemResponse struct {
	ItemCode          string          `json:"itemCode"`
	ItemName          string          `json:"itemName"`
	BarCode           *string         `json:"barCode,omitempty"`
	ImageURL          *string         `json:"imageUrl,omitempty"`
	SalesUnit         *string         `json:"salesUnit,omitempty"`
	SalesItemsPerUnit int             `json:"salesItemsPerUnit"`
	TaxType           string          `json:"taxType"`
	Quantity          int             `json:"quantity"`
	OriginalPrice     decimal.Decimal `json:"originalPrice"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	EffectivePrice    decimal.Decimal `json:"effectivePrice"`
	LineTotal         decimal.Decimal `json:"lineTotal"`
	Tiers             []tierResponse  `json:"tiers,omitempty"`
	ActiveTierMinQty  *int            `json:"activeTierMinimumQuantity,omitempty"`
	ActiveTierExpired bool            `json:"activeTierExpired,omitempty"`
}

type cartResponse struct {
	Customer          *sap.Customer      `json:"customer,omitempty"`
	EditingDocEntry   *int               `json:"editingDocEntry,omitempty"`
	Comments          string             `json:"comments"`
	LastOrderDocEntry *int               `json:"lastOrderDocEntry,omitempty"`
	Items             []lineItemResponse `json:"items"`
	ItemCount         int                `json:"itemCount"`
	OrderTotal        decimal.Decimal    `json:"orderTotal"`
}

func newCartResponse(view *cartsvc.View) cartResponse {
	now := time.Now()
	items := make([]lineItemResponse, 0, len(view.Lines))
	for _, line := range view.Lines {
		tiers := make([]tierResponse, 0, len(line.Tiers))
		for _, tier := range line.Tiers {
			tiers = append(tiers, tierResponse{
				MinimumQuantity: tier.MinQuantity,
				Price:           tier.Price,
				DiscountPercent: tier.DiscountPercent,
				Expiry:          tier.Expiry,
				Expired:         tier.Expired(now),
			})
		}
		items = append(items, lineItemResponse{
			ItemCode:          line.ItemCode,
			ItemName:          line.ItemName,
			BarCode:           line.BarCode,
			ImageURL:          line.ImageURL,
			SalesUnit:         line.SalesUnit,
			SalesItemsPerUnit: line.SalesItemsPerUnit,
			TaxType:           line.TaxType,
			Quantity:          line.Quantity,
			OriginalPrice:     line.OriginalPrice,
			UnitPrice:         line.UnitPrice,
			EffectivePrice:    line.EffectivePrice,
			LineTotal:         line.LineTotal,
			Tiers:             tiers,
			ActiveTierMinQty:  line.ActiveTierMinQty,
			ActiveTierExpired: line.ActiveTierExpired,
		})
	}

	return cartResponse{
		Customer:          view.Customer,
		EditingDocEntry:   view.EditingDocEntry,
		Comments:          view.Comments,
		LastOrderDocEntry: view.LastOrderDocEntry,
		Items:             items,
		ItemCount:         view.ItemCount,
		OrderTotal:        view.OrderTotal,
	}
}
