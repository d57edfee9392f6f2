package cart

import (
	"github.com/shopspring/decimal"

	cartsvc "github.com/hondusoft/fieldsales-backend/internal/cart"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

type addItemRequest struct {
	ItemCode          string            `json:"itemCode" validate:"required"`
	ItemName          string            `json:"itemName" validate:"required"`
	BarCode           *string           `json:"barCode,omitempty"`
	ImageURL          *string           `json:"imageUrl,omitempty"`
	SalesUnit         *string           `json:"salesUnit,omitempty"`
	SalesItemsPerUnit int               `json:"salesItemsPerUnit,omitempty"`
	TaxType           string            `json:"taxType,omitempty"`
	ListPrice         decimal.Decimal   `json:"listPrice"`
	UnitPrice         *decimal.Decimal  `json:"unitPrice,omitempty"`
	Quantity          int               `json:"quantity"`
	MergeStrategy     string            `json:"mergeStrategy,omitempty" validate:"omitempty,oneof=replace reject_duplicate"`
	Tiers             []sap.ProductTier `json:"tiers,omitempty"`
}

func (p addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ItemCode:          p.ItemCode,
		ItemName:          p.ItemName,
		BarCode:           p.BarCode,
		ImageURL:          p.ImageURL,
		SalesUnit:         p.SalesUnit,
		SalesItemsPerUnit: p.SalesItemsPerUnit,
		TaxType:           p.TaxType,
		ListPrice:         p.ListPrice,
		UnitPrice:         p.UnitPrice,
		Quantity:          p.Quantity,
		Merge:             cartsvc.MergeStrategy(p.MergeStrategy),
		Tiers:             sap.ToPricingTiers(p.Tiers),
	}
}

type updateItemRequest struct {
	Quantity  *int             `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type setCustomerRequest struct {
	CardCode     string `json:"cardCode" validate:"required"`
	CardName     string `json:"cardName,omitempty"`
	FederalTaxID string `json:"federalTaxID,omitempty"`
	PriceListNum string `json:"priceListNum,omitempty"`
}

type setCommentsRequest struct {
	Comments string `json:"comments"`
}

type enterEditModeRequest struct {
	DocEntry int `json:"docEntry" validate:"required,min=1"`
}
