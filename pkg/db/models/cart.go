package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hondusoft/fieldsales-backend/pkg/db/types"
)

// Cart is the single durable cart per sales rep. The row survives clears
// and submissions; only its line items and edit/customer fields change.
type Cart struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SalesRepCode string    `gorm:"column:sales_rep_code;uniqueIndex;not null"`

	CustomerCardCode     *string `gorm:"column:customer_card_code"`
	CustomerCardName     *string `gorm:"column:customer_card_name"`
	CustomerFederalTaxID *string `gorm:"column:customer_federal_tax_id"`
	CustomerPriceListNum *string `gorm:"column:customer_price_list_num"`

	EditingDocEntry *int                `gorm:"column:editing_doc_entry"`
	EditingSnapshot types.OrderSnapshot `gorm:"column:editing_snapshot;type:text"`

	OrderComments     string `gorm:"column:order_comments;not null;default:''"`
	LastOrderDocEntry *int   `gorm:"column:last_order_doc_entry"`

	LineItems []CartLineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key for drivers without a uuid default.
func (c *Cart) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CartLineItem is one product entry, priced with the tier data copied from
// the catalog at add time. OriginalPrice never changes after the first add;
// UnitPrice may be overridden upward by the rep.
type CartLineItem struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_item_code,priority:1"`

	ItemCode          string  `gorm:"column:item_code;not null;uniqueIndex:idx_cart_item_code,priority:2"`
	ItemName          string  `gorm:"column:item_name;not null"`
	BarCode           *string `gorm:"column:bar_code"`
	ImageURL          *string `gorm:"column:image_url"`
	SalesUnit         *string `gorm:"column:sales_unit"`
	SalesItemsPerUnit int     `gorm:"column:sales_items_per_unit;not null;default:1"`
	TaxType           string  `gorm:"column:tax_type;not null;default:''"`

	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(19,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(19,4);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	Position      int             `gorm:"column:position;not null"`
	Tiers         types.TierList  `gorm:"column:tiers;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key for drivers without a uuid default.
func (i *CartLineItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
