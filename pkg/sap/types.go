package sap

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
)

// Customer is the business-partner record the rep sells against.
type Customer struct {
	CardCode     string `json:"cardCode"`
	CardName     string `json:"cardName"`
	FederalTaxID string `json:"federalTaxID"`
	PriceListNum string `json:"priceListNum"`
}

// OrderLine is one line of a submitted order/quotation as the upstream
// reports it back.
type OrderLine struct {
	ItemCode        string          `json:"itemCode"`
	ItemDescription string          `json:"itemDescription"`
	BarCode         *string         `json:"barCode"`
	Quantity        int             `json:"quantity"`
	PriceAfterVAT   decimal.Decimal `json:"priceAfterVAT"`
	TaxCode         string          `json:"taxCode"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
}

// Order mirrors the upstream order/quotation document.
type Order struct {
	DocEntry        int             `json:"docEntry"`
	DocNum          int             `json:"docNum"`
	CardCode        string          `json:"cardCode"`
	CardName        string          `json:"cardName"`
	FederalTaxID    string          `json:"federalTaxID"`
	Address         string          `json:"address"`
	DocDate         string          `json:"docDate"`
	VATSum          decimal.Decimal `json:"vatSum"`
	DocTotal        decimal.Decimal `json:"docTotal"`
	Comments        string          `json:"comments"`
	SalesPersonCode int             `json:"salesPersonCode"`
	Lines           []OrderLine     `json:"lines"`
}

// OrderLineInput is one line of an order payload being submitted.
// PriceList carries the undiscounted list price for backend audit;
// PriceAfterVAT carries the effective price resolved at submission time.
type OrderLineInput struct {
	ItemCode      string          `json:"itemCode"`
	Quantity      int             `json:"quantity"`
	PriceList     decimal.Decimal `json:"priceList"`
	PriceAfterVAT decimal.Decimal `json:"priceAfterVAT"`
	TaxCode       string          `json:"taxCode"`
}

// OrderInput is the create/update payload for the order backend.
type OrderInput struct {
	CardCode   string           `json:"cardCode"`
	DocDate    string           `json:"docDate"`
	DocDueDate string           `json:"docDueDate"`
	Comments   string           `json:"comments"`
	Lines      []OrderLineInput `json:"lines"`
}

// ProductTier is the wire shape of one volume-discount tier.
type ProductTier struct {
	Qty     int             `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	Percent decimal.Decimal `json:"percent"`
	Expiry  string          `json:"expiry"`
}

// ToPricing converts the wire tier into the shared pricing shape. An
// unparseable expiry degrades to no expiry rather than an error.
func (t ProductTier) ToPricing() pricing.Tier {
	tier := pricing.Tier{
		MinQuantity:     t.Qty,
		Price:           t.Price,
		DiscountPercent: t.Percent,
	}
	if t.Expiry != "" {
		if parsed, err := time.Parse("2006-01-02", t.Expiry); err == nil {
			tier.Expiry = &parsed
		}
	}
	return tier
}

// ToPricingTiers converts a tier list, preserving list order (the tie-break
// for duplicate thresholds depends on it).
func ToPricingTiers(tiers []ProductTier) []pricing.Tier {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]pricing.Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, t.ToPricing())
	}
	return out
}

// ProductDiscount is a catalog product with its tier list.
type ProductDiscount struct {
	ItemCode          string          `json:"itemCode"`
	ItemName          string          `json:"itemName"`
	GroupCode         int             `json:"groupCode"`
	GroupName         string          `json:"groupName"`
	InStock           int             `json:"inStock"`
	Committed         int             `json:"committed"`
	Ordered           int             `json:"ordered"`
	Price             decimal.Decimal `json:"price"`
	HasDiscount       bool            `json:"hasDiscount"`
	BarCode           *string         `json:"barCode"`
	SalesUnit         *string         `json:"salesUnit"`
	SalesItemsPerUnit int             `json:"salesItemsPerUnit"`
	ImageURL          *string         `json:"imageUrl"`
	TaxType           string          `json:"taxType"`
	Tiers             []ProductTier   `json:"tiers"`
}

// ProductPage is a paged catalog listing.
type ProductPage struct {
	Items    []ProductDiscount `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
}

// ProductQuery filters the catalog listing.
type ProductQuery struct {
	GroupCode    int
	PriceListNum string
	Page         int
	PageSize     int
}

// PaymentInvoice applies part of an incoming payment to one open invoice.
type PaymentInvoice struct {
	DocEntry   int             `json:"docEntry"`
	SumApplied decimal.Decimal `json:"sumApplied"`
	BalanceDue decimal.Decimal `json:"balanceDue"`
}

// PaymentCheck is the check detail of a check-settled collection.
type PaymentCheck struct {
	DueDate     string          `json:"dueDate"`
	CheckNumber string          `json:"checkNumber"`
	CountryCode string          `json:"countryCode"`
	BankCode    string          `json:"bankCode"`
	CheckSum    decimal.Decimal `json:"checkSum"`
}

// PaymentCreditCard is the voucher detail of a card-settled collection.
type PaymentCreditCard struct {
	CreditCard      string          `json:"creditCard"`
	VoucherNum      string          `json:"voucherNum"`
	FirstPaymentDue string          `json:"firstPaymentDue"`
	CreditSum       decimal.Decimal `json:"creditSum"`
}

// IncomingPaymentInput is the collection payload. Exactly one settlement
// block is populated depending on the payment method; the rest stay zero.
type IncomingPaymentInput struct {
	CardCode          string              `json:"cardCode"`
	SalesPersonCode   string              `json:"salesPersonCode"`
	Latitude          string              `json:"latitude"`
	Longitude         string              `json:"longitude"`
	DocDate           string              `json:"docDate"`
	CashAccount       string              `json:"cashAccount,omitempty"`
	CashSum           decimal.Decimal     `json:"cashSum"`
	TransferAccount   string              `json:"transferAccount,omitempty"`
	TransferSum       decimal.Decimal     `json:"transferSum"`
	TransferDate      string              `json:"transferDate,omitempty"`
	TransferReference string              `json:"transferReference,omitempty"`
	Checks            []PaymentCheck      `json:"paymentChecks"`
	CreditCards       []PaymentCreditCard `json:"paymentCreditCards"`
	Invoices          []PaymentInvoice    `json:"paymentInvoices"`
}

// IncomingPayment is the upstream acknowledgement of a recorded collection.
type IncomingPayment struct {
	DocEntry int `json:"docEntry"`
	DocNum   int `json:"docNum"`
}

// LoginRequest carries the rep credentials through to the upstream.
type LoginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// LoginResponse returns the opaque upstream token plus rep identity.
type LoginResponse struct {
	Token           string `json:"token"`
	SalesPersonCode int    `json:"salesPersonCode"`
	FullName        string `json:"fullName"`
}
