// Package pricing holds the volume-tier price resolution shared by the cart
// store and the order submission builder. Both call sites must agree on the
// same rule, so it lives here as pure functions.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a volume-discount rule: at or above MinQuantity units the line is
// charged Price per unit. DiscountPercent and Expiry are informational; an
// expired tier is still honored for pricing and only flagged for display.
type Tier struct {
	MinQuantity     int             `json:"minimumQuantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Expiry          *time.Time      `json:"expiry,omitempty"`
}

// Expired reports whether the tier's expiry date has passed at the given
// instant. Tiers without an expiry never expire.
func (t Tier) Expired(now time.Time) bool {
	return t.Expiry != nil && t.Expiry.Before(now)
}

// Resolution pairs the effective unit price with the tier that produced it.
// Tier is nil when no tier qualified and the base price applied.
type Resolution struct {
	UnitPrice decimal.Decimal
	Tier      *Tier
}

// Resolve picks the winning tier for the quantity: among tiers whose
// MinQuantity is met, the one with the largest MinQuantity wins. Equal
// thresholds resolve to the later entry in list order. With no qualifying
// tier the base price applies.
func Resolve(tiers []Tier, quantity int, basePrice decimal.Decimal) Resolution {
	selected := -1
	for i, tier := range tiers {
		if tier.MinQuantity > quantity {
			continue
		}
		if selected == -1 || tier.MinQuantity >= tiers[selected].MinQuantity {
			selected = i
		}
	}
	if selected == -1 {
		return Resolution{UnitPrice: basePrice}
	}
	return Resolution{UnitPrice: tiers[selected].Price, Tier: &tiers[selected]}
}

// ResolveUnitPrice returns just the effective unit price for the quantity.
func ResolveUnitPrice(tiers []Tier, quantity int, basePrice decimal.Decimal) decimal.Decimal {
	return Resolve(tiers, quantity, basePrice).UnitPrice
}

// PriceClamp reports the outcome of flooring a requested unit price, so
// callers can tell "valid as given" apart from "silently corrected".
type PriceClamp struct {
	Price      decimal.Decimal
	WasClamped bool
}

// ClampUnitPrice floors a manual price override at the undiscounted list
// price. Reps may round a price up, never discount below the list.
func ClampUnitPrice(requested, floor decimal.Decimal) PriceClamp {
	if requested.LessThan(floor) {
		return PriceClamp{Price: floor, WasClamped: true}
	}
	return PriceClamp{Price: requested}
}

// QuantityClamp reports the outcome of flooring a requested quantity.
type QuantityClamp struct {
	Quantity   int
	WasClamped bool
}

// ClampQuantity floors a stored quantity at one. Zero or negative requests
// mean removal and are handled by the caller before pricing is involved.
func ClampQuantity(requested int) QuantityClamp {
	if requested < 1 {
		return QuantityClamp{Quantity: 1, WasClamped: true}
	}
	return QuantityClamp{Quantity: requested}
}

// LineTotal multiplies the effective unit price into the line amount.
func LineTotal(tiers []Tier, quantity int, basePrice decimal.Decimal) decimal.Decimal {
	return ResolveUnitPrice(tiers, quantity, basePrice).Mul(decimal.NewFromInt(int64(quantity)))
}
