package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hondusoft/fieldsales-backend/internal/pricing"
)

// TierList stores a line item's copied tier data as a JSON column. Tier data
// is snapshotted on each add-to-cart and never re-synced in the background.
type TierList []pricing.Tier

// Value marshals the tiers for storage. An empty list stores as [] so the
// column stays non-null for present-but-tierless items.
func (t TierList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	encoded, err := json.Marshal([]pricing.Tier(t))
	if err != nil {
		return nil, fmt.Errorf("tier list: %w", err)
	}
	return string(encoded), nil
}

// Scan decodes the stored JSON. Corrupted tier data fails open to an empty
// list: the line item survives with list pricing instead of poisoning the
// whole cart rehydration.
func (t *TierList) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*t = TierList{}
		return nil
	}

	var tiers []pricing.Tier
	if err := json.Unmarshal(raw, &tiers); err != nil {
		*t = TierList{}
		return nil
	}
	*t = TierList(tiers)
	return nil
}
