package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

// OrderSnapshot stores the upstream order document captured when the rep
// entered edit mode, as a JSON column.
type OrderSnapshot struct {
	Order *sap.Order
}

// Value marshals the snapshot. A nil snapshot stores NULL.
func (s OrderSnapshot) Value() (driver.Value, error) {
	if s.Order == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(s.Order)
	if err != nil {
		return nil, fmt.Errorf("order snapshot: %w", err)
	}
	return string(encoded), nil
}

// Scan decodes the stored JSON. Corruption fails open to no snapshot so a
// bad row cannot block cart rehydration.
func (s *OrderSnapshot) Scan(value any) error {
	s.Order = nil
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}

	var order sap.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil
	}
	s.Order = &order
	return nil
}
