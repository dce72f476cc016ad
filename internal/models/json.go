package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Rates maps a target currency code to its multiplicative rate, stored as jsonb.
type Rates map[string]decimal.Decimal

// Value implements the driver.Valuer interface
func (r Rates) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]decimal.Decimal(r))
}

// Scan implements the sql.Scanner interface
func (r *Rates) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*r = Rates{}
		return nil
	default:
		return fmt.Errorf("unsupported rates column type %T", value)
	}
	out := map[string]decimal.Decimal{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*r = out
	return nil
}

// Copy returns an independent copy of r.
func (r Rates) Copy() Rates {
	out := make(Rates, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
