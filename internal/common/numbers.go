package common

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal wraps decimal.Decimal with lenient JSON decoding. Upstream sources
// deliver monetary fields as numbers, quoted numbers, or null interchangeably;
// anything unparseable decodes as zero rather than failing the whole payload.
type Decimal struct {
	decimal.Decimal
}

// NewDecimal wraps a decimal value.
func NewDecimal(d decimal.Decimal) Decimal {
	return Decimal{Decimal: d}
}

// DecimalFromFloat builds a Decimal from a float64.
func DecimalFromFloat(f float64) Decimal {
	return Decimal{Decimal: decimal.NewFromFloat(f)}
}

// UnmarshalJSON accepts numbers, quoted numbers, empty strings and null.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		d.Decimal = decimal.Zero
		return nil
	}
	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			d.Decimal = decimal.Zero
			return nil
		}
	}
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		d.Decimal = decimal.Zero
		return nil
	}
	d.Decimal = parsed
	return nil
}

// MarshalJSON renders the value as a bare JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

// FlexInt decodes an integer that may arrive as a JSON number, a quoted
// number, or null. Unparseable input decodes as zero.
type FlexInt int

// UnmarshalJSON implements lenient integer decoding.
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*i = 0
		return nil
	}
	raw := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	// tolerate decimal notation like "3.0" coming from loosely typed forms
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		raw = raw[:idx]
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		*i = 0
		return nil
	}
	*i = FlexInt(parsed)
	return nil
}

// Int returns the plain integer value.
func (i FlexInt) Int() int { return int(i) }

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
