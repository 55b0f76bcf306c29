package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mode records which of margin and sell price the user edited last. The
// other field is derived and gets recomputed whenever cost, VAT, or the
// driving field changes.
type Mode string

const (
	ModeMargin Mode = "margin"
	ModePrice  Mode = "price"
)

// ParseMode validates a mode string, defaulting the empty string to
// margin-driven.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeMargin, "":
		return ModeMargin, nil
	case ModePrice:
		return ModePrice, nil
	}
	return "", fmt.Errorf("pricing: unknown mode %q", s)
}

var hundred = decimal.NewFromInt(100)

// State holds the editable pricing fields for one product. Margin is nil
// until it has been supplied or derived at least once.
type State struct {
	CostPrice decimal.Decimal
	VATRate   decimal.Decimal
	Margin    *decimal.Decimal
	Price     decimal.Decimal
}

// Snapshot is the display projection of a reconciled state. Monetary fields
// are rounded to two decimals; the reconciler itself keeps full precision.
type Snapshot struct {
	CostPrice    decimal.Decimal
	VATRate      decimal.Decimal
	Margin       decimal.Decimal
	Price        decimal.Decimal
	Profit       decimal.Decimal
	PriceExclVAT decimal.Decimal
	VATAmount    decimal.Decimal
	Mode         Mode
}

// Reconciler keeps exactly one of {margin, price} authoritative and derives
// the other on every edit of the independent inputs.
type Reconciler struct {
	state State
	mode  Mode
}

// NewReconciler normalises the initial state and starts margin-driven. When
// the caller supplies a price and cost but no margin, the margin is derived
// once up front so subsequent edits have a driving value; this bootstrap does
// not flip the mode.
func NewReconciler(s State, mode Mode) *Reconciler {
	s.CostPrice = clampNonNegative(s.CostPrice)
	s.Price = clampNonNegative(s.Price)
	s.VATRate = clampRate(s.VATRate)
	if s.Margin != nil {
		m := *s.Margin
		s.Margin = &m
	}
	if mode != ModePrice {
		mode = ModeMargin
	}
	r := &Reconciler{state: s, mode: mode}
	if mode == ModeMargin && s.Margin == nil && s.Price.IsPositive() && s.CostPrice.IsPositive() {
		m := marginFrom(s.Price, s.CostPrice, s.VATRate)
		r.state.Margin = &m
	}
	return r
}

// SetCostPrice updates cost and recomputes whichever field is derived.
func (r *Reconciler) SetCostPrice(v decimal.Decimal) {
	r.state.CostPrice = clampNonNegative(v)
	r.rederive()
}

// SetVATRate updates the VAT percentage and recomputes the derived field.
func (r *Reconciler) SetVATRate(v decimal.Decimal) {
	r.state.VATRate = clampRate(v)
	r.rederive()
}

// SetMargin makes margin the driving field and recomputes price.
func (r *Reconciler) SetMargin(v decimal.Decimal) {
	m := v
	r.state.Margin = &m
	r.mode = ModeMargin
	r.rederive()
}

// SetPrice makes price the driving field and recomputes margin.
func (r *Reconciler) SetPrice(v decimal.Decimal) {
	r.state.Price = clampNonNegative(v)
	r.mode = ModePrice
	r.rederive()
}

func (r *Reconciler) rederive() {
	switch r.mode {
	case ModePrice:
		m := marginFrom(r.state.Price, r.state.CostPrice, r.state.VATRate)
		r.state.Margin = &m
	default:
		r.state.Price = priceFrom(r.state.CostPrice, r.state.Margin, r.state.VATRate)
	}
}

// Mode reports the current driving field.
func (r *Reconciler) Mode() Mode { return r.mode }

// State returns a copy of the full-precision state.
func (r *Reconciler) State() State {
	s := r.state
	if s.Margin != nil {
		m := *s.Margin
		s.Margin = &m
	}
	return s
}

// Snapshot rounds the state for display and adds the derived read-only
// values: per-unit profit, net price, and the VAT amount.
func (r *Reconciler) Snapshot() Snapshot {
	excl := exclVAT(r.state.Price, r.state.VATRate)
	margin := decimal.Zero
	if r.state.Margin != nil {
		margin = *r.state.Margin
	}
	return Snapshot{
		CostPrice:    r.state.CostPrice.Round(2),
		VATRate:      r.state.VATRate,
		Margin:       margin.Round(2),
		Price:        r.state.Price.Round(2),
		Profit:       excl.Sub(r.state.CostPrice).Round(2),
		PriceExclVAT: excl.Round(2),
		VATAmount:    r.state.Price.Sub(excl).Round(2),
		Mode:         r.mode,
	}
}

// priceFrom computes cost × (1 + margin/100) × (1 + vat/100). An absent
// margin yields zero rather than a partial result.
func priceFrom(cost decimal.Decimal, margin *decimal.Decimal, vat decimal.Decimal) decimal.Decimal {
	if margin == nil {
		return decimal.Zero
	}
	marginFactor := decimal.NewFromInt(1).Add(margin.Div(hundred))
	vatFactor := decimal.NewFromInt(1).Add(vat.Div(hundred))
	return cost.Mul(marginFactor).Mul(vatFactor)
}

// marginFrom computes ((price/(1+vat/100)) − cost) / cost × 100. Zero cost
// yields margin zero, never an error or undefined value.
func marginFrom(price, cost, vat decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return decimal.Zero
	}
	net := exclVAT(price, vat)
	return net.Sub(cost).Div(cost).Mul(hundred)
}

func exclVAT(price, vat decimal.Decimal) decimal.Decimal {
	vatFactor := decimal.NewFromInt(1).Add(vat.Div(hundred))
	if vatFactor.IsZero() {
		return price
	}
	return price.Div(vatFactor)
}

func clampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func clampRate(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}
