package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestMarginDrivenPrice(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Margin: dp("50")}, ModeMargin)
	r.SetCostPrice(d("10"))
	if got := r.State().Price.String(); got != "18" {
		t.Fatalf("expected price 18, got %s", got)
	}
}

func TestRoundTripMarginPriceMargin(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Margin: dp("50")}, ModeMargin)
	r.SetMargin(d("50"))
	price := r.State().Price // 18

	r2 := NewReconciler(State{CostPrice: d("10"), VATRate: d("20")}, ModePrice)
	r2.SetPrice(price)
	margin := r2.State().Margin
	if margin == nil {
		t.Fatalf("expected margin derived")
	}
	if diff := margin.Sub(d("50")).Abs(); diff.GreaterThan(d("0.0001")) {
		t.Fatalf("expected margin 50 within tolerance, got %s", margin)
	}
}

func TestZeroCostMarginIsZero(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("0"), VATRate: d("20"), Price: d("18")}, ModePrice)
	r.SetPrice(d("18"))
	margin := r.State().Margin
	if margin == nil || !margin.IsZero() {
		t.Fatalf("expected margin 0 for zero cost, got %v", margin)
	}
}

func TestAbsentMarginYieldsZeroPrice(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20")}, ModeMargin)
	r.SetCostPrice(d("12"))
	if !r.State().Price.IsZero() {
		t.Fatalf("expected price 0 when margin never supplied, got %s", r.State().Price)
	}
}

func TestBootstrapDerivesMarginOnce(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Price: d("18")}, ModeMargin)
	if r.Mode() != ModeMargin {
		t.Fatalf("bootstrap must not flip mode, got %s", r.Mode())
	}
	margin := r.State().Margin
	if margin == nil {
		t.Fatalf("expected bootstrapped margin")
	}
	if diff := margin.Sub(d("50")).Abs(); diff.GreaterThan(d("0.0001")) {
		t.Fatalf("expected bootstrapped margin 50, got %s", margin)
	}
}

func TestVATEditRecomputesPerMode(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Margin: dp("50")}, ModeMargin)
	r.SetVATRate(d("0"))
	if got := r.State().Price.String(); got != "15" {
		t.Fatalf("expected price 15 at 0%% VAT, got %s", got)
	}

	p := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Price: d("18")}, ModePrice)
	p.SetVATRate(d("0"))
	margin := p.State().Margin
	if margin == nil || !margin.Equal(d("80")) {
		t.Fatalf("expected margin 80 at 0%% VAT, got %v", margin)
	}
}

func TestEditingPriceFlipsMode(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Margin: dp("50")}, ModeMargin)
	r.SetPrice(d("24"))
	if r.Mode() != ModePrice {
		t.Fatalf("expected price-driven mode, got %s", r.Mode())
	}
	margin := r.State().Margin
	if margin == nil || !margin.Equal(d("100")) {
		t.Fatalf("expected margin 100, got %v", margin)
	}

	r.SetMargin(d("50"))
	if r.Mode() != ModeMargin {
		t.Fatalf("expected mode back to margin, got %s", r.Mode())
	}
	if got := r.State().Price.String(); got != "18" {
		t.Fatalf("expected price 18, got %s", got)
	}
}

func TestSnapshotDisplayValues(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("10"), VATRate: d("20"), Margin: dp("50")}, ModeMargin)
	r.SetMargin(d("50"))
	snap := r.Snapshot()

	if got := snap.Price.String(); got != "18" {
		t.Fatalf("price: got %s", got)
	}
	if got := snap.PriceExclVAT.String(); got != "15" {
		t.Fatalf("price_excl_vat: got %s", got)
	}
	if got := snap.Profit.String(); got != "5" {
		t.Fatalf("profit: got %s", got)
	}
	if got := snap.VATAmount.String(); got != "3" {
		t.Fatalf("vat_amount: got %s", got)
	}
}

func TestRepeatedEditsKeepPrecision(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("9.99"), VATRate: d("20"), Margin: dp("33.33")}, ModeMargin)
	// ping-pong edits must not drift the driving margin
	for i := 0; i < 50; i++ {
		r.SetCostPrice(d("9.99"))
	}
	margin := r.State().Margin
	if margin == nil || !margin.Equal(d("33.33")) {
		t.Fatalf("expected margin unchanged at 33.33, got %v", margin)
	}
}

func TestNegativeInputsClamped(t *testing.T) {
	r := NewReconciler(State{CostPrice: d("-5"), VATRate: d("150"), Margin: dp("50")}, ModeMargin)
	s := r.State()
	if !s.CostPrice.IsZero() {
		t.Fatalf("expected cost clamped to 0, got %s", s.CostPrice)
	}
	if !s.VATRate.Equal(d("100")) {
		t.Fatalf("expected vat clamped to 100, got %s", s.VATRate)
	}
}
