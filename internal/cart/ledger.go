package cart

import (
	"sync"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Product is the pricing snapshot taken when an item enters the ledger.
// Catalog price changes after that point do not touch lines already in the
// cart; the snapshot is the contract for the rest of the session.
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	VATRate   decimal.Decimal `json:"vat_rate"`
}

// Line is one product-quantity-discount tuple within a cart.
type Line struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Discount decimal.Decimal `json:"discount"`
}

// subtotal returns unit price x quantity minus the flat line discount.
func (l Line) subtotal() decimal.Decimal {
	return l.Product.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount)
}

// Totals is the derived snapshot exposed to rendering and checkout.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	VAT      decimal.Decimal `json:"vat"`
	Total    decimal.Decimal `json:"total"`
}

// Ledger holds the line items of one checkout session, ordered by insertion
// and keyed by product identity. The store hands the same ledger to every
// request for a cart id, so all operations serialise on an internal mutex.
type Ledger struct {
	mu    sync.Mutex
	lines []*Line
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AddItem appends a new line with quantity 1, or increments the quantity when
// a line for the product already exists. Negative or out-of-range numeric
// inputs are normalised rather than rejected.
func (g *Ledger) AddItem(p Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p = normalise(p)
	if line := g.find(p.ID); line != nil {
		line.Quantity++
		return
	}
	g.lines = append(g.lines, &Line{Product: p, Quantity: 1, Discount: decimal.Zero})
}

// RemoveItem deletes the line for the product. Removing an absent product is a no-op.
func (g *Ledger) RemoveItem(productID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(productID)
}

// UpdateQuantity sets the line quantity. A quantity of zero or less removes
// the line; a zero-quantity line never exists.
func (g *Ledger) UpdateQuantity(productID int64, quantity int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if quantity <= 0 {
		g.removeLocked(productID)
		return
	}
	if line := g.find(productID); line != nil {
		line.Quantity = quantity
	}
}

// SetDiscount applies a flat pre-VAT discount to the line. The amount is
// clamped to [0, line subtotal before discount].
func (g *Ledger) SetDiscount(productID int64, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	line := g.find(productID)
	if line == nil {
		return
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	gross := line.Product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	if amount.GreaterThan(gross) {
		amount = gross
	}
	line.Discount = amount
}

// Clear empties the ledger unconditionally.
func (g *Ledger) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lines = nil
}

// Subtotal sums the discounted line subtotals.
func (g *Ledger) Subtotal() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subtotalLocked()
}

// VAT sums per-line VAT computed on the discounted line subtotal, using each
// line's own snapshotted rate.
func (g *Ledger) VAT() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.vatLocked()
}

// Total is subtotal plus VAT.
func (g *Ledger) Total() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subtotalLocked().Add(g.vatLocked())
}

// Totals returns the full derived snapshot from one consistent view of the lines.
func (g *Ledger) Totals() Totals {
	g.mu.Lock()
	defer g.mu.Unlock()
	subtotal := g.subtotalLocked()
	vat := g.vatLocked()
	return Totals{Subtotal: subtotal, VAT: vat, Total: subtotal.Add(vat)}
}

// Lines returns a copy of the current line collection in insertion order.
func (g *Ledger) Lines() []Line {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Line, 0, len(g.lines))
	for _, line := range g.lines {
		out = append(out, *line)
	}
	return out
}

// Len reports the number of distinct product lines.
func (g *Ledger) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lines)
}

func (g *Ledger) removeLocked(productID int64) {
	for i, line := range g.lines {
		if line.Product.ID == productID {
			g.lines = append(g.lines[:i], g.lines[i+1:]...)
			return
		}
	}
}

func (g *Ledger) subtotalLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range g.lines {
		sum = sum.Add(line.subtotal())
	}
	return sum
}

func (g *Ledger) vatLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range g.lines {
		sum = sum.Add(line.subtotal().Mul(line.Product.VATRate).Div(oneHundred))
	}
	return sum
}

func (g *Ledger) find(productID int64) *Line {
	for _, line := range g.lines {
		if line.Product.ID == productID {
			return line
		}
	}
	return nil
}

func normalise(p Product) Product {
	if p.UnitPrice.IsNegative() {
		p.UnitPrice = decimal.Zero
	}
	if p.VATRate.IsNegative() {
		p.VATRate = decimal.Zero
	}
	if p.VATRate.GreaterThan(oneHundred) {
		p.VATRate = oneHundred
	}
	return p
}
