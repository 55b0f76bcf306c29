package checkout

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/events"
	"github.com/noah-isme/pos-gateway/internal/notify"
	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

// Payment methods accepted at the till.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
)

// SaleSubmitter posts the sale to the inventory service.
type SaleSubmitter interface {
	CreateSale(ctx context.Context, in upstream.SaleInput) (upstream.Sale, error)
}

// ReceiptEnqueuer schedules the post-sale receipt delivery.
type ReceiptEnqueuer interface {
	EnqueueReceipt(ctx context.Context, p notify.ReceiptPayload) error
}

// Request carries the tender details for a checkout.
type Request struct {
	PaymentMethod string
	CashReceived  decimal.Decimal
}

// Result is the outcome of a successful checkout.
type Result struct {
	SaleID        int64
	Totals        cart.Totals
	PaymentMethod string
	CashReceived  decimal.Decimal
	ChangeGiven   decimal.Decimal
}

// Service submits carts as sales. The cart is cleared only after the
// inventory service accepts the sale, so a rejected submission can be
// retried without re-adding items.
type Service struct {
	Sales    SaleSubmitter
	Bus      *events.Bus
	Receipts ReceiptEnqueuer
	Currency string
	Logger   zerolog.Logger
}

// Checkout validates tender, submits the sale, and on success clears the
// cart, emits a sale event, and queues the receipt.
func (s *Service) Checkout(ctx context.Context, cartID string, ledger *cart.Ledger, req Request) (Result, error) {
	if ledger.Len() == 0 {
		return Result{}, common.NewAppError("EMPTY_CART", "cart has no items", http.StatusBadRequest, nil)
	}
	if req.PaymentMethod != PaymentCash && req.PaymentMethod != PaymentCard {
		return Result{}, common.BadRequestError("payment_method must be \"cash\" or \"card\"", nil)
	}

	totals := ledger.Totals()
	if req.PaymentMethod == PaymentCash && req.CashReceived.LessThan(totals.Total) {
		return Result{}, common.NewAppError("INSUFFICIENT_CASH", "cash received is less than the total", http.StatusBadRequest, nil).
			WithDetails(map[string]string{
				"total":         totals.Total.Round(2).String(),
				"cash_received": req.CashReceived.Round(2).String(),
			})
	}

	lines := ledger.Lines()
	input := upstream.SaleInput{
		Items:         make([]upstream.SaleItem, 0, len(lines)),
		PaymentMethod: req.PaymentMethod,
	}
	for _, line := range lines {
		input.Items = append(input.Items, upstream.SaleItem{
			ProductID:      line.Product.ID,
			Quantity:       line.Quantity,
			DiscountAmount: common.NewDecimal(line.Discount),
		})
	}
	if req.PaymentMethod == PaymentCash {
		cash := common.NewDecimal(req.CashReceived)
		input.CashReceived = &cash
	}

	sale, err := s.Sales.CreateSale(ctx, input)
	if err != nil {
		if code, ok := common.UpstreamStatus(err); ok {
			s.Logger.Warn().Str("code", code).Str("cart_id", cartID).Msg("sale_rejected_upstream")
		}
		// cart stays intact so the cashier can retry
		return Result{}, err
	}

	change := decimal.Zero
	if req.PaymentMethod == PaymentCash {
		change = req.CashReceived.Sub(totals.Total)
		if sale.ChangeGiven.IsPositive() {
			change = sale.ChangeGiven.Decimal
		}
	}

	result := Result{
		SaleID:        sale.ID,
		Totals:        totals,
		PaymentMethod: req.PaymentMethod,
		CashReceived:  req.CashReceived,
		ChangeGiven:   change,
	}

	receipt := s.receipt(lines, totals, result)
	ledger.Clear()

	if obs.SalesCompletedTotal != nil {
		obs.SalesCompletedTotal.WithLabelValues(req.PaymentMethod).Inc()
	}
	if s.Bus != nil {
		if _, emitErr := s.Bus.Emit(ctx, events.TopicSaleCompleted, cartID, map[string]any{
			"sale_id":        sale.ID,
			"total":          totals.Total.Round(2).String(),
			"payment_method": req.PaymentMethod,
		}); emitErr != nil {
			s.Logger.Warn().Err(emitErr).Int64("sale_id", sale.ID).Msg("sale_event_failed")
		}
	}
	if s.Receipts != nil {
		if enqErr := s.Receipts.EnqueueReceipt(ctx, receipt); enqErr != nil {
			s.Logger.Error().Err(enqErr).Int64("sale_id", sale.ID).Msg("receipt_enqueue_failed")
		}
	}
	return result, nil
}

func (s *Service) receipt(lines []cart.Line, totals cart.Totals, res Result) notify.ReceiptPayload {
	items := make([]notify.ReceiptItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, notify.ReceiptItem{
			ProductID:      line.Product.ID,
			Name:           line.Product.Name,
			Quantity:       line.Quantity,
			UnitPrice:      common.NewDecimal(line.Product.UnitPrice.Round(2)),
			DiscountAmount: common.NewDecimal(line.Discount.Round(2)),
		})
	}
	return notify.ReceiptPayload{
		SaleID:        res.SaleID,
		Items:         items,
		Subtotal:      common.NewDecimal(totals.Subtotal.Round(2)),
		VAT:           common.NewDecimal(totals.VAT.Round(2)),
		Total:         common.NewDecimal(totals.Total.Round(2)),
		PaymentMethod: res.PaymentMethod,
		CashReceived:  common.NewDecimal(res.CashReceived.Round(2)),
		ChangeGiven:   common.NewDecimal(res.ChangeGiven.Round(2)),
		Currency:      s.Currency,
		CompletedAt:   time.Now().UTC(),
	}
}
