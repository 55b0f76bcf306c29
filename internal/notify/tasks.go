package notify

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// TypeReceiptDeliver is the task type for receipt webhook delivery.
const TypeReceiptDeliver = "receipt:deliver"

// QueueReceipts is the asynq queue receipts are routed to.
const QueueReceipts = "receipts"

// ReceiptItem is one line on a delivered receipt.
type ReceiptItem struct {
	ProductID      int64          `json:"product_id"`
	Name           string         `json:"name"`
	Quantity       int            `json:"quantity"`
	UnitPrice      common.Decimal `json:"unit_price"`
	DiscountAmount common.Decimal `json:"discount_amount"`
}

// ReceiptPayload is the document posted to the receipt webhook after a sale.
type ReceiptPayload struct {
	SaleID        int64          `json:"sale_id"`
	Items         []ReceiptItem  `json:"items"`
	Subtotal      common.Decimal `json:"subtotal"`
	VAT           common.Decimal `json:"vat"`
	Total         common.Decimal `json:"total"`
	PaymentMethod string         `json:"payment_method"`
	CashReceived  common.Decimal `json:"cash_received"`
	ChangeGiven   common.Decimal `json:"change_given"`
	Currency      string         `json:"currency"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// NewReceiptTask serialises the payload into an asynq task.
func NewReceiptTask(p ReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReceiptDeliver, data), nil
}
