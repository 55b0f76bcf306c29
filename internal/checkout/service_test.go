package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-gateway/internal/cart"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/events"
	"github.com/noah-isme/pos-gateway/internal/notify"
	"github.com/noah-isme/pos-gateway/internal/upstream"
)

type fakeSales struct {
	fail error
	got  upstream.SaleInput
}

func (f *fakeSales) CreateSale(_ context.Context, in upstream.SaleInput) (upstream.Sale, error) {
	f.got = in
	if f.fail != nil {
		return upstream.Sale{}, f.fail
	}
	return upstream.Sale{ID: 31, PaymentMethod: in.PaymentMethod}, nil
}

type fakeReceipts struct {
	payloads []notify.ReceiptPayload
}

func (f *fakeReceipts) EnqueueReceipt(_ context.Context, p notify.ReceiptPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func testLedger() *cart.Ledger {
	g := cart.NewLedger()
	g.AddItem(cart.Product{ID: 1, Name: "Espresso", UnitPrice: decimal.RequireFromString("5.00"), VATRate: decimal.RequireFromString("20")})
	g.UpdateQuantity(1, 2)
	g.AddItem(cart.Product{ID: 2, Name: "Water", UnitPrice: decimal.RequireFromString("10.00"), VATRate: decimal.Zero})
	return g
}

func newService(sales *fakeSales, receipts *fakeReceipts) *Service {
	return &Service{
		Sales:    sales,
		Bus:      &events.Bus{},
		Receipts: receipts,
		Currency: "BGN",
		Logger:   zerolog.Nop(),
	}
}

func TestCheckoutCashHappyPath(t *testing.T) {
	sales := &fakeSales{}
	receipts := &fakeReceipts{}
	svc := newService(sales, receipts)
	ledger := testLedger()

	res, err := svc.Checkout(context.Background(), "cart-1", ledger, Request{
		PaymentMethod: PaymentCash,
		CashReceived:  decimal.RequireFromString("25.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(31), res.SaleID)
	assert.Equal(t, "22", res.Totals.Total.String())
	assert.Equal(t, "3", res.ChangeGiven.String())
	assert.Equal(t, 0, ledger.Len(), "cart must be cleared after a successful sale")

	require.Len(t, sales.got.Items, 2)
	assert.Equal(t, int64(1), sales.got.Items[0].ProductID)
	assert.Equal(t, 2, sales.got.Items[0].Quantity)
	require.NotNil(t, sales.got.CashReceived)
	assert.Equal(t, "25", sales.got.CashReceived.String())

	require.Len(t, receipts.payloads, 1)
	assert.Equal(t, "22", receipts.payloads[0].Total.String())
	assert.Len(t, receipts.payloads[0].Items, 2)
}

func TestCheckoutUpstreamFailureKeepsCart(t *testing.T) {
	sales := &fakeSales{fail: common.NewAppError("UPSTREAM", "inventory service unreachable", 502, errors.New("dial"))}
	svc := newService(sales, &fakeReceipts{})
	ledger := testLedger()

	_, err := svc.Checkout(context.Background(), "cart-1", ledger, Request{
		PaymentMethod: PaymentCard,
	})
	require.Error(t, err)
	assert.Equal(t, 2, ledger.Len(), "cart must stay intact so checkout can be retried")
	assert.Equal(t, "22", ledger.Total().String())
}

func TestCheckoutInsufficientCash(t *testing.T) {
	svc := newService(&fakeSales{}, &fakeReceipts{})
	ledger := testLedger()

	_, err := svc.Checkout(context.Background(), "cart-1", ledger, Request{
		PaymentMethod: PaymentCash,
		CashReceived:  decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_CASH", appErr.Code)
	assert.Equal(t, 2, ledger.Len())
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newService(&fakeSales{}, &fakeReceipts{})
	_, err := svc.Checkout(context.Background(), "cart-1", cart.NewLedger(), Request{PaymentMethod: PaymentCard})
	require.Error(t, err)
	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, "EMPTY_CART", appErr.Code)
}

func TestCheckoutRejectsUnknownPaymentMethod(t *testing.T) {
	svc := newService(&fakeSales{}, &fakeReceipts{})
	_, err := svc.Checkout(context.Background(), "cart-1", testLedger(), Request{PaymentMethod: "voucher"})
	require.Error(t, err)
}

func TestCheckoutCardIgnoresCash(t *testing.T) {
	sales := &fakeSales{}
	svc := newService(sales, &fakeReceipts{})

	res, err := svc.Checkout(context.Background(), "cart-1", testLedger(), Request{PaymentMethod: PaymentCard})
	require.NoError(t, err)
	assert.True(t, res.ChangeGiven.IsZero())
	assert.Nil(t, sales.got.CashReceived)
}
