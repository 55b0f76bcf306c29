package upstream

import (
	"time"

	"github.com/noah-isme/pos-gateway/internal/common"
)

// Product mirrors the inventory service's product record. Numeric fields use
// lenient decoding because the upstream serialises decimals as strings.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode,omitempty"`
	Description   string          `json:"description,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	Price         common.Decimal  `json:"price"`
	CostPrice     common.Decimal  `json:"cost_price"`
	VATRate       common.Decimal  `json:"vat_rate"`
	StockQuantity common.FlexInt  `json:"stock_quantity"`
	MinStockLevel common.FlexInt  `json:"min_stock_level"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	SupplierID    *int64          `json:"supplier_id,omitempty"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     *time.Time      `json:"created_at,omitempty"`
}

// ProductInput is the create/update payload forwarded to the inventory
// service.
type ProductInput struct {
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode,omitempty"`
	Description   string          `json:"description,omitempty"`
	Unit          string          `json:"unit,omitempty"`
	Price         common.Decimal  `json:"price"`
	CostPrice     common.Decimal  `json:"cost_price"`
	VATRate       common.Decimal  `json:"vat_rate"`
	StockQuantity *common.FlexInt `json:"stock_quantity,omitempty"`
	MinStockLevel *common.FlexInt `json:"min_stock_level,omitempty"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	SupplierID    *int64          `json:"supplier_id,omitempty"`
}

// Category is a product grouping defined upstream.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryInput is the create/update payload for categories.
type CategoryInput struct {
	Name string `json:"name"`
}

// Supplier mirrors the upstream supplier record, including the contact,
// registration, banking and ordering-terms fields the detail page edits.
type Supplier struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	ContactPerson      string          `json:"contact_person,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	Address            string          `json:"address,omitempty"`
	City               string          `json:"city,omitempty"`
	PostalCode         string          `json:"postal_code,omitempty"`
	Country            string          `json:"country,omitempty"`
	TaxNumber          string          `json:"tax_number,omitempty"`
	RegistrationNumber string          `json:"registration_number,omitempty"`
	BankAccount        string          `json:"bank_account,omitempty"`
	BankName           string          `json:"bank_name,omitempty"`
	PaymentTerms       string          `json:"payment_terms,omitempty"`
	MinOrderAmount     *common.Decimal `json:"min_order_amount,omitempty"`
	DeliveryDays       *int            `json:"delivery_days,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	IsActive           bool            `json:"is_active"`
	CreatedAt          *time.Time      `json:"created_at,omitempty"`
}

// SupplierInput is the create/update payload for suppliers.
type SupplierInput struct {
	Name               string          `json:"name"`
	ContactPerson      string          `json:"contact_person,omitempty"`
	Phone              string          `json:"phone,omitempty"`
	Email              string          `json:"email,omitempty"`
	Address            string          `json:"address,omitempty"`
	City               string          `json:"city,omitempty"`
	PostalCode         string          `json:"postal_code,omitempty"`
	Country            string          `json:"country,omitempty"`
	TaxNumber          string          `json:"tax_number,omitempty"`
	RegistrationNumber string          `json:"registration_number,omitempty"`
	BankAccount        string          `json:"bank_account,omitempty"`
	BankName           string          `json:"bank_name,omitempty"`
	PaymentTerms       string          `json:"payment_terms,omitempty"`
	MinOrderAmount     *common.Decimal `json:"min_order_amount,omitempty"`
	DeliveryDays       *int            `json:"delivery_days,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	IsActive           bool            `json:"is_active"`
}

// SaleItem is one line of a submitted sale.
type SaleItem struct {
	ProductID      int64          `json:"product_id"`
	Quantity       int            `json:"quantity"`
	DiscountAmount common.Decimal `json:"discount_amount"`
}

// SaleInput is the checkout payload posted to the inventory service.
type SaleInput struct {
	Items         []SaleItem      `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	CashReceived  *common.Decimal `json:"cash_received,omitempty"`
}

// Sale is the persisted sale returned by the inventory service.
type Sale struct {
	ID            int64          `json:"id"`
	TotalAmount   common.Decimal `json:"total_amount"`
	VATAmount     common.Decimal `json:"vat_amount"`
	PaymentMethod string         `json:"payment_method"`
	CashReceived  common.Decimal `json:"cash_received"`
	ChangeGiven   common.Decimal `json:"change_given"`
	CreatedAt     *time.Time     `json:"created_at,omitempty"`
}

// Credentials is the login payload relayed to the upstream auth endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterInput creates an upstream account.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the upstream-issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the authenticated account profile.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}
