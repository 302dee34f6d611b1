package domain

import "github.com/shopspring/decimal"

// Cart lifecycle. ACTIVE is the only state that accepts mutations;
// the other three are terminal.
const (
	CartActive    = "ACTIVE"
	CartFinalized = "FINALIZED"
	CartCancelled = "CANCELLED"
	CartExpired   = "EXPIRED"
)

// Sale lifecycle.
const (
	SaleCompleted = "COMPLETED"
	SaleCancelled = "CANCELLED"
)

// Stock movement types.
const (
	MovementEntry      = "ENTRY"
	MovementExit       = "EXIT"
	MovementAdjustment = "ADJUSTMENT"
	MovementReserve    = "RESERVE"
	MovementRelease    = "RELEASE"
)

// Accepted payment methods.
const (
	PaymentCash   = "CASH"
	PaymentDebit  = "DEBIT"
	PaymentCredit = "CREDIT"
	PaymentPix    = "PIX"
)

type Product struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	SalePrice decimal.Decimal `db:"sale_price" json:"sale_price"`
	CostPrice decimal.Decimal `db:"cost_price" json:"cost_price"`
	OnHand    int             `db:"on_hand" json:"on_hand"`
	Reserved  int             `db:"reserved" json:"reserved"`
	Active    bool            `db:"active" json:"active"`
	CreatedAt string          `db:"created_at" json:"created_at"`
	UpdatedAt string          `db:"updated_at" json:"updated_at"`
}

// Available is the quantity a new reservation may claim.
func (p Product) Available() int { return p.OnHand - p.Reserved }

type Customer struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TaxID     string `db:"tax_id" json:"tax_id"`
	Active    bool   `db:"active" json:"active"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Reservation is a time-bounded hold on a product's availability, tied to
// one session. Its quantity counts toward the product's reserved total only
// while Active.
type Reservation struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	SessionID string `db:"session_id" json:"session_id"`
	Qty       int    `db:"qty" json:"qty"`
	CreatedAt string `db:"created_at" json:"created_at"`
	ExpiresAt string `db:"expires_at" json:"expires_at"`
	Active    bool   `db:"active" json:"active"`
}

type Cart struct {
	ID        string          `db:"id" json:"id"`
	SessionID string          `db:"session_id" json:"session_id"`
	Status    string          `db:"status" json:"status"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	ExpiresAt string          `db:"expires_at" json:"expires_at"`
	CreatedAt string          `db:"created_at" json:"created_at"`
	UpdatedAt string          `db:"updated_at" json:"updated_at"`
}

// CartItem carries a snapshot of the unit price taken when the product was
// first added, so later catalog price changes do not move the cart total.
type CartItem struct {
	CartID    string          `db:"cart_id" json:"cart_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	Qty       int             `db:"qty" json:"qty"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	CreatedAt string          `db:"created_at" json:"created_at"`
	UpdatedAt string          `db:"updated_at" json:"updated_at"`
}

type Sale struct {
	ID            string          `db:"id" json:"id"`
	SessionID     string          `db:"session_id" json:"session_id"`
	CustomerID    *string         `db:"customer_id" json:"customer_id"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Status        string          `db:"status" json:"status"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
}

// SaleItem is a frozen copy of a cart line at checkout time, independent of
// any future product mutation (including the product name).
type SaleItem struct {
	SaleID      string          `db:"sale_id" json:"sale_id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Qty         int             `db:"qty" json:"qty"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// Movement is one append-only audit record of a stock-affecting event.
// Qty is a signed delta; OnHandBefore/After bracket the physical quantity
// (equal for RESERVE/RELEASE, which never touch on-hand stock).
type Movement struct {
	ID           int64   `db:"id" json:"id"`
	ProductID    string  `db:"product_id" json:"product_id"`
	Type         string  `db:"type" json:"type"`
	Qty          int     `db:"qty" json:"qty"`
	OnHandBefore int     `db:"on_hand_before" json:"on_hand_before"`
	OnHandAfter  int     `db:"on_hand_after" json:"on_hand_after"`
	SessionID    *string `db:"session_id" json:"session_id"`
	SaleID       *string `db:"sale_id" json:"sale_id"`
	Note         string  `db:"note" json:"note"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}

// ValidPayment reports whether m is one of the accepted payment methods.
func ValidPayment(m string) bool {
	switch m {
	case PaymentCash, PaymentDebit, PaymentCredit, PaymentPix:
		return true
	}
	return false
}
