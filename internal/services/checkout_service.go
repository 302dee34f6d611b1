package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// CheckoutService converts an active cart into a permanent Sale: the real
// stock deduction, the movement records, the reservation release, and the
// cart's FINALIZED transition all commit in one transaction, under every
// involved product's lock. Any single line failing rolls the whole attempt
// back.
type CheckoutService struct {
	DB     *sqlx.DB
	Carts  *repos.CartRepo
	Custs  *repos.CustomerRepo
	Sales  *repos.SaleRepo
	Ledger *StockLedger
	Resv   *ReservationService
	Locks  *ProductLocks

	Now func() time.Time
}

func NewCheckoutService(db *sqlx.DB, carts *repos.CartRepo, custs *repos.CustomerRepo,
	sales *repos.SaleRepo, ledger *StockLedger, resv *ReservationService, locks *ProductLocks) *CheckoutService {
	return &CheckoutService{
		DB: db, Carts: carts, Custs: custs, Sales: sales,
		Ledger: ledger, Resv: resv, Locks: locks, Now: time.Now,
	}
}

type CheckoutResult struct {
	Sale  domain.Sale       `json:"sale"`
	Items []domain.SaleItem `json:"items"`
}

// Checkout finalizes the session's active cart. customerTaxID is optional;
// discountPct must be within [0,100].
func (s *CheckoutService) Checkout(sessionID, customerTaxID, paymentMethod string, discountPct float64) (CheckoutResult, error) {
	if discountPct < 0 || discountPct > 100 {
		return CheckoutResult{}, fmt.Errorf("discount %.2f%%: %w", discountPct, domain.ErrInvalidDiscount)
	}
	if !domain.ValidPayment(paymentMethod) {
		return CheckoutResult{}, fmt.Errorf("payment %q: %w", paymentMethod, domain.ErrInvalidPayment)
	}

	// Reclaim expired holds before reading the cart, so a stale cart is
	// caught here instead of overselling later.
	if _, err := s.Resv.Sweep(); err != nil {
		return CheckoutResult{}, err
	}

	cart, err := s.Carts.ActiveForSession(s.DB, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return CheckoutResult{}, domain.ErrEmptyCart
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	// A cart past its window cannot finalize: its holds were reclaimed (or
	// are about to be) and the stock may already back someone else's holds.
	if cart.ExpiresAt < timestamp(s.Now()) {
		if err := s.expireCart(cart); err != nil {
			return CheckoutResult{}, err
		}
		return CheckoutResult{}, domain.ErrEmptyCart
	}
	items, err := s.Carts.Items(s.DB, cart.ID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(items) == 0 {
		return CheckoutResult{}, domain.ErrEmptyCart
	}

	var customerID *string
	if customerTaxID != "" {
		cust, err := s.Custs.GetByTaxID(s.DB, customerTaxID)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !cust.Active {
			return CheckoutResult{}, fmt.Errorf("customer %s: %w", cust.ID, domain.ErrCustomerInactive)
		}
		customerID = &cust.ID
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Subtotal)
	}
	discount := subtotal.Mul(decimal.NewFromFloat(discountPct)).Div(intDecimal(100)).Truncate(2)
	total := subtotal.Sub(discount)

	sale := domain.Sale{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		CustomerID:    customerID,
		Subtotal:      subtotal,
		Discount:      discount,
		Total:         total,
		PaymentMethod: paymentMethod,
		Status:        domain.SaleCompleted,
		CreatedAt:     timestamp(s.Now()),
	}

	// Lock every involved product in ascending id order, then run one
	// transaction across all lines.
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	unlock := s.Locks.LockAll(ids)
	defer unlock()

	var saleItems []domain.SaleItem
	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		if err := s.Sales.Insert(tx, sale); err != nil {
			return err
		}
		for _, it := range items {
			p, err := s.Ledger.Prods.Get(tx, it.ProductID)
			if err != nil {
				return err
			}
			si := domain.SaleItem{
				SaleID:      sale.ID,
				ProductID:   it.ProductID,
				ProductName: p.Name,
				Qty:         it.Qty,
				UnitPrice:   it.UnitPrice,
				Subtotal:    it.Subtotal,
			}
			if err := s.Sales.InsertItem(tx, si); err != nil {
				return err
			}
			// The deduction can still fail here even though the line was
			// reserved: holds bound availability, not on_hand, and a manual
			// adjustment may have shrunk physical stock meanwhile. Failing
			// one line aborts the whole transaction.
			if err := s.Ledger.DecreaseOnHandTx(tx, it.ProductID, it.Qty, sessionID, sale.ID); err != nil {
				return err
			}
			// The hold is superseded by the real deduction.
			if err := s.Resv.SupersedeTx(tx, it.ProductID, sessionID); err != nil {
				return err
			}
			saleItems = append(saleItems, si)
		}
		ok, err := s.Carts.SetStatus(tx, cart.ID, domain.CartFinalized)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cart %s left ACTIVE mid-checkout: %w", cart.ID, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		applog.Warn(nil, "checkout.abort", map[string]any{"cart": cart.ID, "session": sessionID, "reason": err.Error()})
		return CheckoutResult{}, err
	}

	applog.Audit(nil, "checkout.finalize", map[string]any{
		"sale": sale.ID, "cart": cart.ID, "session": sessionID,
		"subtotal": sale.Subtotal.StringFixed(2), "discount": sale.Discount.StringFixed(2),
		"total": sale.Total.StringFixed(2), "items": len(saleItems),
	})
	return CheckoutResult{Sale: sale, Items: saleItems}, nil
}

// expireCart moves a stale cart to EXPIRED, releasing whatever holds of its
// session survived the reservation sweep.
func (s *CheckoutService) expireCart(cart domain.Cart) error {
	items, err := s.Carts.Items(s.DB, cart.ID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	unlock := s.Locks.LockAll(ids)
	defer unlock()

	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if _, err := s.Resv.ReleaseTx(tx, it.ProductID, cart.SessionID); err != nil {
				return err
			}
		}
		_, err := s.Carts.SetStatus(tx, cart.ID, domain.CartExpired)
		return err
	})
	if err != nil {
		return err
	}
	applog.Info(nil, "cart.close", map[string]any{"cart": cart.ID, "status": domain.CartExpired})
	return nil
}

// GetSale returns a settled sale with its line snapshots.
func (s *CheckoutService) GetSale(saleID string) (CheckoutResult, error) {
	sale, items, err := s.Sales.Get(s.DB, saleID)
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{Sale: sale, Items: items}, nil
}

// CancelSale reverses a finalized sale: every line's quantity returns to
// on_hand with an ADJUSTMENT movement. It operates on the settled sale only
// and never touches carts.
func (s *CheckoutService) CancelSale(saleID, reason, actor string) error {
	sale, items, err := s.Sales.Get(s.DB, saleID)
	if err != nil {
		return err
	}
	if sale.Status != domain.SaleCompleted {
		return fmt.Errorf("sale %s already cancelled: %w", saleID, domain.ErrNotFound)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	unlock := s.Locks.LockAll(ids)
	defer unlock()

	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		ok, err := s.Sales.MarkCancelled(tx, saleID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("sale %s already cancelled: %w", saleID, domain.ErrNotFound)
		}
		note := "sale cancelled: " + reason
		for _, it := range items {
			if err := s.Ledger.AdjustOnHandTx(tx, it.ProductID, it.Qty, note, actor, saleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	applog.Audit(nil, "sale.cancel", map[string]any{"sale": saleID, "reason": reason, "actor": actor})
	return nil
}
