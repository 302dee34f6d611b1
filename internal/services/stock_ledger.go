package services

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// StockLedger is the single source of truth for availability arithmetic.
// Every on_hand change goes through it and leaves a movement behind.
type StockLedger struct {
	DB    *sqlx.DB
	Prods *repos.ProductRepo
	Movs  *repos.MovementRepo
	Locks *ProductLocks

	Now func() time.Time
}

func NewStockLedger(db *sqlx.DB, prods *repos.ProductRepo, movs *repos.MovementRepo, locks *ProductLocks) *StockLedger {
	return &StockLedger{DB: db, Prods: prods, Movs: movs, Locks: locks, Now: time.Now}
}

// Available returns on_hand - reserved. Pure read, no side effects; callers
// that need expired holds reclaimed first run the reservation sweep.
func (s *StockLedger) Available(productID string) (int, error) {
	p, err := s.Prods.Get(s.DB, productID)
	if err != nil {
		return 0, err
	}
	return p.Available(), nil
}

// IncreaseOnHand restocks a product and appends an ENTRY movement.
func (s *StockLedger) IncreaseOnHand(productID string, qty int, sessionID string) error {
	if qty <= 0 {
		return fmt.Errorf("entry of %d: %w", qty, domain.ErrInvalidQuantity)
	}
	unlock := s.Locks.Lock(productID)
	defer unlock()

	return inTx(s.DB, func(tx *sqlx.Tx) error {
		p, err := s.Prods.Get(tx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
		}
		if err := s.Prods.IncreaseOnHand(tx, productID, qty); err != nil {
			return err
		}
		if err := s.Movs.Append(tx, domain.Movement{
			ProductID:    productID,
			Type:         domain.MovementEntry,
			Qty:          qty,
			OnHandBefore: p.OnHand,
			OnHandAfter:  p.OnHand + qty,
			SessionID:    strptr(sessionID),
			Note:         "stock entry",
			CreatedAt:    timestamp(s.Now()),
		}); err != nil {
			return err
		}
		applog.Audit(nil, "stock.entry", map[string]any{
			"product": productID, "qty": qty, "on_hand": p.OnHand + qty,
		})
		return nil
	})
}

// DecreaseOnHand performs a plain stock withdrawal under the product's lock.
// The caller holds no reservation, so other sessions' holds are preserved and
// only clamped when on_hand shrinks below them.
func (s *StockLedger) DecreaseOnHand(productID string, qty int, sessionID string) error {
	if qty <= 0 {
		return fmt.Errorf("exit of %d: %w", qty, domain.ErrInvalidQuantity)
	}
	unlock := s.Locks.Lock(productID)
	defer unlock()
	return inTx(s.DB, func(tx *sqlx.Tx) error {
		p, err := s.Prods.Get(tx, productID)
		if err != nil {
			return err
		}
		if err := s.Prods.WithdrawOnHand(tx, productID, qty); err != nil {
			return err
		}
		if err := s.Movs.Append(tx, domain.Movement{
			ProductID:    productID,
			Type:         domain.MovementExit,
			Qty:          -qty,
			OnHandBefore: p.OnHand,
			OnHandAfter:  p.OnHand - qty,
			SessionID:    strptr(sessionID),
			Note:         "stock exit",
			CreatedAt:    timestamp(s.Now()),
		}); err != nil {
			return err
		}
		applog.Audit(nil, "stock.exit", map[string]any{
			"product": productID, "qty": qty, "on_hand": p.OnHand - qty,
		})
		return nil
	})
}

// DecreaseOnHandTx is the transaction-scoped deduction used by checkout,
// which holds its own locks and transaction across all cart lines. The
// on_hand >= qty guard inside the UPDATE is the last defense against
// oversell even if reservation accounting drifted.
func (s *StockLedger) DecreaseOnHandTx(tx sqlx.Ext, productID string, qty int, sessionID, saleID string) error {
	p, err := s.Prods.Get(tx, productID)
	if err != nil {
		return err
	}
	if err := s.Prods.DecreaseOnHand(tx, productID, qty); err != nil {
		return err
	}
	note := "stock exit"
	if saleID != "" {
		note = "sale " + saleID
	}
	if err := s.Movs.Append(tx, domain.Movement{
		ProductID:    productID,
		Type:         domain.MovementExit,
		Qty:          -qty,
		OnHandBefore: p.OnHand,
		OnHandAfter:  p.OnHand - qty,
		SessionID:    strptr(sessionID),
		SaleID:       strptr(saleID),
		Note:         note,
		CreatedAt:    timestamp(s.Now()),
	}); err != nil {
		return err
	}
	applog.Audit(nil, "stock.exit", map[string]any{
		"product": productID, "qty": qty, "on_hand": p.OnHand - qty, "sale": saleID,
	})
	return nil
}

// AdjustOnHand applies a signed manual correction with an ADJUSTMENT
// movement. Shrinking below zero is refused; reserved is clamped to the new
// on_hand.
func (s *StockLedger) AdjustOnHand(productID string, delta int, note, sessionID string) error {
	if delta == 0 {
		return fmt.Errorf("adjustment of 0: %w", domain.ErrInvalidQuantity)
	}
	unlock := s.Locks.Lock(productID)
	defer unlock()

	return inTx(s.DB, func(tx *sqlx.Tx) error {
		return s.AdjustOnHandTx(tx, productID, delta, note, sessionID, "")
	})
}

// AdjustOnHandTx is the transaction-scoped form, used by sale cancellation
// to restore stock atomically with the sale's status flip.
func (s *StockLedger) AdjustOnHandTx(tx sqlx.Ext, productID string, delta int, note, sessionID, saleID string) error {
	p, err := s.Prods.Get(tx, productID)
	if err != nil {
		return err
	}
	if err := s.Prods.AdjustOnHand(tx, productID, delta); err != nil {
		return err
	}
	if err := s.Movs.Append(tx, domain.Movement{
		ProductID:    productID,
		Type:         domain.MovementAdjustment,
		Qty:          delta,
		OnHandBefore: p.OnHand,
		OnHandAfter:  p.OnHand + delta,
		SessionID:    strptr(sessionID),
		SaleID:       strptr(saleID),
		Note:         note,
		CreatedAt:    timestamp(s.Now()),
	}); err != nil {
		return err
	}
	applog.Audit(nil, "stock.adjust", map[string]any{
		"product": productID, "delta": delta, "on_hand": p.OnHand + delta, "note": note,
	})
	return nil
}

// AdjustReservedTx moves the reserved counter, clamped to [0, on_hand].
// Internal to the reservation subsystem; callers hold the product lock.
func (s *StockLedger) AdjustReservedTx(tx sqlx.Ext, productID string, delta int) error {
	return s.Prods.AdjustReserved(tx, productID, delta)
}
