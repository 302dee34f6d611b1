package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// CartService owns the per-session cart and its lifecycle. All stock
// arithmetic is delegated to the ReservationService; the cart only records
// line items with their price snapshots.
type CartService struct {
	DB    *sqlx.DB
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
	Resv  *ReservationService

	TTL time.Duration
	Now func() time.Time
}

func NewCartService(db *sqlx.DB, carts *repos.CartRepo, prods *repos.ProductRepo,
	resv *ReservationService, ttl time.Duration) *CartService {
	return &CartService{DB: db, Carts: carts, Prods: prods, Resv: resv, TTL: ttl, Now: time.Now}
}

type CartView struct {
	Cart  domain.Cart       `json:"cart"`
	Items []domain.CartItem `json:"items"`
}

// GetOrCreate sweeps expired carts, then returns the session's ACTIVE cart
// (renewing its window and the session's holds) or creates a fresh one.
func (s *CartService) GetOrCreate(sessionID string) (domain.Cart, error) {
	if err := s.sweepExpired(); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.Carts.ActiveForSession(s.DB, sessionID)
	if err == nil {
		if err := s.renew(cart.ID, sessionID); err != nil {
			return domain.Cart{}, err
		}
		return s.Carts.Get(s.DB, cart.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, err
	}

	cart = domain.Cart{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    domain.CartActive,
		ExpiresAt: timestamp(s.Now().Add(s.TTL)),
	}
	if err := s.Carts.Insert(s.DB, cart); err != nil {
		return domain.Cart{}, err
	}
	applog.Info(nil, "cart.create", map[string]any{"cart": cart.ID, "session": sessionID})
	return s.Carts.Get(s.DB, cart.ID)
}

// View returns the session's ACTIVE cart with its items, or an empty view if
// the session has none.
func (s *CartService) View(sessionID string) (CartView, error) {
	if err := s.sweepExpired(); err != nil {
		return CartView{}, err
	}
	cart, err := s.Carts.ActiveForSession(s.DB, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return CartView{}, nil
	}
	if err != nil {
		return CartView{}, err
	}
	items, err := s.Carts.Items(s.DB, cart.ID)
	if err != nil {
		return CartView{}, err
	}
	return CartView{Cart: cart, Items: items}, nil
}

// AddItem reserves qty units and records them on the cart. Adding a product
// already in the cart raises the line's quantity, reserving only the delta.
// A reservation failure is returned untouched and the cart is not mutated.
func (s *CartService) AddItem(sessionID, productID string, qty int) (CartView, error) {
	if qty <= 0 {
		return CartView{}, fmt.Errorf("add %d: %w", qty, domain.ErrInvalidQuantity)
	}
	cart, err := s.GetOrCreate(sessionID)
	if err != nil {
		return CartView{}, err
	}

	if _, err := s.Resv.Sweep(); err != nil {
		return CartView{}, err
	}
	unlock := s.Resv.Locks.Lock(productID)
	defer unlock()

	// The hold and the cart line commit in one transaction, so neither can
	// survive without the other.
	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		if _, err := s.Resv.ReserveTx(tx, productID, sessionID, qty); err != nil {
			return err
		}
		existing, err := s.Carts.GetItem(tx, cart.ID, productID)
		switch {
		case err == nil:
			newQty := existing.Qty + qty
			sub := existing.UnitPrice.Mul(intDecimal(newQty)).Truncate(2)
			if err := s.Carts.UpdateItemQty(tx, cart.ID, productID, newQty, sub); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			p, err := s.Prods.Get(tx, productID)
			if err != nil {
				return err
			}
			item := domain.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Qty:       qty,
				UnitPrice: p.SalePrice,
				Subtotal:  p.SalePrice.Mul(intDecimal(qty)).Truncate(2),
			}
			if err := s.Carts.InsertItem(tx, item); err != nil {
				return err
			}
		default:
			return err
		}
		if _, err := s.Carts.RecomputeSubtotal(tx, cart.ID); err != nil {
			return err
		}
		return s.Carts.Touch(tx, cart.ID, timestamp(s.Now().Add(s.TTL)))
	})
	if err != nil {
		return CartView{}, err
	}
	applog.Info(nil, "cart.item.add", map[string]any{"cart": cart.ID, "product": productID, "qty": qty})
	return s.View(sessionID)
}

// RemoveItem drops a line from the cart and releases its hold in full.
func (s *CartService) RemoveItem(sessionID, productID string) (CartView, error) {
	cart, err := s.activeCart(sessionID)
	if err != nil {
		return CartView{}, err
	}
	unlock := s.Resv.Locks.Lock(productID)
	defer unlock()

	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		if _, err := s.Carts.GetItem(tx, cart.ID, productID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("product %s: %w", productID, domain.ErrItemNotFound)
			}
			return err
		}
		if _, err := s.Resv.ReleaseTx(tx, productID, sessionID); err != nil {
			return err
		}
		if _, err := s.Carts.DeleteItem(tx, cart.ID, productID); err != nil {
			return err
		}
		if _, err := s.Carts.RecomputeSubtotal(tx, cart.ID); err != nil {
			return err
		}
		return s.Carts.Touch(tx, cart.ID, timestamp(s.Now().Add(s.TTL)))
	})
	if err != nil {
		return CartView{}, err
	}
	applog.Info(nil, "cart.item.remove", map[string]any{"cart": cart.ID, "product": productID})
	return s.View(sessionID)
}

// ChangeQuantity sets a line to newQty. Raising it reserves only the delta
// and fails the whole operation, old quantity intact, when availability is
// short; lowering it releases exactly the difference.
func (s *CartService) ChangeQuantity(sessionID, productID string, newQty int) (CartView, error) {
	if newQty <= 0 {
		return CartView{}, fmt.Errorf("quantity %d: %w", newQty, domain.ErrInvalidQuantity)
	}
	cart, err := s.activeCart(sessionID)
	if err != nil {
		return CartView{}, err
	}
	if _, err := s.Resv.Sweep(); err != nil {
		return CartView{}, err
	}
	unlock := s.Resv.Locks.Lock(productID)
	defer unlock()

	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		item, err := s.Carts.GetItem(tx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("product %s: %w", productID, domain.ErrItemNotFound)
			}
			return err
		}
		switch delta := newQty - item.Qty; {
		case delta > 0:
			if _, err := s.Resv.ReserveTx(tx, productID, sessionID, delta); err != nil {
				return err
			}
		case delta < 0:
			if _, err := s.Resv.ReleaseQuantityTx(tx, productID, sessionID, -delta); err != nil {
				return err
			}
		default:
			return nil
		}
		sub := item.UnitPrice.Mul(intDecimal(newQty)).Truncate(2)
		if err := s.Carts.UpdateItemQty(tx, cart.ID, productID, newQty, sub); err != nil {
			return err
		}
		if _, err := s.Carts.RecomputeSubtotal(tx, cart.ID); err != nil {
			return err
		}
		return s.Carts.Touch(tx, cart.ID, timestamp(s.Now().Add(s.TTL)))
	})
	if err != nil {
		return CartView{}, err
	}
	applog.Info(nil, "cart.item.qty", map[string]any{"cart": cart.ID, "product": productID, "qty": newQty})
	return s.View(sessionID)
}

// Cancel releases every hold and moves the cart to CANCELLED. Cancelling a
// session with no active cart succeeds as a no-op.
func (s *CartService) Cancel(sessionID string) error {
	cart, err := s.Carts.ActiveForSession(s.DB, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.closeCart(cart, domain.CartCancelled)
}

func (s *CartService) activeCart(sessionID string) (domain.Cart, error) {
	cart, err := s.Carts.ActiveForSession(s.DB, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, fmt.Errorf("no active cart for session: %w", domain.ErrNotFound)
	}
	return cart, err
}

// renew pushes the cart window and the session's holds forward together.
func (s *CartService) renew(cartID, sessionID string) error {
	if err := s.Carts.Touch(s.DB, cartID, timestamp(s.Now().Add(s.TTL))); err != nil {
		return err
	}
	return s.Resv.ExtendForSession(sessionID)
}

// closeCart releases each line's hold and applies the terminal status in one
// transaction.
func (s *CartService) closeCart(cart domain.Cart, status string) error {
	items, err := s.Carts.Items(s.DB, cart.ID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	unlock := s.Resv.Locks.LockAll(ids)
	defer unlock()

	closed := false
	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		for _, it := range items {
			if _, err := s.Resv.ReleaseTx(tx, it.ProductID, cart.SessionID); err != nil {
				return err
			}
		}
		var err error
		closed, err = s.Carts.SetStatus(tx, cart.ID, status)
		return err
	})
	if err != nil {
		return err
	}
	if closed {
		applog.Info(nil, "cart.close", map[string]any{"cart": cart.ID, "status": status})
	}
	return nil
}

// sweepExpired moves ACTIVE carts past their window to EXPIRED, releasing
// their holds. Runs lazily from every cart entry point.
func (s *CartService) sweepExpired() error {
	expired, err := s.Carts.ExpiredActive(s.DB, timestamp(s.Now()))
	if err != nil {
		return err
	}
	for _, cart := range expired {
		if err := s.closeCart(cart, domain.CartExpired); err != nil {
			return err
		}
	}
	return nil
}
