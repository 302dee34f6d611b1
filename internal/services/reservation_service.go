package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// ReservationService creates, extends, reclaims, and releases time-bounded
// holds against the stock ledger. Holds are advisory: physical on_hand is
// untouched until checkout, so concurrent shoppers see a consistent
// "available" figure without long-lived row locks, at the cost of the sweep
// having to reclaim abandoned holds.
type ReservationService struct {
	DB     *sqlx.DB
	Resvs  *repos.ReservationRepo
	Prods  *repos.ProductRepo
	Movs   *repos.MovementRepo
	Ledger *StockLedger
	Locks  *ProductLocks

	TTL time.Duration
	Now func() time.Time
}

func NewReservationService(db *sqlx.DB, resvs *repos.ReservationRepo, prods *repos.ProductRepo,
	movs *repos.MovementRepo, ledger *StockLedger, locks *ProductLocks, ttl time.Duration) *ReservationService {
	return &ReservationService{
		DB: db, Resvs: resvs, Prods: prods, Movs: movs, Ledger: ledger, Locks: locks,
		TTL: ttl, Now: time.Now,
	}
}

// Reserve claims qty units of availability for the session. Expired holds on
// all products are reclaimed first, then the availability check and the hold
// creation run atomically under the product's lock. Reserving exactly the
// remaining availability succeeds.
func (s *ReservationService) Reserve(productID, sessionID string, qty int) (domain.Reservation, error) {
	if _, err := s.Sweep(); err != nil {
		return domain.Reservation{}, err
	}

	unlock := s.Locks.Lock(productID)
	defer unlock()

	var res domain.Reservation
	err := inTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		res, err = s.ReserveTx(tx, productID, sessionID, qty)
		return err
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	applog.Info(nil, "reservation.create", map[string]any{
		"reservation": res.ID, "product": productID, "session": sessionID, "qty": qty, "expires_at": res.ExpiresAt,
	})
	return res, nil
}

// ReserveTx places a hold inside the caller's transaction, so the hold and
// whatever state depends on it (a cart line) commit or fail together. The
// caller holds the product's lock.
func (s *ReservationService) ReserveTx(tx *sqlx.Tx, productID, sessionID string, qty int) (domain.Reservation, error) {
	if qty <= 0 {
		return domain.Reservation{}, fmt.Errorf("reserve %d: %w", qty, domain.ErrInvalidQuantity)
	}
	p, err := s.Prods.Get(tx, productID)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !p.Active {
		return domain.Reservation{}, fmt.Errorf("product %s: %w", productID, domain.ErrProductDisabled)
	}
	if p.Available() < qty {
		return domain.Reservation{}, fmt.Errorf("product %s (requested %d, available %d): %w",
			productID, qty, p.Available(), domain.ErrInsufficientAvailability)
	}

	now := s.Now()
	res := domain.Reservation{
		ID:        uuid.NewString(),
		ProductID: productID,
		SessionID: sessionID,
		Qty:       qty,
		CreatedAt: timestamp(now),
		ExpiresAt: timestamp(now.Add(s.TTL)),
		Active:    true,
	}
	if err := s.Resvs.Insert(tx, res); err != nil {
		return domain.Reservation{}, err
	}
	if err := s.Ledger.AdjustReservedTx(tx, productID, qty); err != nil {
		return domain.Reservation{}, err
	}
	if err := s.Movs.Append(tx, domain.Movement{
		ProductID:    productID,
		Type:         domain.MovementReserve,
		Qty:          qty,
		OnHandBefore: p.OnHand,
		OnHandAfter:  p.OnHand,
		SessionID:    strptr(sessionID),
		Note:         "hold " + res.ID,
		CreatedAt:    res.CreatedAt,
	}); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

// Release deactivates every active hold the session has on the product and
// returns the total quantity freed. Nothing to release is not an error.
func (s *ReservationService) Release(productID, sessionID string) (int, error) {
	unlock := s.Locks.Lock(productID)
	defer unlock()

	released := 0
	err := inTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		released, err = s.ReleaseTx(tx, productID, sessionID)
		return err
	})
	return released, err
}

// ReleaseTx frees all of the session's holds on a product inside the caller's
// transaction. The caller holds the product's lock.
func (s *ReservationService) ReleaseTx(tx *sqlx.Tx, productID, sessionID string) (int, error) {
	rows, err := s.Resvs.ActiveForProductSession(tx, productID, sessionID)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, r := range rows {
		n, err := s.releaseRowTx(tx, r, "released")
		if err != nil {
			return released, err
		}
		released += n
	}
	return released, nil
}

// ActiveForSession lists the session's active holds, newest first.
func (s *ReservationService) ActiveForSession(sessionID string) ([]domain.Reservation, error) {
	return s.Resvs.ActiveForSession(s.DB, sessionID)
}

// ReleaseByID deactivates one specific hold.
func (s *ReservationService) ReleaseByID(reservationID string) (int, error) {
	r, err := s.Resvs.Get(s.DB, reservationID)
	if err != nil {
		return 0, err
	}
	unlock := s.Locks.Lock(r.ProductID)
	defer unlock()

	released := 0
	err = inTx(s.DB, func(tx *sqlx.Tx) error {
		released, err = s.releaseRowTx(tx, r, "released")
		return err
	})
	return released, err
}

// ReleaseQuantity frees exactly qty units of the session's holds on the
// product, newest hold first, shrinking the last one in place when the
// boundary falls inside it. Used when a cart line's quantity goes down.
func (s *ReservationService) ReleaseQuantity(productID, sessionID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, fmt.Errorf("release %d: %w", qty, domain.ErrInvalidQuantity)
	}
	unlock := s.Locks.Lock(productID)
	defer unlock()

	released := 0
	err := inTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		released, err = s.ReleaseQuantityTx(tx, productID, sessionID, qty)
		return err
	})
	return released, err
}

// ReleaseQuantityTx is the transaction-scoped form. The caller holds the
// product's lock.
func (s *ReservationService) ReleaseQuantityTx(tx *sqlx.Tx, productID, sessionID string, qty int) (int, error) {
	rows, err := s.Resvs.ActiveForProductSession(tx, productID, sessionID)
	if err != nil {
		return 0, err
	}
	released := 0
	remaining := qty
	for _, r := range rows {
		if remaining == 0 {
			break
		}
		if r.Qty <= remaining {
			n, err := s.releaseRowTx(tx, r, "released")
			if err != nil {
				return released, err
			}
			released += n
			remaining -= n
			continue
		}
		ok, err := s.Resvs.ShrinkQty(tx, r.ID, r.Qty-remaining)
		if err != nil {
			return released, err
		}
		if !ok {
			continue
		}
		p, err := s.Prods.Get(tx, productID)
		if err != nil {
			return released, err
		}
		if err := s.Ledger.AdjustReservedTx(tx, productID, -remaining); err != nil {
			return released, err
		}
		if err := s.Movs.Append(tx, domain.Movement{
			ProductID:    productID,
			Type:         domain.MovementRelease,
			Qty:          -remaining,
			OnHandBefore: p.OnHand,
			OnHandAfter:  p.OnHand,
			SessionID:    strptr(sessionID),
			Note:         "partial release of hold " + r.ID,
			CreatedAt:    timestamp(s.Now()),
		}); err != nil {
			return released, err
		}
		released += remaining
		remaining = 0
	}
	return released, nil
}

// ExtendForSession resets the expiry of all the session's active holds,
// called whenever the owning cart is touched.
func (s *ReservationService) ExtendForSession(sessionID string) error {
	return s.Resvs.ExtendForSession(s.DB, sessionID, timestamp(s.Now().Add(s.TTL)))
}

// Sweep reclaims every expired hold. Idempotent and safe to run from any
// read/write entry point: the active=1 guard on deactivation means racing
// sweeps reclaim each hold exactly once, and locking is per product so
// unrelated products are never blocked.
func (s *ReservationService) Sweep() (int, error) {
	expired, err := s.Resvs.Expired(s.DB, timestamp(s.Now()))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range expired {
		unlock := s.Locks.Lock(r.ProductID)
		err := inTx(s.DB, func(tx *sqlx.Tx) error {
			n, err := s.releaseRowTx(tx, r, "reservation expired")
			if n > 0 {
				count++
			}
			return err
		})
		unlock()
		if err != nil {
			return count, err
		}
	}
	if count > 0 {
		applog.Info(nil, "reservation.sweep", map[string]any{"reclaimed": count})
	}
	return count, nil
}

// SupersedeTx deactivates the session's holds on a product without touching
// the reserved counter. Checkout uses it after the real deduction already
// consumed the reserved share.
func (s *ReservationService) SupersedeTx(tx sqlx.Ext, productID, sessionID string) error {
	rows, err := s.Resvs.ActiveForProductSession(tx, productID, sessionID)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := s.Resvs.Deactivate(tx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// releaseRowTx flips one hold inactive and gives its quantity back to
// availability. The caller holds the product lock. Returns the quantity
// actually freed; zero means another caller got there first.
func (s *ReservationService) releaseRowTx(tx *sqlx.Tx, r domain.Reservation, note string) (int, error) {
	ok, err := s.Resvs.Deactivate(tx, r.ID)
	if err != nil || !ok {
		return 0, err
	}
	p, err := s.Prods.Get(tx, r.ProductID)
	if err != nil {
		return 0, err
	}
	if err := s.Ledger.AdjustReservedTx(tx, r.ProductID, -r.Qty); err != nil {
		return 0, err
	}
	if err := s.Movs.Append(tx, domain.Movement{
		ProductID:    r.ProductID,
		Type:         domain.MovementRelease,
		Qty:          -r.Qty,
		OnHandBefore: p.OnHand,
		OnHandAfter:  p.OnHand,
		SessionID:    strptr(r.SessionID),
		Note:         note,
		CreatedAt:    timestamp(s.Now()),
	}); err != nil {
		return 0, err
	}
	return r.Qty, nil
}
