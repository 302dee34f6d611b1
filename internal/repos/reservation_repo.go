package repos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
)

type ReservationRepo struct{ db *sqlx.DB }

func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

func (r *ReservationRepo) Insert(q sqlx.Ext, res domain.Reservation) error {
	_, err := q.Exec(`
	  INSERT INTO reservations(id, product_id, session_id, qty, created_at, expires_at, active)
	  VALUES (?, ?, ?, ?, ?, ?, 1)
	`, res.ID, res.ProductID, res.SessionID, res.Qty, res.CreatedAt, res.ExpiresAt)
	return err
}

func (r *ReservationRepo) Get(q sqlx.Queryer, id string) (domain.Reservation, error) {
	var res domain.Reservation
	err := sqlx.Get(q, &res, `
	  SELECT id, product_id, session_id, qty, created_at, expires_at, active
	  FROM reservations
	  WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return domain.Reservation{}, fmt.Errorf("reservation %s: %w", id, domain.ErrNotFound)
	}
	return res, err
}

func (r *ReservationRepo) ActiveForProductSession(q sqlx.Queryer, productID, sessionID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := sqlx.Select(q, &out, `
	  SELECT id, product_id, session_id, qty, created_at, expires_at, active
	  FROM reservations
	  WHERE product_id = ? AND session_id = ? AND active = 1
	  ORDER BY created_at DESC, id DESC
	`, productID, sessionID)
	return out, err
}

func (r *ReservationRepo) ActiveForSession(q sqlx.Queryer, sessionID string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := sqlx.Select(q, &out, `
	  SELECT id, product_id, session_id, qty, created_at, expires_at, active
	  FROM reservations
	  WHERE session_id = ? AND active = 1
	  ORDER BY created_at DESC, id DESC
	`, sessionID)
	return out, err
}

// Expired returns active reservations whose expiry is strictly before now.
func (r *ReservationRepo) Expired(q sqlx.Queryer, now string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := sqlx.Select(q, &out, `
	  SELECT id, product_id, session_id, qty, created_at, expires_at, active
	  FROM reservations
	  WHERE active = 1 AND expires_at < ?
	  ORDER BY expires_at
	`, now)
	return out, err
}

// Deactivate flips one reservation to inactive. The active=1 guard makes the
// flip exactly-once under racing sweeps: only the caller that sees a row
// affected may decrement the product's reserved counter.
func (r *ReservationRepo) Deactivate(q sqlx.Ext, id string) (bool, error) {
	res, err := q.Exec(`UPDATE reservations SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ShrinkQty lowers an active reservation's quantity in place (partial
// release of a cart line).
func (r *ReservationRepo) ShrinkQty(q sqlx.Ext, id string, newQty int) (bool, error) {
	res, err := q.Exec(`UPDATE reservations SET qty = ? WHERE id = ? AND active = 1 AND qty > ?`, newQty, id, newQty)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ExtendForSession pushes the expiry of every active hold owned by the
// session, keeping an actively-shopping session from losing stock mid-flow.
func (r *ReservationRepo) ExtendForSession(q sqlx.Ext, sessionID, expiresAt string) error {
	_, err := q.Exec(`UPDATE reservations SET expires_at = ? WHERE session_id = ? AND active = 1`, expiresAt, sessionID)
	return err
}
