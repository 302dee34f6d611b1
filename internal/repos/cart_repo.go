package repos

import (
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
)

type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// ActiveForSession returns the session's ACTIVE cart, or sql.ErrNoRows
// (wrapped by sqlx.Get) when the session has none.
func (r *CartRepo) ActiveForSession(q sqlx.Queryer, sessionID string) (domain.Cart, error) {
	var c domain.Cart
	err := sqlx.Get(q, &c, `
	  SELECT id, session_id, status, subtotal, expires_at, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM carts
	  WHERE session_id = ? AND status = 'ACTIVE'
	`, sessionID)
	return c, err
}

func (r *CartRepo) Get(q sqlx.Queryer, id string) (domain.Cart, error) {
	var c domain.Cart
	err := sqlx.Get(q, &c, `
	  SELECT id, session_id, status, subtotal, expires_at, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM carts
	  WHERE id = ?
	`, id)
	return c, err
}

func (r *CartRepo) Insert(q sqlx.Ext, c domain.Cart) error {
	_, err := q.Exec(`
	  INSERT INTO carts(id, session_id, status, subtotal, expires_at, created_at)
	  VALUES (?, ?, 'ACTIVE', '0', ?, CURRENT_TIMESTAMP)
	`, c.ID, c.SessionID, c.ExpiresAt)
	return err
}

// Touch renews the cart's expiry window on every interaction.
func (r *CartRepo) Touch(q sqlx.Ext, cartID, expiresAt string) error {
	_, err := q.Exec(`UPDATE carts SET expires_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, expiresAt, cartID)
	return err
}

// SetStatus moves an ACTIVE cart into a terminal state. Terminal states are
// never left, so the status guard doubles as the transition table.
func (r *CartRepo) SetStatus(q sqlx.Ext, cartID, status string) (bool, error) {
	res, err := q.Exec(`UPDATE carts SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'ACTIVE'`, status, cartID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ExpiredActive returns ACTIVE carts whose window closed before now.
func (r *CartRepo) ExpiredActive(q sqlx.Queryer, now string) ([]domain.Cart, error) {
	var out []domain.Cart
	err := sqlx.Select(q, &out, `
	  SELECT id, session_id, status, subtotal, expires_at, created_at, COALESCE(updated_at,'') AS updated_at
	  FROM carts
	  WHERE status = 'ACTIVE' AND expires_at < ?
	`, now)
	return out, err
}

func (r *CartRepo) Items(q sqlx.Queryer, cartID string) ([]domain.CartItem, error) {
	var out []domain.CartItem
	err := sqlx.Select(q, &out, `
	  SELECT cart_id, product_id, qty, unit_price, subtotal,
	         COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at
	  FROM cart_items
	  WHERE cart_id = ?
	  ORDER BY created_at, product_id
	`, cartID)
	return out, err
}

func (r *CartRepo) GetItem(q sqlx.Queryer, cartID, productID string) (domain.CartItem, error) {
	var it domain.CartItem
	err := sqlx.Get(q, &it, `
	  SELECT cart_id, product_id, qty, unit_price, subtotal,
	         COALESCE(created_at,'') AS created_at, COALESCE(updated_at,'') AS updated_at
	  FROM cart_items
	  WHERE cart_id = ? AND product_id = ?
	`, cartID, productID)
	return it, err
}

func (r *CartRepo) InsertItem(q sqlx.Ext, it domain.CartItem) error {
	_, err := q.Exec(`
	  INSERT INTO cart_items(cart_id, product_id, qty, unit_price, subtotal, created_at)
	  VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, it.CartID, it.ProductID, it.Qty, it.UnitPrice, it.Subtotal)
	return err
}

func (r *CartRepo) UpdateItemQty(q sqlx.Ext, cartID, productID string, qty int, subtotal decimal.Decimal) error {
	_, err := q.Exec(`
	  UPDATE cart_items SET qty = ?, subtotal = ?, updated_at = CURRENT_TIMESTAMP
	  WHERE cart_id = ? AND product_id = ?
	`, qty, subtotal, cartID, productID)
	return err
}

func (r *CartRepo) DeleteItem(q sqlx.Ext, cartID, productID string) (bool, error) {
	res, err := q.Exec(`DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecomputeSubtotal re-derives the cart subtotal from its items. Money math
// stays in Go; the stored NUMERIC is just the result.
func (r *CartRepo) RecomputeSubtotal(q sqlx.Ext, cartID string) (decimal.Decimal, error) {
	items, err := r.Items(q, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	if _, err := q.Exec(`UPDATE carts SET subtotal = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, total, cartID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
