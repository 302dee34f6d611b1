package repos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
)

// ProductRepo owns reads and writes of the products table, including the
// on_hand/reserved counters. Mutating methods take an sqlx.Ext so they can
// join a service-level transaction.
type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) DB() *sqlx.DB { return r.db }

func (r *ProductRepo) Get(q sqlx.Queryer, id string) (domain.Product, error) {
	var p domain.Product
	err := sqlx.Get(q, &p, `
	  SELECT id, name, category, sale_price, cost_price, on_hand, reserved, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return p, err
}

func (r *ProductRepo) List(activeOnly bool) ([]domain.Product, error) {
	where := ``
	if activeOnly {
		where = `WHERE active = 1`
	}
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, category, sale_price, cost_price, on_hand, reserved, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products `+where+`
	  ORDER BY category, name
	`)
	return out, err
}

func (r *ProductRepo) Insert(q sqlx.Ext, p domain.Product) error {
	_, err := q.Exec(`
	  INSERT INTO products(id, name, category, sale_price, cost_price, on_hand, reserved, active, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, 0, 1, CURRENT_TIMESTAMP)
	`, p.ID, p.Name, p.Category, p.SalePrice, p.CostPrice, p.OnHand)
	return err
}

// Deactivate soft-deletes; the row stays referenced by movements and sales.
func (r *ProductRepo) Deactivate(q sqlx.Ext, id string) error {
	res, err := q.Exec(`UPDATE products SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND active = 1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *ProductRepo) IncreaseOnHand(q sqlx.Ext, id string, qty int) error {
	_, err := q.Exec(`
	  UPDATE products SET on_hand = on_hand + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, qty, id)
	return err
}

// DecreaseOnHand is the checkout deduction: it subtracts qty if enough
// physical stock exists and consumes the same share of the reserved counter
// (floored at zero), since the caller is settling its own hold. The qty >=
// guard is the last line of defense against oversell even when reservation
// accounting has drifted.
func (r *ProductRepo) DecreaseOnHand(q sqlx.Ext, id string, qty int) error {
	res, err := q.Exec(`
	  UPDATE products
	  SET on_hand = on_hand - ?,
	      reserved = MAX(0, reserved - ?),
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND on_hand >= ?
	`, qty, qty, id, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s (need %d): %w", id, qty, domain.ErrInsufficientStock)
	}
	return nil
}

// WithdrawOnHand subtracts qty without consuming any hold: the caller has no
// reservation of its own, so reserved is only clamped to the shrunken on_hand,
// leaving other sessions' holds intact wherever they still fit.
func (r *ProductRepo) WithdrawOnHand(q sqlx.Ext, id string, qty int) error {
	res, err := q.Exec(`
	  UPDATE products
	  SET on_hand = on_hand - ?,
	      reserved = MIN(reserved, on_hand - ?),
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND on_hand >= ?
	`, qty, qty, id, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s (need %d): %w", id, qty, domain.ErrInsufficientStock)
	}
	return nil
}

// AdjustOnHand applies a signed correction. reserved is clamped to the new
// on_hand so the row invariant survives downward corrections.
func (r *ProductRepo) AdjustOnHand(q sqlx.Ext, id string, delta int) error {
	res, err := q.Exec(`
	  UPDATE products
	  SET on_hand = on_hand + ?,
	      reserved = MIN(reserved, on_hand + ?),
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND on_hand + ? >= 0
	`, delta, delta, id, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s (delta %d): %w", id, delta, domain.ErrInsufficientStock)
	}
	return nil
}

// AdjustReserved moves the reserved counter by delta, clamped to [0, on_hand].
func (r *ProductRepo) AdjustReserved(q sqlx.Ext, id string, delta int) error {
	_, err := q.Exec(`
	  UPDATE products
	  SET reserved = MIN(on_hand, MAX(0, reserved + ?)),
	      updated_at = CURRENT_TIMESTAMP
	  WHERE id = ?
	`, delta, id)
	return err
}
