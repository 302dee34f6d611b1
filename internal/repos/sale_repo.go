package repos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
)

type SaleRepo struct{ db *sqlx.DB }

func NewSaleRepo(db *sqlx.DB) *SaleRepo { return &SaleRepo{db: db} }

func (r *SaleRepo) Insert(q sqlx.Ext, s domain.Sale) error {
	_, err := q.Exec(`
	  INSERT INTO sales(id, session_id, customer_id, subtotal, discount, total, payment_method, status, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, 'COMPLETED', ?)
	`, s.ID, s.SessionID, s.CustomerID, s.Subtotal, s.Discount, s.Total, s.PaymentMethod, s.CreatedAt)
	return err
}

func (r *SaleRepo) InsertItem(q sqlx.Ext, it domain.SaleItem) error {
	_, err := q.Exec(`
	  INSERT INTO sale_items(sale_id, product_id, product_name, qty, unit_price, subtotal)
	  VALUES (?, ?, ?, ?, ?, ?)
	`, it.SaleID, it.ProductID, it.ProductName, it.Qty, it.UnitPrice, it.Subtotal)
	return err
}

func (r *SaleRepo) Get(q sqlx.Queryer, id string) (domain.Sale, []domain.SaleItem, error) {
	var s domain.Sale
	err := sqlx.Get(q, &s, `
	  SELECT id, session_id, customer_id, subtotal, discount, total, payment_method, status, created_at
	  FROM sales
	  WHERE id = ?
	`, id)
	if err == sql.ErrNoRows {
		return domain.Sale{}, nil, fmt.Errorf("sale %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Sale{}, nil, err
	}

	var items []domain.SaleItem
	if err := sqlx.Select(q, &items, `
	  SELECT sale_id, product_id, product_name, qty, unit_price, subtotal
	  FROM sale_items
	  WHERE sale_id = ?
	  ORDER BY product_name
	`, id); err != nil {
		return domain.Sale{}, nil, err
	}
	return s, items, nil
}

// MarkCancelled flips a completed sale to CANCELLED exactly once.
func (r *SaleRepo) MarkCancelled(q sqlx.Ext, id string) (bool, error) {
	res, err := q.Exec(`UPDATE sales SET status = 'CANCELLED' WHERE id = ? AND status = 'COMPLETED'`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SaleRepo) ListBySession(sessionID string, limit int) ([]domain.Sale, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []domain.Sale
	err := r.db.Select(&out, `
	  SELECT id, session_id, customer_id, subtotal, discount, total, payment_method, status, created_at
	  FROM sales
	  WHERE session_id = ?
	  ORDER BY datetime(created_at) DESC
	  LIMIT ?
	`, sessionID, limit)
	return out, err
}
