package repos

import (
	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
)

// MovementRepo is the append-only movement log writer. There is no update or
// delete here on purpose.
type MovementRepo struct{ db *sqlx.DB }

func NewMovementRepo(db *sqlx.DB) *MovementRepo { return &MovementRepo{db: db} }

func (r *MovementRepo) Append(q sqlx.Ext, m domain.Movement) error {
	_, err := q.Exec(`
	  INSERT INTO stock_movements(product_id, type, qty, on_hand_before, on_hand_after, session_id, sale_id, note, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ProductID, m.Type, m.Qty, m.OnHandBefore, m.OnHandAfter, m.SessionID, m.SaleID, m.Note, m.CreatedAt)
	return err
}

func (r *MovementRepo) ListByProduct(productID string, limit int) ([]domain.Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []domain.Movement
	err := r.db.Select(&out, `
	  SELECT id, product_id, type, qty, on_hand_before, on_hand_after, session_id, sale_id, note, created_at
	  FROM stock_movements
	  WHERE product_id = ?
	  ORDER BY id DESC
	  LIMIT ?
	`, productID, limit)
	return out, err
}
