package repos

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"stockroom/internal/domain"
)

type CustomerRepo struct{ db *sqlx.DB }

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) GetByTaxID(q sqlx.Queryer, taxID string) (domain.Customer, error) {
	var c domain.Customer
	err := sqlx.Get(q, &c, `
	  SELECT id, name, tax_id, active, created_at
	  FROM customers
	  WHERE tax_id = ?
	`, taxID)
	if err == sql.ErrNoRows {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", taxID, domain.ErrCustomerNotFound)
	}
	return c, err
}

func (r *CustomerRepo) Insert(q sqlx.Ext, c domain.Customer) error {
	_, err := q.Exec(`
	  INSERT INTO customers(id, name, tax_id, active, created_at)
	  VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
	`, c.ID, c.Name, c.TaxID)
	return err
}

// Deactivate soft-deletes; sales keep referencing the row.
func (r *CustomerRepo) Deactivate(q sqlx.Ext, id string) error {
	res, err := q.Exec(`UPDATE customers SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %s: %w", id, domain.ErrCustomerNotFound)
	}
	return nil
}
