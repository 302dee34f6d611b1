package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"stockroom/internal/domain"
	applog "stockroom/internal/log"
	"stockroom/internal/repos"
)

// CatalogService covers the thin product-registry surface around the engine:
// lookups, creation, soft deactivation. Stock counters are never touched
// here; that is the ledger's job.
type CatalogService struct {
	DB    *sqlx.DB
	Prods *repos.ProductRepo
	Custs *repos.CustomerRepo
}

func NewCatalogService(db *sqlx.DB, prods *repos.ProductRepo, custs *repos.CustomerRepo) *CatalogService {
	return &CatalogService{DB: db, Prods: prods, Custs: custs}
}

func (s *CatalogService) Get(id string) (domain.Product, error) {
	return s.Prods.Get(s.DB, id)
}

func (s *CatalogService) List(activeOnly bool) ([]domain.Product, error) {
	return s.Prods.List(activeOnly)
}

func (s *CatalogService) Create(name, category string, salePrice, costPrice decimal.Decimal) (domain.Product, error) {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if costPrice.LessThanOrEqual(decimal.Zero) || salePrice.LessThan(costPrice) {
		return domain.Product{}, fmt.Errorf("sale %s / cost %s: %w",
			salePrice.StringFixed(2), costPrice.StringFixed(2), domain.ErrInvalidPrice)
	}

	p := domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		SalePrice: salePrice.Truncate(2),
		CostPrice: costPrice.Truncate(2),
		Active:    true,
	}
	if err := s.Prods.Insert(s.DB, p); err != nil {
		return domain.Product{}, err
	}
	applog.Audit(nil, "product.create", map[string]any{"product": p.ID, "name": p.Name})
	return s.Prods.Get(s.DB, p.ID)
}

// Deactivate soft-deletes a product. Movements and sales keep referencing it.
func (s *CatalogService) Deactivate(id string) error {
	if err := s.Prods.Deactivate(s.DB, id); err != nil {
		return err
	}
	applog.Audit(nil, "product.deactivate", map[string]any{"product": id})
	return nil
}

func (s *CatalogService) CreateCustomer(name, taxID string) (domain.Customer, error) {
	c := domain.Customer{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		TaxID: taxID,
	}
	if err := s.Custs.Insert(s.DB, c); err != nil {
		return domain.Customer{}, err
	}
	return s.Custs.GetByTaxID(s.DB, taxID)
}

func (s *CatalogService) GetCustomer(taxID string) (domain.Customer, error) {
	return s.Custs.GetByTaxID(s.DB, taxID)
}
