package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

var ErrNotFound = errors.New("not found")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// WithTx returns a repo scoped to the given transaction. Callers own
// the transaction lifecycle; every mutation inside a refresh or a
// capture runs through a tx-scoped repo so a failure rolls back the
// whole unit of work.
func (r *GormRepo) WithTx(tx *gorm.DB) *GormRepo {
	return &GormRepo{DB: tx}
}

func (r *GormRepo) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductWithProject loads a product and its owning project.
func (r *GormRepo) ProductWithProject(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Preload("Project").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SKUPrice computes the unit price for a SKU: the product base price
// plus the price increase of every selected option value.
func (r *GormRepo) SKUPrice(ctx context.Context, product *models.Product, skuID uint) (int64, error) {
	var sku models.SKU
	if err := r.DB.WithContext(ctx).Preload("OptionValues").First(&sku, skuID).Error; err != nil {
		return 0, err
	}
	price := product.Price
	for _, ov := range sku.OptionValues {
		price += ov.PriceIncrease
	}
	return price, nil
}

func (r *GormRepo) SaveCartItem(ctx context.Context, ci *models.CartItem) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(ci).Error
}
