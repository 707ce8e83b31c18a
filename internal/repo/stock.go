package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// ErrReservationShortfall means fewer eligible items existed than the
// caller asserted. The caller must have verified availability first, so
// hitting this is a contract violation (or a lost race) and must abort
// the enclosing transaction.
var ErrReservationShortfall = errors.New("reservation shortfall")

// StockAvailable counts un-reserved, non-destroyed items for a SKU.
func (r *GormRepo) StockAvailable(ctx context.Context, skuID uint) (int, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("sku_id = ? AND destroy_time IS NULL AND cart_item_id IS NULL", skuID).
		Count(&n).Error
	return int(n), err
}

// ReserveStock exclusively assigns exactly qty items of the cart item's
// SKU to it. The assignment is a single conditional UPDATE so that two
// concurrent reservations on the same SKU can never both claim one
// item: the losing statement matches fewer rows and the shortfall check
// fails, rolling back the enclosing transaction. Must run inside a
// transaction.
func (r *GormRepo) ReserveStock(ctx context.Context, ci *models.CartItem, qty int) error {
	if qty == 0 {
		return nil
	}
	eligible := r.DB.Model(&models.Item{}).Select("id").
		Where("sku_id = ? AND destroy_time IS NULL AND cart_item_id IS NULL", ci.SKUID).
		Limit(qty)
	res := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("cart_item_id IS NULL").
		Where("id IN (?)", eligible).
		Update("cart_item_id", ci.ID)
	if res.Error != nil {
		return res.Error
	}
	if int(res.RowsAffected) != qty {
		return fmt.Errorf("wanted %d items for sku %d, got %d: %w",
			qty, ci.SKUID, res.RowsAffected, ErrReservationShortfall)
	}
	return nil
}

// ReleaseStock returns every item reserved to the cart item to the
// available pool.
func (r *GormRepo) ReleaseStock(ctx context.Context, cartItemID uint) error {
	return r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("cart_item_id = ?", cartItemID).
		Update("cart_item_id", nil).Error
}

// QtyReserved counts the items currently reserved to a cart item.
func (r *GormRepo) QtyReserved(ctx context.Context, cartItemID uint) (int, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("cart_item_id = ?", cartItemID).
		Count(&n).Error
	return int(n), err
}

// ReceiveStock creates qty new stock items for a SKU.
func (r *GormRepo) ReceiveStock(ctx context.Context, skuID uint, qty int) ([]models.Item, error) {
	items := make([]models.Item, qty)
	for i := range items {
		items[i].SKUID = skuID
	}
	if err := r.DB.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
