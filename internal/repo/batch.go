package repo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// ErrBatchUnavailable means no batch has capacity for a pre-order
// request. This is a normal business outcome, handled by the
// unavailable branch of refresh, never a fatal error.
var ErrBatchUnavailable = errors.New("no batch with available capacity")

// batchAllocated sums the quantity already committed to a batch by
// non-cancelled cart items, excluding the item currently being
// refreshed so its previous allocation does not count against itself.
func (r *GormRepo) batchAllocated(ctx context.Context, batchID, excludeItemID uint) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(qty_desired), 0)").
		Where("batch_id = ? AND status <> ? AND id <> ?",
			batchID, models.StatusCancelled, excludeItemID).
		Scan(&total).Error
	return int(total), err
}

// SelectBatch picks the batch that will fulfill qty units of a product.
// Policy: earliest ship time first, id as tie break, so the same
// request against unchanged capacity always returns the same batch.
// When enforceCapacity is false (crowdfunding is defined to be
// capacity-unconstrained) the first batch wins regardless of capacity;
// a product with no batches at all still fails.
func (r *GormRepo) SelectBatch(ctx context.Context, productID uint, qty int, enforceCapacity bool, excludeItemID uint) (*models.Batch, error) {
	var batches []models.Batch
	err := r.DB.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("ship_time ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, ErrBatchUnavailable
	}
	if !enforceCapacity {
		return &batches[0], nil
	}
	for i := range batches {
		b := &batches[i]
		if b.Qty == 0 {
			return b, nil
		}
		allocated, err := r.batchAllocated(ctx, b.ID, excludeItemID)
		if err != nil {
			return nil, err
		}
		if b.Qty-allocated >= qty {
			return b, nil
		}
	}
	return nil, ErrBatchUnavailable
}

// PreorderRemaining reports the product's remaining allocatable
// pre-order quantity across its batches. unlimited is true when any
// batch has no quantity limit; hasBatches is false when the product has
// no batches at all (no pre-order path).
func (r *GormRepo) PreorderRemaining(ctx context.Context, productID, excludeItemID uint) (remaining int, unlimited, hasBatches bool, err error) {
	var batches []models.Batch
	if err = r.DB.WithContext(ctx).Where("product_id = ?", productID).Find(&batches).Error; err != nil {
		return 0, false, false, err
	}
	if len(batches) == 0 {
		return 0, false, false, nil
	}
	for i := range batches {
		b := &batches[i]
		if b.Qty == 0 {
			return 0, true, true, nil
		}
		allocated, aerr := r.batchAllocated(ctx, b.ID, excludeItemID)
		if aerr != nil {
			return 0, false, true, aerr
		}
		remaining += b.Qty - allocated
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, true, nil
}
