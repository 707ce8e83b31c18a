package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// OpenCart returns the user's cart that has not been placed as an
// order yet, creating one if needed.
func (r *GormRepo) OpenCart(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("NOT EXISTS (SELECT 1 FROM orders WHERE orders.cart_id = carts.id)").
		Order("id DESC").
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cart = models.Cart{UserID: userID, UpdatedTime: now}
		if err := r.DB.WithContext(ctx).Create(&cart).Error; err != nil {
			return nil, err
		}
		return &cart, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CartWithItems(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items").
		First(&cart, cartID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartItem(ctx context.Context, itemID uint) (*models.CartItem, error) {
	var ci models.CartItem
	if err := r.DB.WithContext(ctx).First(&ci, itemID).Error; err != nil {
		return nil, err
	}
	return &ci, nil
}

// CartHasOrder reports whether the cart has been placed as an order,
// which freezes its structure.
func (r *GormRepo) CartHasOrder(ctx context.Context, cartID uint) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("cart_id = ?", cartID).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) TouchCart(ctx context.Context, cartID uint, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("updated_time", now).Error
}

func (r *GormRepo) DeleteCartItem(ctx context.Context, ci *models.CartItem) error {
	return r.DB.WithContext(ctx).Delete(ci).Error
}
