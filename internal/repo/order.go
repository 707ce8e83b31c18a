package repo

import (
	"context"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.DB.WithContext(ctx).Create(order).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// EligibleOrders selects up to limit orders with line items for the
// project still awaiting capture, oldest first so repeated bounded
// passes walk the backlog deterministically.
func (r *GormRepo) EligibleOrders(ctx context.Context, projectID uint, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Distinct("orders.*").
		Joins("JOIN carts ON carts.id = orders.cart_id").
		Joins("JOIN cart_items ON cart_items.cart_id = carts.id").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("products.project_id = ? AND cart_items.status IN ?",
			projectID, []models.Status{models.StatusPaymentPending, models.StatusUnfunded}).
		Order("orders.id ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// AcquireCaptureLock flips the order's capture guard from idle to in
// progress with a conditional update. A false return means another
// capture holds the guard (or the order is parked as uncertain), so the
// caller must not touch the gateway.
func (r *GormRepo) AcquireCaptureLock(ctx context.Context, orderID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND capture_state = ?", orderID, models.CaptureStateIdle).
		Update("capture_state", models.CaptureStateInProgress)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) SetCaptureState(ctx context.Context, orderID uint, state string) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("capture_state", state).Error
}

// OrderProjectItems returns the order's non-cancelled line items that
// belong to the given project, restricted to the given statuses when
// any are passed.
func (r *GormRepo) OrderProjectItems(ctx context.Context, orderID, projectID uint, statuses ...models.Status) ([]models.CartItem, error) {
	q := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Joins("JOIN orders ON orders.cart_id = carts.id").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("orders.id = ? AND products.project_id = ?", orderID, projectID).
		Where("cart_items.status <> ?", models.StatusCancelled)
	if len(statuses) > 0 {
		q = q.Where("cart_items.status IN ?", statuses)
	}
	var items []models.CartItem
	err := q.Order("cart_items.id ASC").Find(&items).Error
	return items, err
}

// AmountDue is the current total owed on an order: every non-cancelled
// line item's price plus shipping times quantity.
func (r *GormRepo) AmountDue(ctx context.Context, orderID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM((cart_items.price_each + cart_items.shipping_price) * cart_items.qty_desired), 0)").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Joins("JOIN orders ON orders.cart_id = carts.id").
		Where("orders.id = ? AND cart_items.status <> ?", orderID, models.StatusCancelled).
		Scan(&total).Error
	return total, err
}

// AuthorizedAmount is the total already captured against an order.
func (r *GormRepo) AuthorizedAmount(ctx context.Context, orderID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ?", orderID).
		Scan(&total).Error
	return total, err
}

func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *GormRepo) PaymentCount(ctx context.Context, orderID uint) (int, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Count(&n).Error
	return int(n), err
}
