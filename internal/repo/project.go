package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

// PledgedAmount sums qty * price over every non-cancelled ordered cart
// item for the project's products. Un-ordered carts do not pledge.
func (r *GormRepo) PledgedAmount(ctx context.Context, projectID uint) (int64, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(cart_items.qty_desired * cart_items.price_each), 0)").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Joins("JOIN orders ON orders.cart_id = carts.id").
		Where("products.project_id = ? AND cart_items.status <> ?",
			projectID, models.StatusCancelled).
		Scan(&total).Error
	return total, err
}

// ProjectStatusAt derives the project's campaign status at the given
// instant, fetching the pledged amount it depends on.
func (r *GormRepo) ProjectStatusAt(ctx context.Context, p *models.Project, now time.Time) (models.ProjectStatus, error) {
	pledged, err := r.PledgedAmount(ctx, p.ID)
	if err != nil {
		return "", err
	}
	return p.StatusAt(now, pledged), nil
}
