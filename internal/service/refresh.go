package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
)

// ErrRefreshPrecondition means a refresh was attempted on a cart that
// already has a placed order. Placed orders are structurally frozen, so
// this is a programming error and fails fast.
var ErrRefreshPrecondition = errors.New("cannot refresh a cart with a placed order")

// CartService owns the per-line-item lifecycle: the refresh algorithm
// that decides which fulfillment stage applies and how much quantity
// can be satisfied now, plus the cart mutations that trigger it.
type CartService struct {
	Repo *repo.GormRepo

	now func() time.Time
}

func NewCartService(r *repo.GormRepo) *CartService {
	return &CartService{Repo: r, now: time.Now}
}

// RefreshResult reports what a refresh decided for one line item.
// Satisfied is false when qty_desired had to be truncated (including to
// zero, the unavailable case).
type RefreshResult struct {
	Satisfied  bool
	Stage      models.Stage
	QtyDesired int
}

// RefreshCart re-runs the allocation decision for every item in the
// cart inside one unit of work and bumps the cart's updated time.
// Returns true only when every item is fully satisfied.
func (s *CartService) RefreshCart(ctx context.Context, cartID uint) (bool, error) {
	all := true
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.CartWithItems(ctx, cartID)
		if err != nil {
			return err
		}
		if err := r.TouchCart(ctx, cart.ID, s.now()); err != nil {
			return err
		}
		for i := range cart.Items {
			res, err := s.refreshItem(ctx, r, &cart.Items[i])
			if err != nil {
				return err
			}
			if !res.Satisfied {
				all = false
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return all, nil
}

// RefreshItem refreshes a single cart item in its own unit of work.
func (s *CartService) RefreshItem(ctx context.Context, itemID uint) (RefreshResult, error) {
	var result RefreshResult
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		ci, err := r.GetCartItem(ctx, itemID)
		if err != nil {
			return err
		}
		result, err = s.refreshItem(ctx, r, ci)
		return err
	})
	if err != nil {
		return RefreshResult{}, err
	}
	return result, nil
}

// refreshItem is the allocation decision. It may update qty_desired,
// stage, batch, expected ship time and the item reservations, all
// within the caller's transaction. Branch order matters: physical
// stock is preferred whenever it can fully or more-fully satisfy
// demand because it ships sooner; pre-order capacity is the fallback;
// complete unavailability is a normal, recoverable outcome rather than
// an error.
func (s *CartService) refreshItem(ctx context.Context, r *repo.GormRepo, ci *models.CartItem) (RefreshResult, error) {
	l := logging.FromContext(ctx).With("cart_item", ci.ID)
	l.Info("refresh: begin")

	hasOrder, err := r.CartHasOrder(ctx, ci.CartID)
	if err != nil {
		return RefreshResult{}, err
	}
	if hasOrder {
		return RefreshResult{}, fmt.Errorf("cart item %d: %w", ci.ID, ErrRefreshPrecondition)
	}

	product, err := r.ProductWithProject(ctx, ci.ProductID)
	if err != nil {
		return RefreshResult{}, err
	}

	price, err := r.SKUPrice(ctx, product, ci.SKUID)
	if err != nil {
		return RefreshResult{}, err
	}
	ci.PriceEach = price

	now := s.now()
	status, err := r.ProjectStatusAt(ctx, product.Project, now)
	if err != nil {
		return RefreshResult{}, err
	}

	if status == models.ProjectCrowdfunding {
		l.Info("refresh: selecting crowdfunding")
		// A live campaign is capacity-unconstrained: allocation failing
		// here means the product has no batches at all, which is an
		// invariant violation, not an availability outcome.
		batch, err := r.SelectBatch(ctx, product.ID, ci.QtyDesired, false, ci.ID)
		if err != nil {
			return RefreshResult{}, fmt.Errorf("crowdfunding allocation for product %d: %w", product.ID, err)
		}
		ci.Stage = models.StageCrowdfunding
		ci.BatchID = &batch.ID
		ship := batch.ShipTime
		ci.ExpectedShipTime = &ship
		// A crowdfunding item never holds physical stock.
		if err := r.ReleaseStock(ctx, ci.ID); err != nil {
			return RefreshResult{}, err
		}
		if err := r.SaveCartItem(ctx, ci); err != nil {
			return RefreshResult{}, err
		}
		l.Info("refresh: good")
		return RefreshResult{Satisfied: true, Stage: ci.Stage, QtyDesired: ci.QtyDesired}, nil
	}

	// Past crowdfunding. Release any held reservation before deciding
	// between stock and pre-order.
	if err := r.ReleaseStock(ctx, ci.ID); err != nil {
		return RefreshResult{}, err
	}

	preorderAvailable := 0
	if product.Project.AcceptsPreorders && product.AcceptsPreorders {
		remaining, unlimited, hasBatches, err := r.PreorderRemaining(ctx, product.ID, ci.ID)
		if err != nil {
			return RefreshResult{}, err
		}
		if hasBatches {
			if unlimited {
				preorderAvailable = ci.QtyDesired
			} else {
				preorderAvailable = remaining
			}
		}
	}

	stockAvailable, err := r.StockAvailable(ctx, ci.SKUID)
	if err != nil {
		return RefreshResult{}, err
	}

	l.Info("refresh: availability", "stock", stockAvailable, "preorder", preorderAvailable)

	satisfied := false
	switch {
	case stockAvailable >= ci.QtyDesired:
		l.Info("refresh: selecting stock")
		if err := r.ReserveStock(ctx, ci, ci.QtyDesired); err != nil {
			return RefreshResult{}, err
		}
		ci.Stage = models.StageStock
		ci.BatchID = nil
		ship := nextShippingDay(now)
		ci.ExpectedShipTime = &ship
		satisfied = true

	case stockAvailable >= preorderAvailable:
		l.Info("refresh: selecting stock", "truncated_to", stockAvailable)
		ci.QtyDesired = stockAvailable
		if err := r.ReserveStock(ctx, ci, ci.QtyDesired); err != nil {
			return RefreshResult{}, err
		}
		ci.Stage = models.StageStock
		ci.BatchID = nil
		ship := nextShippingDay(now)
		ci.ExpectedShipTime = &ship

	case preorderAvailable > 0:
		l.Info("refresh: selecting preorder")
		partial := false
		if preorderAvailable < ci.QtyDesired {
			ci.QtyDesired = preorderAvailable
			partial = true
		}
		batch, err := r.SelectBatch(ctx, product.ID, ci.QtyDesired, true, ci.ID)
		if errors.Is(err, repo.ErrBatchUnavailable) {
			// Capacity disappeared between the availability check and
			// the allocation. Fall through to unavailable.
			markUnavailable(ci)
		} else if err != nil {
			return RefreshResult{}, err
		} else {
			ci.Stage = models.StagePreorder
			ci.BatchID = &batch.ID
			ship := batch.ShipTime
			ci.ExpectedShipTime = &ship
			satisfied = !partial
		}

	default:
		l.Info("refresh: unavailable")
		markUnavailable(ci)
	}

	if err := r.SaveCartItem(ctx, ci); err != nil {
		return RefreshResult{}, err
	}
	if satisfied {
		l.Info("refresh: good")
	} else {
		l.Info("refresh: partial", "qty_desired", ci.QtyDesired)
	}
	return RefreshResult{Satisfied: satisfied, Stage: ci.Stage, QtyDesired: ci.QtyDesired}, nil
}

func markUnavailable(ci *models.CartItem) {
	ci.QtyDesired = 0
	ci.BatchID = nil
	ci.ExpectedShipTime = nil
}

// nextShippingDay is the next weekday after now; on-hand stock ships
// the next business day.
func nextShippingDay(now time.Time) time.Time {
	day := now.AddDate(0, 0, 1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}
