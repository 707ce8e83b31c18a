package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/repo"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")

	// ErrCartUnavailable means checkout was attempted while at least
	// one line item could not be satisfied at its desired quantity.
	ErrCartUnavailable = errors.New("cart contains unavailable items")
)

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.Repo.OpenCart(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	return s.Repo.CartWithItems(ctx, cart.ID)
}

// AddToCart creates a line item in the user's open cart and runs the
// allocation decision for it. The returned result tells the caller
// whether the desired quantity was fully satisfied.
func (s *CartService) AddToCart(ctx context.Context, userID uuid.UUID, productID, skuID uint, qty int) (*models.CartItem, RefreshResult, error) {
	if productID == 0 || skuID == 0 {
		return nil, RefreshResult{}, fmt.Errorf("product_id and sku_id required: %w", ErrValidation)
	}
	if qty <= 0 {
		return nil, RefreshResult{}, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	var (
		item   *models.CartItem
		result RefreshResult
	)
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.OpenCart(ctx, userID, s.now())
		if err != nil {
			return err
		}
		item = &models.CartItem{
			CartID:     cart.ID,
			ProductID:  productID,
			SKUID:      skuID,
			QtyDesired: qty,
			Status:     models.StatusCart,
		}
		if err := r.SaveCartItem(ctx, item); err != nil {
			return err
		}
		if err := r.TouchCart(ctx, cart.ID, s.now()); err != nil {
			return err
		}
		result, err = s.refreshItem(ctx, r, item)
		return err
	})
	if err != nil {
		return nil, RefreshResult{}, err
	}
	return item, result, nil
}

// UpdateQty changes a line item's desired quantity and re-runs the
// allocation decision, which may truncate it back down.
func (s *CartService) UpdateQty(ctx context.Context, userID uuid.UUID, itemID uint, qty int) (*models.CartItem, RefreshResult, error) {
	if qty <= 0 {
		return nil, RefreshResult{}, fmt.Errorf("quantity must be more than zero: %w", ErrValidation)
	}

	var (
		item   *models.CartItem
		result RefreshResult
	)
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		var err error
		item, err = s.ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		item.QtyDesired = qty
		if err := r.TouchCart(ctx, item.CartID, s.now()); err != nil {
			return err
		}
		result, err = s.refreshItem(ctx, r, item)
		return err
	})
	if err != nil {
		return nil, RefreshResult{}, err
	}
	return item, result, nil
}

// RemoveItem releases the line item's reservations and deletes it.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, itemID uint) error {
	return s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		item, err := s.ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		hasOrder, err := r.CartHasOrder(ctx, item.CartID)
		if err != nil {
			return err
		}
		if hasOrder {
			return fmt.Errorf("cart item %d: %w", itemID, ErrRefreshPrecondition)
		}
		if err := r.ReleaseStock(ctx, item.ID); err != nil {
			return err
		}
		if err := r.TouchCart(ctx, item.CartID, s.now()); err != nil {
			return err
		}
		return r.DeleteCartItem(ctx, item)
	})
}

// SetInternationalShipping sets every line's shipping price to the
// product's international surcharge times quantity.
func (s *CartService) SetInternationalShipping(ctx context.Context, userID uuid.UUID) error {
	return s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.OpenCart(ctx, userID, s.now())
		if err != nil {
			return err
		}
		full, err := r.CartWithItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		for i := range full.Items {
			ci := &full.Items[i]
			product, err := r.ProductWithProject(ctx, ci.ProductID)
			if err != nil {
				return err
			}
			if !product.InternationalAvailable {
				return fmt.Errorf("product %d not available internationally: %w", product.ID, ErrValidation)
			}
			ci.ShippingPrice = product.InternationalSurcharge
			if err := r.SaveCartItem(ctx, ci); err != nil {
				return err
			}
		}
		return nil
	})
}

// CheckoutRequest carries the payment method and the fraud-signal
// metadata recorded on the order for later gateway calls.
type CheckoutRequest struct {
	Gateway   string
	MethodRef string
	IP        string
	UserAgent string
	Referrer  string
}

// Checkout places the user's open cart as an order: refreshes every
// item one last time, refuses if anything went unavailable, creates the
// 1:1 order and assigns each line item its initial status from its
// stage.
func (s *CartService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*models.Order, error) {
	if req.Gateway == "" || req.MethodRef == "" {
		return nil, fmt.Errorf("gateway and method_ref required: %w", ErrValidation)
	}

	var order *models.Order
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		cart, err := r.OpenCart(ctx, userID, s.now())
		if err != nil {
			return err
		}
		full, err := r.CartWithItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(full.Items) == 0 {
			return fmt.Errorf("cart is empty: %w", ErrValidation)
		}
		for i := range full.Items {
			res, err := s.refreshItem(ctx, r, &full.Items[i])
			if err != nil {
				return err
			}
			if !res.Satisfied {
				return fmt.Errorf("cart item %d: %w", full.Items[i].ID, ErrCartUnavailable)
			}
		}
		order = &models.Order{
			CartID:       cart.ID,
			UserID:       userID,
			CreatedAt:    s.now(),
			Gateway:      req.Gateway,
			MethodRef:    req.MethodRef,
			CaptureState: models.CaptureStateIdle,
			IPAddress:    req.IP,
			UserAgent:    req.UserAgent,
			Referrer:     req.Referrer,
		}
		if err := r.CreateOrder(ctx, order); err != nil {
			return err
		}
		return s.setInitialStatuses(ctx, r, full)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// setInitialStatuses assigns each line item's first post-checkout
// status from its stage: crowdfunding items wait on the campaign
// (payment pending if it already succeeded, unfunded otherwise), stock
// and pre-order items go straight to in process.
func (s *CartService) setInitialStatuses(ctx context.Context, r *repo.GormRepo, cart *models.Cart) error {
	for i := range cart.Items {
		ci := &cart.Items[i]
		product, err := r.ProductWithProject(ctx, ci.ProductID)
		if err != nil {
			return err
		}
		var next models.Status
		if ci.Stage == models.StageCrowdfunding {
			if product.Project.Successful {
				next = models.StatusPaymentPending
			} else {
				next = models.StatusUnfunded
			}
		} else {
			next = models.StatusInProcess
		}
		if err := ci.UpdateStatus(next); err != nil {
			return err
		}
		if err := r.SaveCartItem(ctx, ci); err != nil {
			return err
		}
	}
	return nil
}

func (s *CartService) ownedItem(ctx context.Context, r *repo.GormRepo, userID uuid.UUID, itemID uint) (*models.CartItem, error) {
	item, err := r.GetCartItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	cart, err := r.CartWithItems(ctx, item.CartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != userID {
		return nil, fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	return item, nil
}
