package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/crowdshop/internal/models"
)

func TestRefreshCrowdfundingAlwaysSucceeds(t *testing.T) {
	e := newEnv(t)
	e.makeLive(t)
	batch := e.addBatch(t, 5, e.now.AddDate(0, 3, 0))
	// Zero physical stock on purpose.

	svc := e.cartService()
	ctx := context.Background()

	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 10)
	require.NoError(t, err)
	require.True(t, res.Satisfied)
	require.Equal(t, models.StageCrowdfunding, res.Stage)
	require.Equal(t, 10, res.QtyDesired)

	got := e.reloadItem(t, item.ID)
	require.NotNil(t, got.BatchID)
	require.Equal(t, batch.ID, *got.BatchID)
	require.NotNil(t, got.ExpectedShipTime)
	require.True(t, got.ExpectedShipTime.Equal(batch.ShipTime))
	require.Equal(t, e.product.Price, got.PriceEach)

	// During the campaign an item never holds stock.
	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Zero(t, reserved)
}

func TestRefreshCrowdfundingReleasesHeldStock(t *testing.T) {
	e := newEnv(t)
	e.addBatch(t, 5, e.now.AddDate(0, 3, 0))
	e.addStock(t, 3)

	svc := e.cartService()
	ctx := context.Background()

	// Post-campaign first: the item grabs stock.
	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)
	require.Equal(t, models.StageStock, res.Stage)
	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reserved)

	// The campaign reopens; a refresh must hand the stock back.
	e.makeLive(t)
	res2, err := svc.RefreshItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.StageCrowdfunding, res2.Stage)
	reserved, err = e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Zero(t, reserved)
}

func TestRefreshFullStock(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 5)

	svc := e.cartService()
	ctx := context.Background()

	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 5)
	require.NoError(t, err)
	require.True(t, res.Satisfied)
	require.Equal(t, models.StageStock, res.Stage)
	require.Equal(t, 5, res.QtyDesired)

	got := e.reloadItem(t, item.ID)
	require.Nil(t, got.BatchID)
	require.NotNil(t, got.ExpectedShipTime)
	// On-hand stock ships the next business day. 2026-06-15 is a
	// Monday, so the next shipping day is Tuesday the 16th.
	require.Equal(t, time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC), *got.ExpectedShipTime)

	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 5, reserved)
}

func TestRefreshTruncatesToStockWhenMoreThanPreorder(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 3)
	// No batches at all, so no pre-order path.

	svc := e.cartService()
	ctx := context.Background()

	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 5)
	require.NoError(t, err)
	require.False(t, res.Satisfied)
	require.Equal(t, models.StageStock, res.Stage)
	require.Equal(t, 3, res.QtyDesired)

	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 3, reserved)
}

func TestRefreshFallsBackToPreorder(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 1)
	batch := e.addBatch(t, 10, e.now.AddDate(0, 2, 0))

	svc := e.cartService()
	ctx := context.Background()

	// Stock can cover 1 but pre-order can cover all 4.
	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 4)
	require.NoError(t, err)
	require.True(t, res.Satisfied)
	require.Equal(t, models.StagePreorder, res.Stage)
	require.Equal(t, 4, res.QtyDesired)

	got := e.reloadItem(t, item.ID)
	require.NotNil(t, got.BatchID)
	require.Equal(t, batch.ID, *got.BatchID)
	require.True(t, got.ExpectedShipTime.Equal(batch.ShipTime))

	// Pre-order holds capacity, not physical items.
	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Zero(t, reserved)
}

func TestRefreshTruncatesPreorder(t *testing.T) {
	e := newEnv(t)
	e.addBatch(t, 3, e.now.AddDate(0, 2, 0))

	svc := e.cartService()
	ctx := context.Background()

	_, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 8)
	require.NoError(t, err)
	require.False(t, res.Satisfied)
	require.Equal(t, models.StagePreorder, res.Stage)
	require.Equal(t, 3, res.QtyDesired)
}

func TestRefreshNothingAvailable(t *testing.T) {
	e := newEnv(t)
	// No stock, no batches.

	svc := e.cartService()
	ctx := context.Background()

	item, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)
	require.False(t, res.Satisfied)
	require.Zero(t, res.QtyDesired)

	got := e.reloadItem(t, item.ID)
	require.Zero(t, got.QtyDesired)
	require.Nil(t, got.BatchID)

	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Zero(t, reserved)
}

func TestRefreshSkipsPreorderWhenProductRefuses(t *testing.T) {
	e := newEnv(t)
	e.addBatch(t, 10, e.now.AddDate(0, 2, 0))
	require.NoError(t, e.repo.DB.Model(&e.product).Update("accepts_preorders", false).Error)

	svc := e.cartService()
	ctx := context.Background()

	_, res, err := svc.AddToCart(ctx, e.newUser(), e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)
	require.False(t, res.Satisfied)
	require.Zero(t, res.QtyDesired)
}

func TestRefreshRecomputesPriceFromOptions(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 1)

	option := models.ProductOption{ProductID: e.product.ID, Name: "finish"}
	require.NoError(t, e.repo.DB.Create(&option).Error)
	value := models.OptionValue{OptionID: option.ID, Description: "walnut", PriceIncrease: 3_000}
	require.NoError(t, e.repo.DB.Create(&value).Error)
	require.NoError(t, e.repo.DB.Model(&e.sku).Association("OptionValues").Append(&value))

	svc := e.cartService()
	item, _, err := svc.AddToCart(context.Background(), e.newUser(), e.product.ID, e.sku.ID, 1)
	require.NoError(t, err)

	got := e.reloadItem(t, item.ID)
	require.Equal(t, e.product.Price+3_000, got.PriceEach)
}

func TestRefreshAfterOrderFails(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 2)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, user, CheckoutRequest{Gateway: "sandbox", MethodRef: "pm-1"})
	require.NoError(t, err)

	_, err = svc.RefreshItem(ctx, item.ID)
	require.ErrorIs(t, err, ErrRefreshPrecondition)
}

func TestUpdateQtyRetruncates(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 4)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, res, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)
	require.True(t, res.Satisfied)

	_, res, err = svc.UpdateQty(ctx, user, item.ID, 10)
	require.NoError(t, err)
	require.False(t, res.Satisfied)
	require.Equal(t, 4, res.QtyDesired)

	reserved, err := e.repo.QtyReserved(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 4, reserved)
}

func TestRemoveItemReleasesStock(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 3)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, user, item.ID))

	available, err := e.repo.StockAvailable(ctx, e.sku.ID)
	require.NoError(t, err)
	require.Equal(t, 3, available)
}

func TestCheckoutSetsInitialStatuses(t *testing.T) {
	e := newEnv(t)
	e.makeLive(t)
	e.addBatch(t, 0, e.now.AddDate(0, 3, 0))

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 1)
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, user, CheckoutRequest{Gateway: "sandbox", MethodRef: "pm-1"})
	require.NoError(t, err)
	require.Equal(t, models.CaptureStateIdle, order.CaptureState)

	// Live campaign, not yet marked successful: the pledge waits.
	require.Equal(t, models.StatusUnfunded, e.reloadItem(t, item.ID).Status)
}

func TestCheckoutSuccessfulProjectGoesPaymentPending(t *testing.T) {
	e := newEnv(t)
	e.makeLive(t)
	e.addBatch(t, 0, e.now.AddDate(0, 3, 0))
	require.NoError(t, e.repo.DB.Model(&e.project).Update("successful", true).Error)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 1)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, user, CheckoutRequest{Gateway: "sandbox", MethodRef: "pm-1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusPaymentPending, e.reloadItem(t, item.ID).Status)
}

func TestCheckoutStockItemGoesInProcess(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 1)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 1)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, user, CheckoutRequest{Gateway: "sandbox", MethodRef: "pm-1"})
	require.NoError(t, err)
	require.Equal(t, models.StatusInProcess, e.reloadItem(t, item.ID).Status)
}

func TestCheckoutRefusesUnavailableCart(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 1)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	_, res, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 5)
	require.NoError(t, err)
	require.False(t, res.Satisfied)

	_, err = svc.Checkout(ctx, user, CheckoutRequest{Gateway: "sandbox", MethodRef: "pm-1"})
	require.ErrorIs(t, err, ErrCartUnavailable)
}

func TestSetInternationalShipping(t *testing.T) {
	e := newEnv(t)
	e.addStock(t, 2)

	svc := e.cartService()
	ctx := context.Background()
	user := e.newUser()

	item, _, err := svc.AddToCart(ctx, user, e.product.ID, e.sku.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.SetInternationalShipping(ctx, user))
	require.Equal(t, e.product.InternationalSurcharge, e.reloadItem(t, item.ID).ShippingPrice)

	require.NoError(t, e.repo.DB.Model(&e.product).Update("international_available", false).Error)
	err = svc.SetInternationalShipping(ctx, user)
	require.ErrorIs(t, err, ErrValidation)
}
