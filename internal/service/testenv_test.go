package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/repo"
)

// env is one test's world: a fresh database with a project, a product
// and a SKU, plus a fixed clock.
type env struct {
	repo *repo.GormRepo
	now  time.Time

	project models.Project
	product models.Product
	sku     models.SKU
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.Product{},
		&models.Batch{},
		&models.ProductOption{},
		&models.OptionValue{},
		&models.SKU{},
		&models.Item{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.Payment{},
	))

	e := &env{
		repo: repo.New(db),
		now:  time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	// Campaign already over by default; individual tests shift the
	// window when they need a live one.
	e.project = models.Project{
		Name:             "modular synth",
		Target:           1_000_000,
		StartTime:        e.now.AddDate(0, -3, 0),
		EndTime:          e.now.AddDate(0, -2, 0),
		AcceptsPreorders: true,
	}
	require.NoError(t, db.Create(&e.project).Error)

	e.product = models.Product{
		ProjectID:              e.project.ID,
		Name:                   "synth unit",
		Price:                  25_000,
		InternationalSurcharge: 4_000,
		InternationalAvailable: true,
		AcceptsPreorders:       true,
	}
	require.NoError(t, db.Create(&e.product).Error)

	e.sku = models.SKU{ProductID: e.product.ID}
	require.NoError(t, db.Create(&e.sku).Error)

	return e
}

func (e *env) cartService() *CartService {
	s := NewCartService(e.repo)
	s.now = func() time.Time { return e.now }
	return s
}

func (e *env) makeLive(t *testing.T) {
	t.Helper()
	require.NoError(t, e.repo.DB.Model(&e.project).Updates(map[string]interface{}{
		"start_time": e.now.AddDate(0, 0, -7),
		"end_time":   e.now.AddDate(0, 1, 0),
	}).Error)
	e.project.StartTime = e.now.AddDate(0, 0, -7)
	e.project.EndTime = e.now.AddDate(0, 1, 0)
}

func (e *env) addBatch(t *testing.T, qty int, ship time.Time) *models.Batch {
	t.Helper()
	b := models.Batch{ProductID: e.product.ID, Qty: qty, ShipTime: ship}
	require.NoError(t, e.repo.DB.Create(&b).Error)
	return &b
}

func (e *env) addStock(t *testing.T, qty int) {
	t.Helper()
	items := make([]models.Item, qty)
	for i := range items {
		items[i].SKUID = e.sku.ID
	}
	require.NoError(t, e.repo.DB.Create(&items).Error)
}

func (e *env) newUser() uuid.UUID { return uuid.New() }

func (e *env) reloadItem(t *testing.T, id uint) *models.CartItem {
	t.Helper()
	var ci models.CartItem
	require.NoError(t, e.repo.DB.First(&ci, id).Error)
	return &ci
}
