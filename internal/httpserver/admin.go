package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/internal/search"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
)

// AdminHTTP carries the catalog management endpoints: projects,
// products, batches, SKUs and stock intake.
type AdminHTTP struct {
	Repo    *repo.GormRepo
	Indexer *search.Indexer
}

func (h *AdminHTTP) CreateProject(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_project")

	var req struct {
		Name             string    `json:"name"`
		Teaser           string    `json:"teaser"`
		Keywords         string    `json:"keywords"`
		Target           int64     `json:"target"`
		StartTime        time.Time `json:"start_time"`
		EndTime          time.Time `json:"end_time"`
		AcceptsPreorders bool      `json:"accepts_preorders"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Target <= 0 || !req.EndTime.After(req.StartTime) {
		return c.JSON(http.StatusBadRequest, "name, positive target and start_time < end_time are required")
	}

	project := models.Project{
		Name:             req.Name,
		Teaser:           req.Teaser,
		Keywords:         req.Keywords,
		Target:           req.Target,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		AcceptsPreorders: req.AcceptsPreorders,
	}
	if err := h.Repo.DB.WithContext(ctx).Create(&project).Error; err != nil {
		l.Error("create_project_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	if h.Indexer != nil {
		if err := h.Indexer.IndexProject(ctx, &project); err != nil {
			// The row is committed; the index catches up on the next save.
			l.Warn("create_project: index failed", "project", project.ID, "error", err)
		}
	}

	l.Info("project created", "project", project.ID)
	return c.JSON(http.StatusCreated, project)
}

func (h *AdminHTTP) MarkSuccessful(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.mark_successful")

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid project id")
	}

	res := h.Repo.DB.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", projectID).
		Update("successful", true)
	if res.Error != nil {
		l.Error("mark_successful_error", "status", 500, "error", res.Error)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, "project not found")
	}

	l.Info("project marked successful", "project", projectID)
	return c.JSON(http.StatusOK, "ok")
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req struct {
		ProjectID              uint   `json:"project_id"`
		Name                   string `json:"name"`
		Price                  int64  `json:"price"`
		InternationalSurcharge int64  `json:"international_surcharge"`
		InternationalAvailable bool   `json:"international_available"`
		NonPhysical            bool   `json:"non_physical"`
		AcceptsPreorders       bool   `json:"accepts_preorders"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Price < 0 {
		return c.JSON(http.StatusBadRequest, "name and non-negative price are required")
	}

	if _, err := h.Repo.GetProject(ctx, req.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, "project not found")
		}
		l.Error("create_product_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	product := models.Product{
		ProjectID:              req.ProjectID,
		Name:                   req.Name,
		Price:                  req.Price,
		InternationalSurcharge: req.InternationalSurcharge,
		InternationalAvailable: req.InternationalAvailable,
		NonPhysical:            req.NonPhysical,
		AcceptsPreorders:       req.AcceptsPreorders,
	}
	if err := h.Repo.DB.WithContext(ctx).Create(&product).Error; err != nil {
		l.Error("create_product_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("product created", "product", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *AdminHTTP) CreateBatch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_batch")

	var req struct {
		ProductID uint      `json:"product_id"`
		Qty       int       `json:"qty"`
		ShipTime  time.Time `json:"ship_time"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Qty < 0 {
		return c.JSON(http.StatusBadRequest, "qty must be zero (unlimited) or positive")
	}

	batch := models.Batch{ProductID: req.ProductID, Qty: req.Qty, ShipTime: req.ShipTime}
	if err := h.Repo.DB.WithContext(ctx).Create(&batch).Error; err != nil {
		l.Error("create_batch_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("batch created", "batch", batch.ID, "product", batch.ProductID)
	return c.JSON(http.StatusCreated, batch)
}

func (h *AdminHTTP) CreateSKU(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_sku")

	var req struct {
		ProductID uint   `json:"product_id"`
		Code      string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	sku := models.SKU{ProductID: req.ProductID, Code: req.Code}
	if err := h.Repo.DB.WithContext(ctx).Create(&sku).Error; err != nil {
		l.Error("create_sku_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("sku created", "sku", sku.ID, "product", sku.ProductID)
	return c.JSON(http.StatusCreated, sku)
}

func (h *AdminHTTP) ReceiveStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.receive_stock")

	var req struct {
		SKUID uint `json:"sku_id"`
		Qty   int  `json:"qty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}
	if req.Qty <= 0 {
		return c.JSON(http.StatusBadRequest, "qty must be positive")
	}

	items, err := h.Repo.ReceiveStock(ctx, req.SKUID, req.Qty)
	if err != nil {
		l.Error("receive_stock_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("stock received", "sku", req.SKUID, "qty", len(items))
	return c.JSON(http.StatusCreated, echo.Map{"sku_id": req.SKUID, "received": len(items)})
}
