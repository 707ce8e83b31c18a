package httpserver

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/crowdshop/internal/jwtmiddleware"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/internal/search"
	"github.com/Skotchmaster/crowdshop/internal/service"
)

type Deps struct {
	Repo      *repo.GormRepo
	Cart      *service.CartService
	Indexer   *search.Indexer
	ES        *elasticsearch.Client
	ESIndex   string
	JWTSecret []byte
}

func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/readyz", func(c echo.Context) error {
		sqlDB, err := d.Repo.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group("/api")

	if d.ES != nil {
		sh := &SearchHandler{ES: d.ES, Index: d.ESIndex}
		api.GET("/search", sh.SearchProjects)
	}

	auth := jwtmiddleware.RequireAuth(d.JWTSecret)

	cart := &CartHTTP{Svc: d.Cart}
	cartGroup := api.Group("/cart", auth)
	cartGroup.GET("", cart.GetCart)
	cartGroup.POST("/items", cart.AddToCart)
	cartGroup.PATCH("/items/:id", cart.UpdateItem)
	cartGroup.DELETE("/items/:id", cart.RemoveItem)
	cartGroup.POST("/international-shipping", cart.SetInternationalShipping)
	cartGroup.POST("/checkout", cart.Checkout)

	admin := &AdminHTTP{Repo: d.Repo, Indexer: d.Indexer}
	adminGroup := api.Group("/admin", auth)
	adminGroup.POST("/projects", admin.CreateProject)
	adminGroup.POST("/projects/:id/successful", admin.MarkSuccessful)
	adminGroup.POST("/products", admin.CreateProduct)
	adminGroup.POST("/batches", admin.CreateBatch)
	adminGroup.POST("/skus", admin.CreateSKU)
	adminGroup.POST("/stock", admin.ReceiveStock)
}
