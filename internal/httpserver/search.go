package httpserver

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/crowdshop/internal/search"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) SearchProjects(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search.projects")

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, "q is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size < 1 || size > 100 {
		size = 20
	}
	from := (page - 1) * size

	total, docs, err := search.SearchProjects(ctx, h.ES, h.Index, query, from, size)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":    total,
		"page":     page,
		"size":     size,
		"projects": docs,
	})
}
