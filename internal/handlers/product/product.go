package product

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/shop"
)

// Handler serves the public side of the shop catalogue.
type Handler struct {
	catalog *shop.Catalog
}

func NewHandler(catalog *shop.Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// GET /api/products?category_id=&search=&disease_type=&skip=&limit=
func (h *Handler) ListProducts(c *gin.Context) {
	f, err := ParseFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	products, total, err := h.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, products)
}

// ParseFilter reads the product list query parameters.
func ParseFilter(c *gin.Context) (shop.ProductFilter, error) {
	var f shop.ProductFilter
	category, err := handlers.QueryInt(c, "category_id", 0)
	if err != nil {
		return f, err
	}
	if f.Offset, err = handlers.QueryInt(c, "skip", 0); err != nil {
		return f, err
	}
	if f.Limit, err = handlers.QueryInt(c, "limit", 100); err != nil {
		return f, err
	}
	if category < 0 || f.Offset < 0 {
		return f, apperr.New(apperr.ErrValidation, "category_id and skip must not be negative")
	}
	f.CategoryID = uint(category)
	f.Search = c.Query("search")
	f.DiseaseType = c.Query("disease_type")
	return f, nil
}

// GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id, false)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// GET /api/shop/recommendations?disease=
func (h *Handler) Recommendations(c *gin.Context) {
	products, err := h.catalog.Recommend(c.Request.Context(), c.Query("disease"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
