package admin

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/handlers/product"
	"leafsense_back_end/internal/shop"
)

// GET /api/admin/products
func (h *Handler) ListProducts(c *gin.Context) {
	f, err := product.ParseFilter(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	f.IncludeInactive = true
	products, total, err := h.catalog.ListProducts(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, products)
}

// GET /api/admin/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id, true)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// productInput binds JSON or a multipart form; the form may carry an "image".
func (h *Handler) productInput(c *gin.Context) (shop.ProductInput, error) {
	var in shop.ProductInput
	if err := c.ShouldBind(&in); err != nil {
		return in, apperr.New(apperr.ErrValidation, err.Error())
	}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if _, err := c.FormFile("image"); err == nil {
			data, ct, filename, err := handlers.ReadImage(c, "image", h.cfg.MaxUploadBytes)
			if err != nil {
				return in, err
			}
			url, err := handlers.UploadImage(c.Request.Context(), h.blobs, "products", data, ct, filename)
			if err != nil {
				return in, err
			}
			in.Image = url
		}
	}
	return in, nil
}

// POST /api/admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	in, err := h.productInput(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Set("resource_id", strconv.FormatUint(uint64(p.ID), 10))
	c.JSON(http.StatusCreated, p)
}

// PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	in, err := h.productInput(c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/admin/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	deactivated, err := h.catalog.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if deactivated {
		c.JSON(http.StatusOK, gin.H{"message": "Product has orders and was deactivated instead"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// GET /api/admin/products/export
func (h *Handler) ExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.catalog.ExportXLSX(c.Request.Context(), &buf); err != nil {
		apperr.Respond(c, err)
		return
	}
	name := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// POST /api/admin/products/import
func (h *Handler) ImportProducts(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.cfg.MaxUploadBytes))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	res, err := h.catalog.ImportXLSX(c.Request.Context(), bytes.NewReader(data), int64(len(data)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Categories ---

// GET /api/admin/categories
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.catalog.Categories(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

// POST /api/admin/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var in shop.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := h.catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Set("resource_id", strconv.FormatUint(uint64(cat.ID), 10))
	c.JSON(http.StatusCreated, cat)
}

// PUT /api/admin/categories/:id
func (h *Handler) UpdateCategory(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var in shop.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := h.catalog.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

// DELETE /api/admin/categories/:id
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
