package shop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

// SearchIndex is the full-text side of the catalogue. A nil index, or one
// that fails, falls back to SQL matching on the name.
type SearchIndex interface {
	Index(ctx context.Context, p *models.Product)
	Remove(ctx context.Context, id uint)
	Search(ctx context.Context, query string, limit int) ([]uint, error)
}

type Catalog struct {
	db    *gorm.DB
	index SearchIndex
}

func NewCatalog(db *gorm.DB, index SearchIndex) *Catalog {
	return &Catalog{db: db, index: index}
}

type ProductFilter struct {
	CategoryID      uint
	Search          string
	DiseaseType     string
	IncludeInactive bool
	Limit           int
	Offset          int
}

func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	q := c.db.WithContext(ctx).Model(&models.Product{})
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.DiseaseType != "" {
		q = q.Where("LOWER(disease_type) = ?", strings.ToLower(f.DiseaseType))
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		ids, err := c.search(ctx, s)
		if err != nil {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
		} else {
			q = q.Where("id IN ?", ids)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	var products []models.Product
	err := q.Preload("Category").Order("id").Offset(f.Offset).Limit(f.Limit).Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (c *Catalog) search(ctx context.Context, s string) ([]uint, error) {
	if c.index == nil {
		return nil, errors.New("no search index")
	}
	ids, err := c.index.Search(ctx, s, 100)
	if err != nil {
		log.Printf("⚠️ Product search falls back to SQL: %v", err)
		return nil, err
	}
	if ids == nil {
		ids = []uint{}
	}
	return ids, nil
}

// GetProduct returns an active product; admins pass includeInactive.
func (c *Catalog) GetProduct(ctx context.Context, id uint, includeInactive bool) (*models.Product, error) {
	q := c.db.WithContext(ctx).Preload("Category")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var p models.Product
	if err := q.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "product not found")
		}
		return nil, err
	}
	return &p, nil
}

// Recommend lists the products meant to treat disease.
func (c *Catalog) Recommend(ctx context.Context, disease string) ([]models.Product, error) {
	disease = strings.TrimSpace(disease)
	if disease == "" {
		return nil, apperr.New(apperr.ErrValidation, "disease is required")
	}
	var products []models.Product
	err := c.db.WithContext(ctx).
		Where("is_active = ? AND LOWER(disease_type) = ?", true, strings.ToLower(disease)).
		Order("id").
		Find(&products).Error
	return products, err
}

type ProductInput struct {
	Name        *string  `json:"name" form:"name"`
	Description *string  `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price"`
	Stock       *int     `json:"stock" form:"stock"`
	CategoryID  *uint    `json:"category_id" form:"category_id"`
	DiseaseType *string  `json:"disease_type" form:"disease_type"`
	Usage       *string  `json:"usage" form:"usage"`
	IsActive    *bool    `json:"is_active" form:"is_active"`
	Image       string   `json:"-" form:"-"`
}

func (in ProductInput) validate(creating bool) error {
	if creating && (in.Name == nil || in.Price == nil) {
		return apperr.New(apperr.ErrValidation, "name and price are required")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return apperr.New(apperr.ErrValidation, "name cannot be empty")
	}
	if in.Price != nil && *in.Price < 0 {
		return apperr.New(apperr.ErrValidation, "price must not be negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return apperr.New(apperr.ErrValidation, "stock must not be negative")
	}
	return nil
}

func (c *Catalog) checkCategory(ctx context.Context, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}
	var n int64
	if err := c.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.ErrValidation, "category does not exist")
	}
	return nil
}

func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if err := c.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p := models.Product{
		Name:     strings.TrimSpace(*in.Name),
		Price:    *in.Price,
		Image:    in.Image,
		IsActive: true,
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil && *in.CategoryID != 0 {
		p.CategoryID = in.CategoryID
	}
	if in.DiseaseType != nil {
		p.DiseaseType = strings.ToLower(strings.TrimSpace(*in.DiseaseType))
	}
	if in.Usage != nil {
		p.Usage = *in.Usage
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := c.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	c.reindex(ctx, &p)
	return &p, nil
}

func (c *Catalog) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	if err := c.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p, err := c.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Stock != nil {
		updates["stock"] = *in.Stock
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			updates["category_id"] = nil
		} else {
			updates["category_id"] = *in.CategoryID
		}
	}
	if in.DiseaseType != nil {
		updates["disease_type"] = strings.ToLower(strings.TrimSpace(*in.DiseaseType))
	}
	if in.Usage != nil {
		updates["usage"] = *in.Usage
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Image != "" {
		updates["image"] = in.Image
	}
	if len(updates) > 0 {
		if err := c.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update product %d: %w", id, err)
		}
	}
	p, err = c.GetProduct(ctx, id, true)
	if err != nil {
		return nil, err
	}
	c.reindex(ctx, p)
	return p, nil
}

// DeleteProduct removes a product. One that already appears on orders is
// deactivated instead, so order history keeps its lines.
func (c *Catalog) DeleteProduct(ctx context.Context, id uint) (deactivated bool, err error) {
	p, err := c.GetProduct(ctx, id, true)
	if err != nil {
		return false, err
	}
	var ordered int64
	if err := c.db.WithContext(ctx).Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&ordered).Error; err != nil {
		return false, err
	}
	if ordered > 0 {
		if err := c.db.WithContext(ctx).Model(p).Update("is_active", false).Error; err != nil {
			return false, err
		}
		p.IsActive = false
		c.reindex(ctx, p)
		return true, nil
	}
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}
	if c.index != nil {
		c.index.Remove(ctx, id)
	}
	return false, nil
}

func (c *Catalog) reindex(ctx context.Context, p *models.Product) {
	if c.index != nil {
		c.index.Index(ctx, p)
	}
}

// --- Categories ---

func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	var cats []models.Category
	err := c.db.WithContext(ctx).Order("name").Find(&cats).Error
	return cats, err
}

type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

func (c *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apperr.New(apperr.ErrValidation, "name is required")
	}
	cat := models.Category{Name: strings.TrimSpace(*in.Name)}
	if in.Description != nil {
		cat.Description = *in.Description
	}
	if in.Image != nil {
		cat.Image = *in.Image
	}
	if err := c.uniqueCategory(ctx, cat.Name, 0); err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &cat, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id uint, in CategoryInput) (*models.Category, error) {
	var cat models.Category
	if err := c.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "category not found")
		}
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.New(apperr.ErrValidation, "name cannot be empty")
		}
		if err := c.uniqueCategory(ctx, name, id); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Image != nil {
		updates["image"] = *in.Image
	}
	if len(updates) > 0 {
		if err := c.db.WithContext(ctx).Model(&cat).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := c.db.WithContext(ctx).First(&cat, id).Error; err != nil {
			return nil, err
		}
	}
	return &cat, nil
}

// DeleteCategory refuses while products still reference the category.
func (c *Catalog) DeleteCategory(ctx context.Context, id uint) error {
	var n int64
	if err := c.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Newf(apperr.ErrConflict, "category is used by %d products", n)
	}
	res := c.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "category not found")
	}
	return nil
}

func (c *Catalog) uniqueCategory(ctx context.Context, name string, except uint) error {
	var n int64
	err := c.db.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), except).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.New(apperr.ErrConflict, "category already exists")
	}
	return nil
}
