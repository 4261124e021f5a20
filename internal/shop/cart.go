package shop

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// Get returns the user's cart, creating an empty one on first use.
func (s *CartService) Get(ctx context.Context, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	db := s.db.WithContext(ctx)
	if err := db.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := db.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("cart_items.id") }).
		Preload("Items.Product").
		First(&cart, cart.ID).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddItem adds quantity of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.ErrValidation, "quantity must be at least 1")
	}
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Where("id = ? AND is_active = ?", productID, true).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrNotFound, "product not found")
			}
			return err
		}

		var item models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case err == nil:
			if item.Quantity+quantity > p.Stock {
				return apperr.Newf(apperr.ErrValidation, "only %d of %s in stock", p.Stock, p.Name)
			}
			return tx.Model(&item).UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if quantity > p.Stock {
				return apperr.Newf(apperr.ErrValidation, "only %d of %s in stock", p.Stock, p.Name)
			}
			return tx.Create(&models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uint, quantity int) (*models.Cart, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if quantity <= 0 {
		err = db.Delete(item).Error
	} else {
		if quantity > item.Product.Stock {
			return nil, apperr.Newf(apperr.ErrValidation, "only %d of %s in stock", item.Product.Stock, item.Product.Name)
		}
		err = db.Model(item).UpdateColumn("quantity", quantity).Error
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) (*models.Cart, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Delete(item).Error; err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uint) error {
	return clearCart(s.db.WithContext(ctx), userID)
}

func (s *CartService) ownedItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		Preload("Product").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "cart item not found")
		}
		return nil, err
	}
	return &item, nil
}
