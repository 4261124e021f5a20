package shop

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

func validRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.New(apperr.ErrValidation, "rating must be between 1 and 5")
	}
	return nil
}

// Reviews lists a product's reviews, newest first, with the average rating.
func (c *Catalog) Reviews(ctx context.Context, productID uint) ([]models.Review, *models.ProductRating, error) {
	var reviews []models.Review
	err := c.db.WithContext(ctx).Preload("User").
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, nil, err
	}
	rating := &models.ProductRating{ProductID: productID, TotalReviews: int64(len(reviews))}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		rating.AverageRating = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	}
	return reviews, rating, nil
}

func (c *Catalog) CreateReview(ctx context.Context, userID, productID uint, rating int, comment string) (*models.Review, error) {
	if err := validRating(rating); err != nil {
		return nil, err
	}
	if _, err := c.GetProduct(ctx, productID, false); err != nil {
		return nil, err
	}
	r := models.Review{UserID: userID, ProductID: productID, Rating: rating, Comment: comment}
	if err := c.db.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, err
	}
	if err := c.db.WithContext(ctx).Preload("User").First(&r, r.ID).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ownedReview loads a review the user may change. Admins may change any.
func (c *Catalog) ownedReview(ctx context.Context, id uint, user *models.User) (*models.Review, error) {
	var r models.Review
	if err := c.db.WithContext(ctx).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "review not found")
		}
		return nil, err
	}
	if r.UserID != user.ID && !user.IsAdmin() {
		return nil, apperr.New(apperr.ErrForbidden, "not your review")
	}
	return &r, nil
}

func (c *Catalog) UpdateReview(ctx context.Context, id uint, user *models.User, rating *int, comment *string) (*models.Review, error) {
	r, err := c.ownedReview(ctx, id, user)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if rating != nil {
		if err := validRating(*rating); err != nil {
			return nil, err
		}
		updates["rating"] = *rating
	}
	if comment != nil {
		updates["comment"] = *comment
	}
	if len(updates) > 0 {
		if err := c.db.WithContext(ctx).Model(r).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	if err := c.db.WithContext(ctx).Preload("User").First(r, id).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Catalog) DeleteReview(ctx context.Context, id uint, user *models.User) error {
	r, err := c.ownedReview(ctx, id, user)
	if err != nil {
		return err
	}
	return c.db.WithContext(ctx).Delete(r).Error
}
