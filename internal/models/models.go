package models

// All lists every table in migration order.
func All() []any {
	return []any{
		&User{},
		&PasswordResetToken{},
		&Category{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&CouponUsage{},
		&Review{},
		&DiseasePrediction{},
	}
}
