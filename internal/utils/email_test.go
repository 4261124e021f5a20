package utils

import (
	"strings"
	"testing"

	"leafsense_back_end/internal/models"
)

func TestFormatVND(t *testing.T) {
	tests := map[float64]string{
		0:       "0 ₫",
		999:     "999 ₫",
		180000:  "180.000 ₫",
		1234567: "1.234.567 ₫",
	}
	for in, want := range tests {
		if got := FormatVND(in); got != want {
			t.Errorf("FormatVND(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestOrderConfirmationEmail(t *testing.T) {
	order := &models.Order{
		ID:             9,
		CouponCode:     "TEN",
		DiscountAmount: 20000,
		TotalAmount:    180000,
		PaymentMethod:  models.PaymentCOD,
		ShippingName:   "<b>Lan</b>",
		Items: []models.OrderItem{
			{Product: models.Product{Name: "Copper spray"}, Quantity: 2, Price: 100000},
		},
	}
	subject, body := OrderConfirmationEmail(order)
	if !strings.Contains(subject, "#9") {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"Copper spray", "200.000 ₫", "-20.000 ₫", "180.000 ₫", "&lt;b&gt;Lan"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
