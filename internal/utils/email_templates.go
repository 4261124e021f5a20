package utils

import (
	"fmt"
	"html"
	"strings"

	"leafsense_back_end/internal/models"
)

const emailLayout = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
  <table role="presentation" style="width: 100%%; border-collapse: collapse;">
    <tr><td style="padding: 40px 20px;">
      <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px;">
        <tr><td style="background: linear-gradient(135deg, #2f855a 0%%, #38a169 100%%); padding: 32px; text-align: center; border-radius: 12px 12px 0 0;">
          <h1 style="margin: 0; color: #ffffff; font-size: 26px;">🌿 LeafSense</h1>
        </td></tr>
        <tr><td style="padding: 32px; color: #333333; font-size: 15px; line-height: 1.6;">%s</td></tr>
        <tr><td style="padding: 20px 32px; color: #999999; font-size: 12px; text-align: center;">LeafSense · plant disease detection</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

func layout(title, body string) string {
	return fmt.Sprintf(emailLayout, html.EscapeString(title), body)
}

func PasswordResetEmail(name, link string) (subject, body string) {
	subject = "🔑 Reset your LeafSense password"
	body = layout(subject, fmt.Sprintf(`
<p>Hello %s,</p>
<p>We received a request to reset your password. The link below is valid for one hour.</p>
<p style="text-align: center; margin: 30px 0;">
  <a href="%s" style="display: inline-block; padding: 14px 32px; background-color: #2f855a; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600;">Reset password</a>
</p>
<p>If you did not ask for this, you can ignore this email.</p>`,
		html.EscapeString(name), html.EscapeString(link)))
	return subject, body
}

func OrderConfirmationEmail(order *models.Order) (subject, body string) {
	var rows strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&rows, `<tr><td style="padding: 8px; border-bottom: 1px solid #eee;">%s</td><td style="padding: 8px; border-bottom: 1px solid #eee;">%d</td><td style="padding: 8px; border-bottom: 1px solid #eee; text-align: right;">%s</td></tr>`,
			html.EscapeString(it.Product.Name), it.Quantity, FormatVND(it.Subtotal()))
	}

	discount := ""
	if order.DiscountAmount > 0 {
		discount = fmt.Sprintf(`<tr><td colspan="2" style="padding: 8px; text-align: right;">Discount (%s)</td><td style="padding: 8px; text-align: right;">-%s</td></tr>`,
			html.EscapeString(order.CouponCode), FormatVND(order.DiscountAmount))
	}

	subject = fmt.Sprintf("✅ Order #%d confirmed", order.ID)
	body = layout(subject, fmt.Sprintf(`
<p>Thank you for your order. We will let you know when it ships.</p>
<table role="presentation" style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
  <tr style="background-color: #f0fff4;"><th style="padding: 8px; text-align: left;">Product</th><th style="padding: 8px; text-align: left;">Qty</th><th style="padding: 8px; text-align: right;">Subtotal</th></tr>
  %s
  %s
  <tr><td colspan="2" style="padding: 8px; text-align: right; font-weight: bold;">Total</td><td style="padding: 8px; text-align: right; font-weight: bold;">%s</td></tr>
</table>
<p>Payment: %s<br>Shipping to: %s, %s</p>`,
		rows.String(), discount, FormatVND(order.TotalAmount), order.PaymentMethod,
		html.EscapeString(order.ShippingName), html.EscapeString(order.ShippingAddress)))
	return subject, body
}

func OrderStatusEmail(order *models.Order) (subject, body string) {
	var msg string
	switch order.Status {
	case models.OrderProcessing:
		subject, msg = "📋 Your order is being prepared", "Your order is being prepared."
	case models.OrderShipping:
		subject, msg = "📦 Your order has shipped", "Your order is on its way."
	case models.OrderCompleted:
		subject, msg = "🎉 Your order was delivered", "Your order has been delivered. We hope your plants feel better soon."
	case models.OrderCancelled:
		subject, msg = "❌ Your order was cancelled", "Your order has been cancelled."
	default:
		subject, msg = "📋 Order update", "Your order status changed."
	}
	subject = fmt.Sprintf("%s (#%d)", subject, order.ID)
	body = layout(subject, fmt.Sprintf(`<p>%s</p><p>Order #%d · total %s</p>`, msg, order.ID, FormatVND(order.TotalAmount)))
	return subject, body
}

// FormatVND renders an amount with dot thousands separators, e.g. 180.000 ₫.
func FormatVND(amount float64) string {
	n := int64(amount + 0.5)
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + " ₫"
	}
	return b.String() + " ₫"
}
