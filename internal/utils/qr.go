package utils

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

// MoMoPaymentLink builds the MoMo transfer deep link for an order.
func MoMoPaymentLink(phone, name string, amount float64, orderID uint) string {
	q := url.Values{}
	q.Set("action", "transfer")
	q.Set("phone", phone)
	q.Set("name", name)
	q.Set("amount", fmt.Sprintf("%.0f", amount))
	q.Set("comment", fmt.Sprintf("LEAFSENSE-%d", orderID))
	return "https://nhantien.momo.vn/" + phone + "?" + q.Encode()
}

// QRCodePNG encodes content as a PNG QR code of size x size pixels.
func QRCodePNG(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}
