package utils

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestMoMoPaymentLink(t *testing.T) {
	link := MoMoPaymentLink("0901234567", "LeafSense", 180000, 42)
	for _, want := range []string{"0901234567", "amount=180000", "comment=LEAFSENSE-42"} {
		if !strings.Contains(link, want) {
			t.Errorf("link %q missing %q", link, want)
		}
	}
}

func TestQRCodePNG(t *testing.T) {
	raw, err := QRCodePNG("https://example.com", 256)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}
