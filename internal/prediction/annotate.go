package prediction

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/nfnt/resize"
)

const boxThickness = 3

// Normalize decodes an upload, shrinks it to fit within maxDim and re-encodes
// it as PNG so the model server always sees one format.
func Normalize(data []byte, maxDim uint) (*image.RGBA, []byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	b := src.Bounds()
	if maxDim > 0 && (uint(b.Dx()) > maxDim || uint(b.Dy()) > maxDim) {
		src = resize.Thumbnail(maxDim, maxDim, src, resize.Lanczos3)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	encoded, err := encodePNG(rgba)
	if err != nil {
		return nil, nil, err
	}
	return rgba, encoded, nil
}

// Annotate returns a copy of img with a coloured frame around each region.
func Annotate(img *image.RGBA, regions []Region, cat *Catalogue) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	for _, r := range regions {
		rect := image.Rect(r.Box[0], r.Box[1], r.Box[2], r.Box[3]).Intersect(out.Bounds())
		if rect.Empty() {
			continue
		}
		strokeRect(out, rect, cat.Lookup(r.Label).RGBA())
	}
	return out
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	fill := image.NewUniform(c)
	t := boxThickness
	if r.Dx() < 2*t || r.Dy() < 2*t {
		draw.Draw(img, r, fill, image.Point{}, draw.Src)
		return
	}
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), fill, image.Point{}, draw.Src)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
