package cardart

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path"
	"regexp"
	"strings"

	_ "golang.org/x/image/webp"
)

// Band is an accepted width/height range for a portrait card.
type Band struct {
	Min, Max float64
}

var (
	HeroBand    = Band{Min: 0.6, Max: 0.9}
	VillainBand = Band{Min: 0.5, Max: 0.95}
)

func (b Band) Contains(ratio float64) bool { return ratio >= b.Min && ratio <= b.Max }

// Dimensions reads width and height from an encoded image header.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Ratio is width/height, or 0 when height is 0.
func Ratio(w, h int) float64 {
	if h == 0 {
		return 0
	}
	return float64(w) / float64(h)
}

// Region is a crop rectangle in fractions of the image size.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// TypeLineRegions cover the card type line and the text box below it,
// where hero cards print "HERO" and alter-ego cards "ALTER-EGO".
var TypeLineRegions = []Region{
	{0, 0.45, 1, 0.70},
	{0, 0.70, 1, 1},
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop decodes data and returns each region JPEG encoded.
func Crop(data []byte, regions []Region) ([][]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type %T cannot be cropped", img)
	}
	b := img.Bounds()
	out := make([][]byte, 0, len(regions))
	for _, r := range regions {
		rect := image.Rect(
			b.Min.X+int(r.X0*float64(b.Dx())), b.Min.Y+int(r.Y0*float64(b.Dy())),
			b.Min.X+int(r.X1*float64(b.Dx())), b.Min.Y+int(r.Y1*float64(b.Dy())),
		)
		if rect.Empty() {
			continue
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, si.SubImage(rect), &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("encode crop: %w", err)
		}
		out = append(out, buf.Bytes())
	}
	return out, nil
}

var sizeSuffixRe = regexp.MustCompile(`-\d+x\d+$`)

// fileStem is the image file name without extension, query or WordPress
// size suffix ("/cards/01a-300x419.jpg?w=300" -> "01a").
func fileStem(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.ToLower(sizeSuffixRe.ReplaceAllString(base, ""))
}
