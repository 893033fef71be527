// Package palette extracts a small color palette from a profile picture.
//
// The avatar is downloaded, decoded with imaging, shrunk to a thumbnail and
// its opaque pixels are bucketed by hue, saturation and lightness into four
// swatches: Primary (vibrant), Secondary (light vibrant), Vibrant (dark
// vibrant) and Muted. A swatch with no qualifying pixels keeps its default.
package palette

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Palette is a set of hex colors ("#RRGGBB") derived from an avatar.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Vibrant   string `json:"vibrant"`
	Muted     string `json:"muted"`
}

// Default is used whenever extraction is not possible.
var Default = Palette{
	Primary:   "#8B4513",
	Secondary: "#D2691E",
	Vibrant:   "#654321",
	Muted:     "#DEB887",
}

var (
	// ErrNoImage is returned when there is nothing to extract from.
	ErrNoImage = errors.New("palette: no image")
	// ErrTooManyPixels is returned for images whose header declares more
	// than maxPixels. Small files can declare huge canvases.
	ErrTooManyPixels = errors.New("palette: image dimensions too large")
)

const (
	maxImageBytes = 5 << 20
	maxPixels     = 4096 * 4096
	thumbSize     = 64
	hueBins       = 12
	minAlpha      = 125
)

// Extractor downloads avatars and computes palettes. The zero value is not
// usable; call NewExtractor.
type Extractor struct {
	http *http.Client
}

// NewExtractor returns an Extractor using hc, or a client with a 10s timeout
// when hc is nil.
func NewExtractor(hc *http.Client) *Extractor {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Extractor{http: hc}
}

// FromURL downloads the image at url and extracts its palette.
func (e *Extractor) FromURL(ctx context.Context, url string) (Palette, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Default, ErrNoImage
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Default, fmt.Errorf("palette: build request: %w", err)
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return Default, fmt.Errorf("palette: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Default, fmt.Errorf("palette: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return Default, fmt.Errorf("palette: read: %w", err)
	}
	if len(data) > maxImageBytes {
		return Default, fmt.Errorf("palette: image too large: %d bytes", len(data))
	}
	return FromBytes(data)
}

// FromBytes decodes an encoded image and extracts its palette.
func FromBytes(data []byte) (Palette, error) {
	if len(data) == 0 {
		return Default, ErrNoImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Default, fmt.Errorf("palette: decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return Default, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Default, fmt.Errorf("palette: decode: %w", err)
	}
	return FromImage(img), nil
}

type swatch int

const (
	swVibrant swatch = iota
	swLightVibrant
	swDarkVibrant
	swMuted
	swCount
)

type bin struct {
	n       int
	r, g, b float64
}

// FromImage extracts a palette from a decoded image.
func FromImage(img image.Image) Palette {
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Box)

	var bins [swCount][hueBins]bin
	bounds := thumb.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := thumb.PixOffset(x, y)
			px := thumb.Pix[i : i+4 : i+4]
			if px[3] < minAlpha {
				continue
			}
			r, g, b := float64(px[0])/255, float64(px[1])/255, float64(px[2])/255
			h, s, l := toHSL(r, g, b)
			sw, ok := classify(s, l)
			if !ok {
				continue
			}
			hb := int(h*hueBins) % hueBins
			bk := &bins[sw][hb]
			bk.n++
			bk.r += r
			bk.g += g
			bk.b += b
		}
	}

	out := Default
	slots := [swCount]*string{&out.Primary, &out.Secondary, &out.Vibrant, &out.Muted}
	for sw := swatch(0); sw < swCount; sw++ {
		best := -1
		for i := range bins[sw] {
			if bins[sw][i].n > 0 && (best < 0 || bins[sw][i].n > bins[sw][best].n) {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		bk := bins[sw][best]
		n := float64(bk.n)
		*slots[sw] = hex(bk.r/n, bk.g/n, bk.b/n)
	}
	return out
}

func classify(s, l float64) (swatch, bool) {
	switch {
	case s >= 0.35 && l >= 0.3 && l <= 0.7:
		return swVibrant, true
	case s >= 0.35 && l > 0.7 && l < 0.95:
		return swLightVibrant, true
	case s >= 0.35 && l < 0.3 && l > 0.05:
		return swDarkVibrant, true
	case s < 0.35 && l >= 0.3 && l <= 0.7:
		return swMuted, true
	}
	return 0, false
}

// toHSL converts RGB in [0,1] to hue, saturation and lightness in [0,1].
func toHSL(r, g, b float64) (h, s, l float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	l = (maxC + minC) / 2
	if maxC == minC {
		return 0, 0, l
	}
	d := maxC - minC
	if l > 0.5 {
		s = d / (2 - maxC - minC)
	} else {
		s = d / (maxC + minC)
	}
	switch maxC {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hex(r, g, b float64) string {
	c := func(v float64) uint8 { return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02X%02X%02X", c(r), c(g), c(b))
}
