// Package colormap provides color schemes for preview images.
package colormap

import (
	"image/color"
	"sort"
)

// Colormap maps normalized values [0, 1] or category indices to colors.
type Colormap interface {
	At(t float64) color.Color
	AtIndex(i int) color.Color
}

// Linear interpolates between evenly spaced color stops.
type Linear struct {
	stops []color.RGBA
}

// NewLinear builds a gradient from at least one stop.
func NewLinear(stops ...color.RGBA) Linear {
	if len(stops) == 0 {
		stops = []color.RGBA{{0, 0, 0, 255}}
	}
	return Linear{stops: stops}
}

// At returns the color at position t, clamped to [0, 1].
func (c Linear) At(t float64) color.Color {
	if t <= 0 || len(c.stops) == 1 {
		return c.stops[0]
	}
	if t >= 1 {
		return c.stops[len(c.stops)-1]
	}

	pos := t * float64(len(c.stops)-1)
	lo := int(pos)
	return lerp(c.stops[lo], c.stops[lo+1], pos-float64(lo))
}

// AtIndex returns stop i, wrapping around.
func (c Linear) AtIndex(i int) color.Color {
	return c.stops[mod(i, len(c.stops))]
}

// Ramp returns n colors evenly spread over the gradient, first to last.
func Ramp(c Colormap, n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = c.At(t)
	}
	return out
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + t*(float64(y)-float64(x))) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// Palette is a fixed list of distinct colors.
type Palette struct {
	colors []color.RGBA
}

// At picks the palette entry covering t.
func (p Palette) At(t float64) color.Color {
	i := int(t * float64(len(p.colors)))
	if i >= len(p.colors) {
		i = len(p.colors) - 1
	}
	if i < 0 {
		i = 0
	}
	return p.colors[i]
}

// AtIndex returns entry i, wrapping around.
func (p Palette) AtIndex(i int) color.Color {
	return p.colors[mod(i, len(p.colors))]
}

func mod(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Viridis (matplotlib), used for acquisition order.
var Viridis = NewLinear(
	color.RGBA{68, 1, 84, 255},
	color.RGBA{72, 35, 116, 255},
	color.RGBA{64, 67, 135, 255},
	color.RGBA{52, 94, 141, 255},
	color.RGBA{41, 120, 142, 255},
	color.RGBA{32, 144, 140, 255},
	color.RGBA{34, 167, 132, 255},
	color.RGBA{68, 190, 112, 255},
	color.RGBA{121, 209, 81, 255},
	color.RGBA{189, 222, 38, 255},
	color.RGBA{253, 231, 37, 255},
)

// Plasma (matplotlib).
var Plasma = NewLinear(
	color.RGBA{13, 8, 135, 255},
	color.RGBA{75, 3, 161, 255},
	color.RGBA{125, 3, 168, 255},
	color.RGBA{168, 34, 150, 255},
	color.RGBA{203, 70, 121, 255},
	color.RGBA{229, 107, 93, 255},
	color.RGBA{248, 148, 65, 255},
	color.RGBA{253, 195, 40, 255},
	color.RGBA{240, 249, 33, 255},
)

// Tab10 is the matplotlib tab10 palette, used to tell ROIs apart.
var Tab10 = Palette{colors: []color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{148, 103, 189, 255},
	{140, 86, 75, 255},
	{227, 119, 194, 255},
	{127, 127, 127, 255},
	{188, 189, 34, 255},
	{23, 190, 207, 255},
}}

var byName = map[string]Colormap{
	"viridis": Viridis,
	"plasma":  Plasma,
	"tab10":   Tab10,
}

// ByName looks up a registered colormap.
func ByName(name string) (Colormap, bool) {
	c, ok := byName[name]
	return c, ok
}

// Names lists registered colormaps in sorted order.
func Names() []string {
	out := make([]string, 0, len(byName))
	for k := range byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
