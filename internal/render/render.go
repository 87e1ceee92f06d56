// Package render draws PNG previews of generated point lists using fogleman/gg.
package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/joaomamede/lowCostHCA/pkg/colormap"
)

// Config contains renderer configuration.
type Config struct {
	MaxDimension  int    // longest edge of an overlay preview, px
	WellPixels    int    // edge of one well cell on a plate map, px
	OrderColormap string // gradient used for visiting order
}

// Renderer renders overlay and plate previews.
type Renderer struct {
	config     Config
	bufferPool sync.Pool
	order      colormap.Colormap
	groups     colormap.Colormap
}

var (
	background = color.RGBA{24, 24, 28, 255}
	foreground = color.RGBA{230, 230, 230, 255}
	dimmed     = color.RGBA{90, 90, 100, 255}
)

// NewRenderer creates a renderer, filling zero config values with defaults.
func NewRenderer(cfg Config) *Renderer {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1024
	}
	if cfg.WellPixels <= 0 {
		cfg.WellPixels = 48
	}
	order, ok := colormap.ByName(cfg.OrderColormap)
	if !ok {
		order = colormap.Viridis
	}
	return &Renderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 64*1024))
			},
		},
		order:  order,
		groups: colormap.Tab10,
	}
}

// drawPath strokes the visiting path through pts in order.
func drawPath(dc *gg.Context, pts [][2]float64, c color.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.MoveTo(pts[0][0], pts[0][1])
	for _, p := range pts[1:] {
		dc.LineTo(p[0], p[1])
	}
	dc.Stroke()
}

func (r *Renderer) encodeContext(dc *gg.Context) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, dc.Image()); err != nil {
		return nil, err
	}

	// The buffer goes back to the pool.
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

func scaleToFit(w, h, limit int) float64 {
	longest := math.Max(float64(w), float64(h))
	if longest <= float64(limit) {
		return 1
	}
	return float64(limit) / longest
}
