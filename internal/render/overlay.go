package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
	"github.com/joaomamede/lowCostHCA/pkg/colormap"
)

// Overlay draws the ROI outlines and the accepted field-of-view squares over
// an empty canvas the size of the preview image, scaled down to fit
// MaxDimension. Tiles are colored by visiting order and joined by the stage
// path.
func (r *Renderer) Overlay(im geometry.Image, rois []geometry.ROI, res tiling.Result) ([]byte, error) {
	if im.Width <= 0 || im.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", im.Width, im.Height)
	}
	s := scaleToFit(im.Width, im.Height, r.config.MaxDimension)
	w := max(1, int(math.Round(float64(im.Width)*s)))
	h := max(1, int(math.Round(float64(im.Height)*s)))

	dc := gg.NewContext(w, h)
	dc.SetColor(background)
	dc.Clear()

	for i, roi := range rois {
		drawROI(dc, roi, s, r.groups.AtIndex(i))
	}

	colors := colormap.Ramp(r.order, len(res.Tiles))
	path := make([][2]float64, 0, len(res.Tiles))
	for i, t := range res.Tiles {
		rect := t.Rect
		dc.SetColor(colors[i])
		dc.SetLineWidth(1.5)
		dc.DrawRectangle(rect.X*s, rect.Y*s, rect.Width*s, rect.Height*s)
		dc.Stroke()

		cx, cy := t.Pixel.X*s, t.Pixel.Y*s
		dc.DrawCircle(cx, cy, 2.5)
		dc.Fill()
		path = append(path, [2]float64{cx, cy})

		// Skip labels that would not fit inside the footprint.
		if rect.Width*s >= 28 {
			dc.SetColor(foreground)
			dc.DrawStringAnchored(t.Label, cx, cy-8, 0.5, 0.5)
		}
	}
	drawPath(dc, path, foreground, 1)

	return r.encodeContext(dc)
}

func drawROI(dc *gg.Context, roi geometry.ROI, s float64, c color.Color) {
	b := roi.Bounds
	dc.SetColor(c)
	dc.SetLineWidth(2)
	switch roi.Shape {
	case geometry.ShapeEllipse, geometry.ShapeCircle:
		ctr := b.Center()
		dc.DrawEllipse(ctr.X*s, ctr.Y*s, b.Width*s/2, b.Height*s/2)
	case geometry.ShapePolygon, geometry.ShapeMask:
		// Only the bounding box is known here.
		dc.SetDash(6, 4)
		dc.DrawRectangle(b.X*s, b.Y*s, b.Width*s, b.Height*s)
	default:
		dc.DrawRectangle(b.X*s, b.Y*s, b.Width*s, b.Height*s)
	}
	dc.Stroke()
	dc.SetDash()
}
