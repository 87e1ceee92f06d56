package render

import (
	"image/color"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/pkg/colormap"
)

const plateMargin = 24

var selectedFill = color.RGBA{60, 60, 72, 255}

// PlateMap draws the plate grid with the visited wells, their sampled points
// and the well-to-well scan path. Columns run left to right as labelled on
// the plate, so stage x offsets are mirrored.
func (r *Renderer) PlateMap(p plate.Params, res plate.Result) ([]byte, error) {
	if err := p.Layout.Validate(); err != nil {
		return nil, err
	}
	wp := float64(r.config.WellPixels)
	w := plateMargin + int(float64(p.Layout.Cols)*wp) + 8
	h := plateMargin + int(float64(p.Layout.Rows)*wp) + 8

	dc := gg.NewContext(w, h)
	dc.SetColor(background)
	dc.Clear()

	cell := func(row, col int) (float64, float64) {
		return plateMargin + float64(col-1)*wp + wp/2, plateMargin + float64(row)*wp + wp/2
	}
	radius := 0.42 * wp

	dc.SetColor(foreground)
	for c := 1; c <= p.Layout.Cols; c++ {
		x, _ := cell(0, c)
		dc.DrawStringAnchored(strconv.Itoa(c), x, plateMargin/2, 0.5, 0.5)
	}
	for row := 0; row < p.Layout.Rows; row++ {
		_, y := cell(row, 1)
		dc.DrawStringAnchored(geometry.RowLabel(row), plateMargin/2, y, 0.5, 0.5)
	}

	dc.SetColor(dimmed)
	dc.SetLineWidth(1)
	for row := 0; row < p.Layout.Rows; row++ {
		for c := 1; c <= p.Layout.Cols; c++ {
			x, y := cell(row, c)
			dc.DrawCircle(x, y, radius)
			dc.Stroke()
		}
	}

	colors := colormap.Ramp(r.order, len(res.Wells))
	scale := 2 * radius / p.WellDiameterUM
	path := make([][2]float64, 0, len(res.Wells))
	for i, ws := range res.Wells {
		x, y := cell(ws.Well.Row, ws.Well.Col)
		path = append(path, [2]float64{x, y})

		dc.SetColor(selectedFill)
		dc.DrawCircle(x, y, radius)
		dc.Fill()

		dc.SetColor(colors[i])
		for _, pt := range ws.Points {
			px := x - (pt.X-ws.Center.X)*scale
			py := y + (pt.Y-ws.Center.Y)*scale
			dc.DrawCircle(px, py, 1.8)
			dc.Fill()
		}
	}
	drawPath(dc, path, foreground, 1)

	return r.encodeContext(dc)
}
