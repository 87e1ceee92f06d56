// Package tiling covers regions of interest on a calibrated preview image with
// an overlapping grid of camera fields of view, visited in snake order.
package tiling

import (
	"fmt"
	"math"

	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"gonum.org/v1/gonum/spatial/r2"
)

// Params describe the acquisition camera and tiling overlap.
type Params struct {
	TargetPixelSizeUM float64 `json:"target_pixel_size_um"` // sample pixel size of the acquisition objective
	SensorPixels      int     `json:"sensor_pixels"`        // square sensor edge in pixels
	Overlap           float64 `json:"overlap"`              // fraction in [0, 1)
	MaxTiles          int     `json:"max_tiles,omitempty"`  // per-ROI grid size limit, DefaultMaxTiles when zero
}

// DefaultMaxTiles bounds nx*ny of a single ROI grid.
const DefaultMaxTiles = 10000

func (p Params) maxTiles() int {
	if p.MaxTiles > 0 {
		return p.MaxTiles
	}
	return DefaultMaxTiles
}

// FOV returns the physical edge of one field of view in micrometers.
func (p Params) FOV() float64 {
	return p.TargetPixelSizeUM * float64(p.SensorPixels)
}

// Step returns the distance between adjacent tile centers.
func (p Params) Step() float64 {
	return p.FOV() * (1 - p.Overlap)
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if !(p.TargetPixelSizeUM > 0) || math.IsInf(p.TargetPixelSizeUM, 0) {
		return pointlist.Validationf("target pixel size must be positive, got %g", p.TargetPixelSizeUM)
	}
	if p.SensorPixels <= 0 {
		return pointlist.Validationf("sensor pixels must be positive, got %d", p.SensorPixels)
	}
	if !(p.Overlap >= 0 && p.Overlap < 1) {
		return pointlist.Validationf("overlap must be in [0, 1), got %g", p.Overlap)
	}
	if p.MaxTiles < 0 {
		return pointlist.Validationf("max tiles must not be negative, got %d", p.MaxTiles)
	}
	return nil
}

// Tile is one accepted field of view.
type Tile struct {
	ROI    int           `json:"roi"`    // ROI number used in the point name
	Row    int           `json:"row"`    // 0-based grid row
	Column int           `json:"column"` // 1-based geometric grid column
	Label  string        `json:"label"`  // row letter + column, e.g. "B3"
	Stage  r2.Vec        `json:"stage"`  // tile center, stage micrometers
	Pixel  r2.Vec        `json:"pixel"`  // tile center, image pixels
	Rect   geometry.Rect `json:"rect"`   // field of view footprint, image pixels
}

// Grid summarizes the candidate grid laid over one ROI.
type Grid struct {
	ROI      int     `json:"roi"`
	NX       int     `json:"nx"`
	NY       int     `json:"ny"`
	Step     float64 `json:"step_um"`
	FOV      float64 `json:"fov_um"`
	StartX   float64 `json:"start_x"`
	StartY   float64 `json:"start_y"`
	WidthUM  float64 `json:"width_um"`
	HeightUM float64 `json:"height_um"`
	Accepted int     `json:"accepted"`
}

// Result holds the generated points and, index for index, the tiles they
// came from.
type Result struct {
	Points pointlist.PointList `json:"points"`
	Tiles  []Tile              `json:"tiles"`
	Grids  []Grid              `json:"grids"`
}

// TileROI lays the snake-ordered grid over one ROI. number is the ROI number
// baked into point names. A grid whose centers all fall outside the ROI mask
// yields an empty result, not an error.
func TileROI(im geometry.Image, roi geometry.ROI, number int, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := im.Validate(); err != nil {
		return Result{}, pointlist.Validationf("image %q: %v", im.Name, err)
	}

	cal := im.Calibration
	fov := p.FOV()
	step := p.Step()

	bmax := roi.Bounds.Max()
	s0 := cal.ToStage(roi.Bounds.X, roi.Bounds.Y)
	s1 := cal.ToStage(bmax.X, bmax.Y)
	width := s1.X - s0.X
	height := s1.Y - s0.Y

	fx := gridCount(width, step)
	fy := gridCount(height, step)
	if fx*fy > float64(p.maxTiles()) {
		return Result{}, pointlist.Validationf("roi %d needs a %gx%g grid, more than the %d tile limit",
			number, fx, fy, p.maxTiles())
	}
	nx, ny := int(fx), int(fy)

	// Center the grid inside the ROI extent.
	xStart := s0.X + (width-float64(nx-1)*step)/2
	yStart := s0.Y + (height-float64(ny-1)*step)/2

	grid := Grid{
		ROI:      number,
		NX:       nx,
		NY:       ny,
		Step:     step,
		FOV:      fov,
		StartX:   xStart,
		StartY:   yStart,
		WidthUM:  width,
		HeightUM: height,
	}
	footprint := fov / cal.PixelSizeUM

	var res Result
	for iy := 0; iy < ny; iy++ {
		row := geometry.RowLabel(iy)
		y := yStart + float64(iy)*step

		for k := 0; k < nx; k++ {
			ix := k
			if iy%2 == 1 {
				ix = nx - 1 - k
			}
			x := xStart + float64(ix)*step

			px := cal.ToImage(x, y)
			pxi := int(math.Floor(px.X))
			pyi := int(math.Floor(px.Y))
			if !im.Contains(pxi, pyi) || !roi.Contains(pxi, pyi) {
				continue
			}

			label := fmt.Sprintf("%s%d", row, ix+1)
			res.Points = append(res.Points, pointlist.Point{
				Name:      fmt.Sprintf("%s_ROI%d_%s", im.Name, number, label),
				X:         x,
				Y:         y,
				Z:         cal.StageZ,
				PFSOffset: 0,
				Checked:   true,
			})
			res.Tiles = append(res.Tiles, Tile{
				ROI:    number,
				Row:    iy,
				Column: ix + 1,
				Label:  label,
				Stage:  r2.Vec{X: x, Y: y},
				Pixel:  px,
				Rect:   geometry.CenteredSquare(px, footprint),
			})
		}
	}

	grid.Accepted = len(res.Points)
	res.Grids = []Grid{grid}
	return res, nil
}

// gridCount is floor(extent/step), at least 1. It stays a float so callers
// can bound the grid before converting.
func gridCount(extent, step float64) float64 {
	n := math.Floor(extent / step)
	if !(n >= 1) {
		return 1
	}
	return n
}
