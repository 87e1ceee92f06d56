package geometry

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r2"
)

// Shape names the drawing tool an ROI came from.
type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeEllipse   Shape = "ellipse"
	ShapeCircle    Shape = "circle"
	ShapePolygon   Shape = "polygon"
	ShapeMask      Shape = "mask"
)

// Mask decides pixel membership. Pixels are addressed by integer index and
// tested at their center.
type Mask interface {
	Contains(x, y int) bool
}

// MaskFunc adapts a function to Mask.
type MaskFunc func(x, y int) bool

func (f MaskFunc) Contains(x, y int) bool { return f(x, y) }

// ROI is a region of interest on a preview image: a bounding box in image
// pixels plus a membership predicate.
type ROI struct {
	// ID is a stable identifier assigned at creation. Zero means unassigned.
	ID     int
	Shape  Shape
	Bounds Rect
	Mask   Mask
}

// Contains reports whether pixel (x, y) belongs to the ROI.
func (r ROI) Contains(x, y int) bool {
	if r.Mask == nil {
		return r.Bounds.ContainsPoint(pixelCenter(x, y))
	}
	return r.Mask.Contains(x, y)
}

func pixelCenter(x, y int) r2.Vec {
	return r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// NewRectROI returns a rectangular ROI covering its whole bounding box.
func NewRectROI(x, y, width, height float64) (ROI, error) {
	b := NewRect(x, y, width, height)
	if err := checkBounds(b); err != nil {
		return ROI{}, err
	}
	return ROI{
		Shape:  ShapeRectangle,
		Bounds: b,
		Mask:   MaskFunc(func(px, py int) bool { return b.ContainsPoint(pixelCenter(px, py)) }),
	}, nil
}

// NewEllipseROI returns the ellipse inscribed in the bounding box.
func NewEllipseROI(x, y, width, height float64) (ROI, error) {
	b := NewRect(x, y, width, height)
	if err := checkBounds(b); err != nil {
		return ROI{}, err
	}
	c := b.Center()
	rx, ry := width/2, height/2
	return ROI{
		Shape:  ShapeEllipse,
		Bounds: b,
		Mask: MaskFunc(func(px, py int) bool {
			p := pixelCenter(px, py)
			dx := (p.X - c.X) / rx
			dy := (p.Y - c.Y) / ry
			return dx*dx+dy*dy <= 1
		}),
	}, nil
}

// NewCircleROI returns a circle with the given top-left corner and diameter.
func NewCircleROI(x, y, diameter float64) (ROI, error) {
	roi, err := NewEllipseROI(x, y, diameter, diameter)
	if err != nil {
		return ROI{}, err
	}
	roi.Shape = ShapeCircle
	return roi, nil
}

// NewPolygonROI returns a freehand polygon ROI. The ring is closed implicitly.
func NewPolygonROI(vertices []r2.Vec) (ROI, error) {
	if len(vertices) < 3 {
		return ROI{}, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	ring := make(orb.Ring, len(vertices))
	for i, v := range vertices {
		ring[i] = orb.Point{v.X, v.Y}
	}
	bound := ring.Bound()
	b := NewRect(bound.Min.X(), bound.Min.Y(), bound.Max.X()-bound.Min.X(), bound.Max.Y()-bound.Min.Y())
	if err := checkBounds(b); err != nil {
		return ROI{}, err
	}
	return ROI{
		Shape:  ShapePolygon,
		Bounds: b,
		Mask: MaskFunc(func(px, py int) bool {
			p := pixelCenter(px, py)
			return planar.RingContains(ring, orb.Point{p.X, p.Y})
		}),
	}, nil
}

// NewBitmapROI returns an ROI whose membership comes from a raster mask placed
// at (x, y). The mask is resampled to width x height pixels; pixels with
// luminance of at least half scale are members.
func NewBitmapROI(x, y, width, height float64, mask image.Image) (ROI, error) {
	if mask == nil {
		return ROI{}, errors.New("mask image is required")
	}
	b := NewRect(x, y, width, height)
	if err := checkBounds(b); err != nil {
		return ROI{}, err
	}

	w := int(math.Round(width))
	h := int(math.Round(height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(gray, gray.Bounds(), mask, mask.Bounds(), draw.Src, nil)

	return ROI{
		Shape:  ShapeMask,
		Bounds: b,
		Mask: MaskFunc(func(px, py int) bool {
			mx := int(math.Floor(float64(px) + 0.5 - x))
			my := int(math.Floor(float64(py) + 0.5 - y))
			if mx < 0 || my < 0 || mx >= w || my >= h {
				return false
			}
			return gray.GrayAt(mx, my).Y >= 128
		}),
	}, nil
}

func checkBounds(b Rect) error {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("roi bounds must be finite: %+v", b)
		}
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("roi size must be positive, got %gx%g", b.Width, b.Height)
	}
	return nil
}
