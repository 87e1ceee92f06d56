package geometry

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestCalibration_RoundTrip(t *testing.T) {
	im := NewImage("slide", 2040, 2040, 0.33, 1000, 2000, -5)
	c := im.Calibration

	assert.Equal(t, r2.Vec{X: 1000, Y: 2000}, c.ToStage(1020, 1020))

	s := c.ToStage(0, 0)
	assert.InDelta(t, 1000-1020*0.33, s.X, 1e-9)
	assert.InDelta(t, 2000-1020*0.33, s.Y, 1e-9)

	for _, px := range []r2.Vec{{X: 0, Y: 0}, {X: 17.25, Y: 1999}, {X: 2040, Y: 3}} {
		s := c.ToStage(px.X, px.Y)
		back := c.ToImage(s.X, s.Y)
		assert.InDelta(t, px.X, back.X, 1e-9)
		assert.InDelta(t, px.Y, back.Y, 1e-9)
	}
}

func TestImage_Validate(t *testing.T) {
	assert.NoError(t, NewImage("ok", 10, 10, 0.5, 0, 0, 0).Validate())
	assert.Error(t, NewImage("zero", 0, 10, 0.5, 0, 0, 0).Validate())
	assert.Error(t, NewImage("px", 10, 10, 0, 0, 0, 0).Validate())
}

func TestRectROI(t *testing.T) {
	roi, err := NewRectROI(10, 20, 5, 5)
	require.NoError(t, err)

	assert.True(t, roi.Contains(10, 20))
	assert.True(t, roi.Contains(14, 24))
	assert.False(t, roi.Contains(15, 24))
	assert.False(t, roi.Contains(9, 20))

	_, err = NewRectROI(0, 0, 0, 5)
	assert.Error(t, err)
}

func TestEllipseROI(t *testing.T) {
	roi, err := NewCircleROI(0, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, ShapeCircle, roi.Shape)

	assert.True(t, roi.Contains(50, 50))
	assert.True(t, roi.Contains(50, 1))
	assert.False(t, roi.Contains(0, 0), "bounding box corner is outside the circle")
	assert.False(t, roi.Contains(99, 99))
}

func TestPolygonROI(t *testing.T) {
	// Right triangle with the hypotenuse from (100,0) to (0,100).
	roi, err := NewPolygonROI([]r2.Vec{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}})
	require.NoError(t, err)
	assert.Equal(t, NewRect(0, 0, 100, 100), roi.Bounds)

	assert.True(t, roi.Contains(10, 10))
	assert.False(t, roi.Contains(80, 80))

	_, err = NewPolygonROI([]r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.Error(t, err)
}

func TestBitmapROI_Rescales(t *testing.T) {
	// 2x2 mask: only the top-left quadrant is set.
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(0, 0, color.Gray{Y: 255})

	roi, err := NewBitmapROI(100, 200, 40, 40, src)
	require.NoError(t, err)

	assert.True(t, roi.Contains(105, 205))
	assert.True(t, roi.Contains(119, 219))
	assert.False(t, roi.Contains(121, 205))
	assert.False(t, roi.Contains(105, 221))
	assert.False(t, roi.Contains(99, 200), "outside the mask placement")
}

func TestRowLabel(t *testing.T) {
	tests := []struct {
		row  int
		want string
	}{
		{0, "A"}, {1, "B"}, {7, "H"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {51, "AZ"}, {52, "BA"}, {701, "ZZ"}, {702, "AAA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RowLabel(tt.row))
		assert.Equal(t, tt.row, RowIndex(tt.want))
	}
	assert.Equal(t, "", RowLabel(-1))
	assert.Equal(t, -1, RowIndex("a"))
	assert.Equal(t, -1, RowIndex(""))
}
