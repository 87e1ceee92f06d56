package tiling

import (
	"errors"
	"testing"

	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitImage has 1 um pixels with the stage origin at the image center.
func unitImage() geometry.Image {
	return geometry.NewImage("img", 10000, 10000, 1, 0, 0, 12.5)
}

func mustRect(t *testing.T, x, y, w, h float64) geometry.ROI {
	t.Helper()
	roi, err := geometry.NewRectROI(x, y, w, h)
	require.NoError(t, err)
	return roi
}

func TestTileROI_Scenario(t *testing.T) {
	im := geometry.NewImage("slide", 2040, 2040, 0.33, 1000, 2000, 5)
	roi := mustRect(t, 0, 0, 2040, 2040)
	p := Params{TargetPixelSizeUM: 0.16, SensorPixels: 2040, Overlap: 0}

	assert.InDelta(t, 326.4, p.FOV(), 1e-9)
	assert.InDelta(t, 326.4, p.Step(), 1e-9)

	res, err := TileROI(im, roi, 1, p)
	require.NoError(t, err)
	require.Len(t, res.Points, 4)
	require.Len(t, res.Tiles, 4)

	want := []struct {
		name string
		x, y float64
	}{
		{"slide_ROI1_A1", 836.8, 1836.8},
		{"slide_ROI1_A2", 1163.2, 1836.8},
		{"slide_ROI1_B2", 1163.2, 2163.2},
		{"slide_ROI1_B1", 836.8, 2163.2},
	}
	for i, w := range want {
		pt := res.Points[i]
		assert.Equal(t, w.name, pt.Name)
		assert.InDelta(t, w.x, pt.X, 1e-6)
		assert.InDelta(t, w.y, pt.Y, 1e-6)
		assert.Equal(t, 5.0, pt.Z)
		assert.Equal(t, 0.0, pt.PFSOffset)
		assert.True(t, pt.Checked)
	}

	require.Len(t, res.Grids, 1)
	assert.Equal(t, 2, res.Grids[0].NX)
	assert.Equal(t, 2, res.Grids[0].NY)
	assert.Equal(t, 4, res.Grids[0].Accepted)

	// Overlay footprint is the FOV expressed in preview pixels.
	assert.InDelta(t, 326.4/0.33, res.Tiles[0].Rect.Width, 1e-6)
	assert.InDelta(t, res.Tiles[0].Pixel.X, res.Tiles[0].Rect.Center().X, 1e-9)
}

func TestTileROI_SnakeOrderAndCentering(t *testing.T) {
	im := unitImage()
	roi := mustRect(t, 0, 0, 500, 300)
	p := Params{TargetPixelSizeUM: 1, SensorPixels: 100, Overlap: 0}

	res, err := TileROI(im, roi, 1, p)
	require.NoError(t, err)
	require.Len(t, res.Points, 15)

	rows := make(map[int][]float64)
	for i, tile := range res.Tiles {
		rows[tile.Row] = append(rows[tile.Row], res.Points[i].X)
	}
	require.Len(t, rows, 3)
	for row, xs := range rows {
		for i := 1; i < len(xs); i++ {
			if row%2 == 0 {
				assert.Greater(t, xs[i], xs[i-1], "row %d should run left to right", row)
			} else {
				assert.Less(t, xs[i], xs[i-1], "row %d should run right to left", row)
			}
			assert.InDelta(t, 100, abs(xs[i]-xs[i-1]), 1e-9)
		}
	}

	// Equal margins on both sides of the extent.
	left := res.Points[0].X - (-5000)
	right := (-5000 + 500.0) - res.Points[4].X
	assert.InDelta(t, left, right, 1e-9)
	assert.InDelta(t, 50, left, 1e-9)

	assert.Equal(t, "img_ROI1_B5", res.Points[5].Name, "odd row starts at its last geometric column")
	assert.Equal(t, 5, res.Tiles[5].Column)
}

func TestTileROI_Overlap(t *testing.T) {
	im := unitImage()
	roi := mustRect(t, 0, 0, 500, 50)
	p := Params{TargetPixelSizeUM: 1, SensorPixels: 100, Overlap: 0.5}

	res, err := TileROI(im, roi, 1, p)
	require.NoError(t, err)
	require.Len(t, res.Points, 10)
	assert.InDelta(t, -5000+25.0, res.Points[0].X, 1e-9)
	assert.InDelta(t, 50, res.Points[1].X-res.Points[0].X, 1e-9)
}

func TestTileROI_MaskKeepsLabels(t *testing.T) {
	im := unitImage()
	hole := func(x, y int) bool {
		return !(x >= 100 && x < 200 && y >= 100 && y < 200)
	}
	roi := geometry.ROI{
		Shape:  geometry.ShapeMask,
		Bounds: geometry.NewRect(0, 0, 300, 300),
		Mask:   geometry.MaskFunc(hole),
	}
	p := Params{TargetPixelSizeUM: 1, SensorPixels: 100}

	res, err := TileROI(im, roi, 2, p)
	require.NoError(t, err)

	var labels []string
	for _, tile := range res.Tiles {
		labels = append(labels, tile.Label)
	}
	assert.Equal(t, []string{"A1", "A2", "A3", "B3", "B1", "C1", "C2", "C3"}, labels)
	assert.Equal(t, "img_ROI2_B1", res.Points[4].Name)
	assert.Equal(t, 8, res.Grids[0].Accepted)
}

func TestTileROI_SmallROIGivesOneCenteredTile(t *testing.T) {
	im := unitImage()
	roi := mustRect(t, 0, 0, 10, 10)
	p := Params{TargetPixelSizeUM: 1, SensorPixels: 100}

	res, err := TileROI(im, roi, 1, p)
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, "img_ROI1_A1", res.Points[0].Name)
	assert.InDelta(t, -4995, res.Points[0].X, 1e-9)
	assert.InDelta(t, -4995, res.Points[0].Y, 1e-9)
}

func TestTileROI_EmptyMaskIsNotAnError(t *testing.T) {
	im := unitImage()
	roi := geometry.ROI{
		Bounds: geometry.NewRect(0, 0, 300, 300),
		Mask:   geometry.MaskFunc(func(int, int) bool { return false }),
	}

	res, err := TileROI(im, roi, 1, Params{TargetPixelSizeUM: 1, SensorPixels: 100})
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.Equal(t, 0, res.Grids[0].Accepted)
}

func TestTileROI_RejectsCentersOffImage(t *testing.T) {
	im := geometry.NewImage("edge", 100, 100, 1, 0, 0, 0)
	roi := geometry.ROI{Bounds: geometry.NewRect(0, 0, 200, 100)}

	res, err := TileROI(im, roi, 1, Params{TargetPixelSizeUM: 1, SensorPixels: 100})
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, "edge_ROI1_A1", res.Points[0].Name)
}

func TestTileROI_RejectsOversizedGrid(t *testing.T) {
	im := geometry.NewImage("slide", 2040, 2040, 0.33, 1000, 2000, 5)
	roi := mustRect(t, 0, 0, 2040, 2040)

	// A 4 px sensor would need 1051x1051 tiles.
	_, err := TileROI(im, roi, 1, Params{TargetPixelSizeUM: 0.16, SensorPixels: 4})
	var ve *pointlist.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Contains(t, ve.Reason, "tile limit")

	// A vanishing pixel size must not overflow the grid count.
	_, err = TileROI(im, roi, 1, Params{TargetPixelSizeUM: 1e-300, SensorPixels: 1})
	require.True(t, errors.As(err, &ve), "got %v", err)

	// 64 px gives 65x65 = 4225 tiles: over a custom limit, under the default.
	p := Params{TargetPixelSizeUM: 0.16, SensorPixels: 64, MaxTiles: 4000}
	_, err = TileROI(im, roi, 1, p)
	require.True(t, errors.As(err, &ve), "got %v", err)

	p.MaxTiles = 0
	res, err := TileROI(im, roi, 1, p)
	require.NoError(t, err)
	assert.Len(t, res.Points, 4225)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Params
		wantErr bool
	}{
		{"defaults", Params{0.16, 2040, 0.05, 0}, false},
		{"zero overlap", Params{0.16, 2040, 0, 0}, false},
		{"overlap one", Params{0.16, 2040, 1, 0}, true},
		{"negative overlap", Params{0.16, 2040, -0.1, 0}, true},
		{"zero pixel size", Params{0, 2040, 0, 0}, true},
		{"zero sensor", Params{0.16, 0, 0, 0}, true},
		{"negative max tiles", Params{0.16, 2040, 0, -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var ve *pointlist.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
}

func TestTileAll_Numbering(t *testing.T) {
	im := unitImage()
	a := mustRect(t, 0, 0, 10, 10)
	a.ID = 7
	b := mustRect(t, 1000, 1000, 10, 10)
	b.ID = 3
	p := Params{TargetPixelSizeUM: 1, SensorPixels: 100}

	res, err := TileAll(im, []geometry.ROI{a, b}, p, NumberByPosition)
	require.NoError(t, err)
	assert.Equal(t, []string{"img_ROI1_A1", "img_ROI2_A1"}, res.Points.Names())
	assert.Len(t, res.Grids, 2)

	res, err = TileAll(im, []geometry.ROI{a, b}, p, NumberByID)
	require.NoError(t, err)
	assert.Equal(t, []string{"img_ROI7_A1", "img_ROI3_A1"}, res.Points.Names())

	b.ID = 7
	_, err = TileAll(im, []geometry.ROI{a, b}, p, NumberByID)
	assert.Error(t, err)
}

func TestTileAll_NoROIs(t *testing.T) {
	_, err := TileAll(unitImage(), nil, Params{TargetPixelSizeUM: 1, SensorPixels: 100}, NumberByPosition)
	var ve *pointlist.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Reason, "no ROIs")
}

func TestParseNumbering(t *testing.T) {
	n, err := ParseNumbering("")
	require.NoError(t, err)
	assert.Equal(t, NumberByPosition, n)

	n, err = ParseNumbering("id")
	require.NoError(t, err)
	assert.Equal(t, NumberByID, n)
	assert.Equal(t, "id", n.String())

	_, err = ParseNumbering("legacy")
	assert.Error(t, err)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
