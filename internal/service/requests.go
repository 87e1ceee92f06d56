package service

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/plate"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"github.com/joaomamede/lowCostHCA/internal/tiling"
	"gonum.org/v1/gonum/spatial/r2"
)

// ImageSpec describes a calibrated preview image. The calibration center
// defaults to the image center.
type ImageSpec struct {
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	PixelSizeUM float64  `json:"pixel_size_um"`
	StageX      float64  `json:"stage_x"`
	StageY      float64  `json:"stage_y"`
	StageZ      float64  `json:"stage_z"`
	CenterX     *float64 `json:"center_x,omitempty"`
	CenterY     *float64 `json:"center_y,omitempty"`
}

// Image builds the geometry image.
func (s ImageSpec) Image() (geometry.Image, error) {
	if s.Name == "" {
		return geometry.Image{}, pointlist.Validationf("image name is required")
	}
	im := geometry.NewImage(s.Name, s.Width, s.Height, s.PixelSizeUM, s.StageX, s.StageY, s.StageZ)
	if s.CenterX != nil {
		im.Calibration.CenterX = *s.CenterX
	}
	if s.CenterY != nil {
		im.Calibration.CenterY = *s.CenterY
	}
	if err := im.Validate(); err != nil {
		return geometry.Image{}, pointlist.Validationf("image %q: %v", s.Name, err)
	}
	return im, nil
}

// ROISpec describes one drawn region. Rectangle, ellipse and mask use the
// box fields; circle uses X, Y and Width as diameter; polygon uses Vertices.
type ROISpec struct {
	ID       int          `json:"id,omitempty"`
	Shape    string       `json:"shape"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
	MaskPNG  []byte       `json:"mask_png,omitempty"` // base64 in JSON
}

// ROI builds the geometry ROI.
func (s ROISpec) ROI() (geometry.ROI, error) {
	var (
		roi geometry.ROI
		err error
	)
	switch geometry.Shape(s.Shape) {
	case "", geometry.ShapeRectangle:
		roi, err = geometry.NewRectROI(s.X, s.Y, s.Width, s.Height)
	case geometry.ShapeEllipse:
		roi, err = geometry.NewEllipseROI(s.X, s.Y, s.Width, s.Height)
	case geometry.ShapeCircle:
		roi, err = geometry.NewCircleROI(s.X, s.Y, s.Width)
	case geometry.ShapePolygon:
		vs := make([]r2.Vec, len(s.Vertices))
		for i, v := range s.Vertices {
			vs[i] = r2.Vec{X: v[0], Y: v[1]}
		}
		roi, err = geometry.NewPolygonROI(vs)
	case geometry.ShapeMask:
		if len(s.MaskPNG) == 0 {
			return geometry.ROI{}, pointlist.Validationf("mask roi needs mask_png")
		}
		img, derr := png.Decode(bytes.NewReader(s.MaskPNG))
		if derr != nil {
			return geometry.ROI{}, pointlist.Validationf("mask roi: invalid png: %v", derr)
		}
		roi, err = geometry.NewBitmapROI(s.X, s.Y, s.Width, s.Height, img)
	default:
		return geometry.ROI{}, pointlist.Validationf("unknown roi shape %q", s.Shape)
	}
	if err != nil {
		return geometry.ROI{}, pointlist.Validationf("%s roi: %v", s.Shape, err)
	}
	roi.ID = s.ID
	return roi, nil
}

// TilingRequest asks for the tile grid of every ROI on one image. Nil camera
// fields fall back to the configured defaults.
type TilingRequest struct {
	Image             ImageSpec `json:"image"`
	ROIs              []ROISpec `json:"rois"`
	TargetPixelSizeUM *float64  `json:"target_pixel_size_um,omitempty"`
	SensorPixels      *int      `json:"sensor_pixels,omitempty"`
	Overlap           *float64  `json:"overlap,omitempty"`
	Numbering         string    `json:"numbering,omitempty"` // "position" or "id"
}

func (req TilingRequest) resolve(defaults tiling.Params, numbering tiling.Numbering) (geometry.Image, []geometry.ROI, tiling.Params, tiling.Numbering, error) {
	im, err := req.Image.Image()
	if err != nil {
		return geometry.Image{}, nil, tiling.Params{}, 0, err
	}

	rois := make([]geometry.ROI, 0, len(req.ROIs))
	for i, spec := range req.ROIs {
		roi, err := spec.ROI()
		if err != nil {
			return geometry.Image{}, nil, tiling.Params{}, 0, fmt.Errorf("roi %d: %w", i+1, err)
		}
		rois = append(rois, roi)
	}

	p := defaults
	if req.TargetPixelSizeUM != nil {
		p.TargetPixelSizeUM = *req.TargetPixelSizeUM
	}
	if req.SensorPixels != nil {
		p.SensorPixels = *req.SensorPixels
	}
	if req.Overlap != nil {
		p.Overlap = *req.Overlap
	}

	if req.Numbering != "" {
		numbering, err = tiling.ParseNumbering(req.Numbering)
		if err != nil {
			return geometry.Image{}, nil, tiling.Params{}, 0, err
		}
	}
	return im, rois, p, numbering, nil
}

// PlateRequest asks for sampled points in a set of wells. Wells accepts IDs,
// indices and ranges ("A1", "13", "A1:B3"); Indices are 1-based well indices.
// Nil fields fall back to the configured plate defaults.
type PlateRequest struct {
	Wells              []string `json:"wells,omitempty"`
	Indices            []int    `json:"indices,omitempty"`
	Seed               *int64   `json:"seed,omitempty"`
	Rows               *int     `json:"rows,omitempty"`
	Cols               *int     `json:"cols,omitempty"`
	WellSpacingMM      *float64 `json:"well_spacing_mm,omitempty"`
	WellDiameterUM     *float64 `json:"well_diameter_um,omitempty"`
	OffsetXUM          *float64 `json:"offset_x_um,omitempty"`
	OffsetYUM          *float64 `json:"offset_y_um,omitempty"`
	Z                  *float64 `json:"z,omitempty"`
	PSFOffset          *float64 `json:"psf_offset,omitempty"`
	PointsPerWell      *int     `json:"points_per_well,omitempty"`
	MinPointDistanceUM *float64 `json:"min_point_distance_um,omitempty"`
	Strategy           string   `json:"strategy,omitempty"`
}

func (req PlateRequest) resolve(defaults plate.Params) ([]int, plate.Params, error) {
	p := defaults
	setInt(&p.Layout.Rows, req.Rows)
	setInt(&p.Layout.Cols, req.Cols)
	setFloat(&p.WellSpacingMM, req.WellSpacingMM)
	setFloat(&p.WellDiameterUM, req.WellDiameterUM)
	setFloat(&p.OffsetXUM, req.OffsetXUM)
	setFloat(&p.OffsetYUM, req.OffsetYUM)
	setFloat(&p.Z, req.Z)
	setFloat(&p.PSFOffset, req.PSFOffset)
	setInt(&p.PointsPerWell, req.PointsPerWell)
	setFloat(&p.MinDistanceUM, req.MinPointDistanceUM)
	if req.Strategy != "" {
		p.Strategy = plate.Strategy(req.Strategy)
	}

	selection, err := p.Layout.ParseSelection(req.Wells)
	if err != nil {
		return nil, plate.Params{}, err
	}
	selection = append(selection, req.Indices...)
	return selection, p, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
