// Package geometry maps between preview-image pixels and stage micrometers and
// describes regions of interest drawn on a preview image.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Calibration relates one preview image to the stage. The same calibration
// applies to every ROI drawn on that image.
type Calibration struct {
	PixelSizeUM float64 `json:"pixel_size_um"`
	StageX      float64 `json:"stage_x"`
	StageY      float64 `json:"stage_y"`
	StageZ      float64 `json:"stage_z"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
}

// ToStage maps an image pixel coordinate to stage micrometers.
//
//	stage = stage_center + (px - image_center) * pixel_size
func (c Calibration) ToStage(px, py float64) r2.Vec {
	return r2.Vec{
		X: c.StageX + (px-c.CenterX)*c.PixelSizeUM,
		Y: c.StageY + (py-c.CenterY)*c.PixelSizeUM,
	}
}

// ToImage is the inverse of ToStage.
func (c Calibration) ToImage(sx, sy float64) r2.Vec {
	return r2.Vec{
		X: (sx-c.StageX)/c.PixelSizeUM + c.CenterX,
		Y: (sy-c.StageY)/c.PixelSizeUM + c.CenterY,
	}
}

// Validate checks that the calibration can be inverted.
func (c Calibration) Validate() error {
	if !(c.PixelSizeUM > 0) || math.IsInf(c.PixelSizeUM, 0) {
		return fmt.Errorf("image pixel size must be positive, got %g", c.PixelSizeUM)
	}
	return nil
}

// Image is a calibrated preview image.
type Image struct {
	Name        string      `json:"name"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Calibration Calibration `json:"calibration"`
}

// NewImage returns an image whose calibration center is the geometric image
// center, as microscope metadata reports the stage position of the frame center.
func NewImage(name string, width, height int, pixelSizeUM, stageX, stageY, stageZ float64) Image {
	return Image{
		Name:   name,
		Width:  width,
		Height: height,
		Calibration: Calibration{
			PixelSizeUM: pixelSizeUM,
			StageX:      stageX,
			StageY:      stageY,
			StageZ:      stageZ,
			CenterX:     float64(width) / 2,
			CenterY:     float64(height) / 2,
		},
	}
}

// Contains reports whether pixel (x, y) lies on the image.
func (im Image) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < im.Width && y < im.Height
}

// Validate checks dimensions and calibration.
func (im Image) Validate() error {
	if im.Width <= 0 || im.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", im.Width, im.Height)
	}
	return im.Calibration.Validate()
}
