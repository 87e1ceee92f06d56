package tiling

import (
	"fmt"

	"github.com/joaomamede/lowCostHCA/internal/geometry"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
)

// Numbering selects the ROI number baked into point names.
type Numbering int

const (
	// NumberByPosition uses the ROI's 1-based position in the live list. Deleting
	// an earlier ROI renumbers the ones after it.
	NumberByPosition Numbering = iota
	// NumberByID uses the ROI's creation-time ID.
	NumberByID
)

// ParseNumbering maps a config/request value to a Numbering.
func ParseNumbering(s string) (Numbering, error) {
	switch s {
	case "", "position":
		return NumberByPosition, nil
	case "id":
		return NumberByID, nil
	}
	return 0, pointlist.Validationf("unknown roi numbering %q", s)
}

func (n Numbering) String() string {
	if n == NumberByID {
		return "id"
	}
	return "position"
}

// TileAll tiles every ROI drawn on im, in list order, and concatenates the
// results. With NumberByID every ROI must carry a positive, unique ID.
func TileAll(im geometry.Image, rois []geometry.ROI, p Params, numbering Numbering) (Result, error) {
	if len(rois) == 0 {
		return Result{}, pointlist.Validationf("no ROIs to tile")
	}

	seen := make(map[int]bool, len(rois))
	var all Result
	for i, roi := range rois {
		number := i + 1
		if numbering == NumberByID {
			if roi.ID <= 0 {
				return Result{}, pointlist.Validationf("roi %d has no id", i+1)
			}
			if seen[roi.ID] {
				return Result{}, pointlist.Validationf("duplicate roi id %d", roi.ID)
			}
			seen[roi.ID] = true
			number = roi.ID
		}

		res, err := TileROI(im, roi, number, p)
		if err != nil {
			return Result{}, fmt.Errorf("failed to tile roi %d: %w", number, err)
		}
		all.Points = append(all.Points, res.Points...)
		all.Tiles = append(all.Tiles, res.Tiles...)
		all.Grids = append(all.Grids, res.Grids...)
	}
	return all, nil
}
