package plate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"gonum.org/v1/gonum/spatial/r2"
)

// Strategy names a per-well sampling strategy.
type Strategy string

const (
	StrategyRejection Strategy = "rejection"
	StrategyPoisson   Strategy = "poisson"
)

// Limits on request-controlled sampling work.
const (
	MaxPointsPerWell = 1000
	MaxDrawsPerPoint = 100000

	maxPoissonCells = 1e5
)

// Params describe plate geometry and per-well sampling.
type Params struct {
	Layout         Layout   `json:"layout"`
	WellSpacingMM  float64  `json:"well_spacing_mm"`
	WellDiameterUM float64  `json:"well_diameter_um"`
	OffsetXUM      float64  `json:"offset_x_um"` // stage x of A1
	OffsetYUM      float64  `json:"offset_y_um"` // stage y of A1
	Z              float64  `json:"z"`
	PSFOffset      float64  `json:"psf_offset"`
	PointsPerWell  int      `json:"points_per_well"`
	MinDistanceUM  float64  `json:"min_point_distance_um"`
	DrawsPerPoint  int      `json:"draws_per_point"`
	Strategy       Strategy `json:"strategy"`
}

// DefaultParams returns the settings of the plate selector panel.
func DefaultParams() Params {
	return Params{
		Layout:         Standard96,
		WellSpacingMM:  9,
		WellDiameterUM: 3500,
		OffsetXUM:      48510,
		OffsetYUM:      -31800,
		Z:              100,
		PSFOffset:      7050,
		PointsPerWell:  10,
		MinDistanceUM:  0.340432 * 2000,
		DrawsPerPoint:  1000,
		Strategy:       StrategyRejection,
	}
}

// Validate checks plate and sampling parameters.
func (p Params) Validate() error {
	if err := p.Layout.Validate(); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"well spacing":  p.WellSpacingMM,
		"well diameter": p.WellDiameterUM,
	} {
		if !(v > 0) || math.IsInf(v, 0) {
			return pointlist.Validationf("%s must be positive, got %g", name, v)
		}
	}
	for name, v := range map[string]float64{
		"offset x":   p.OffsetXUM,
		"offset y":   p.OffsetYUM,
		"z":          p.Z,
		"psf offset": p.PSFOffset,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pointlist.Validationf("%s must be finite", name)
		}
	}
	if p.PointsPerWell < 1 || p.PointsPerWell > MaxPointsPerWell {
		return pointlist.Validationf("points per well must be in [1, %d], got %d", MaxPointsPerWell, p.PointsPerWell)
	}
	if !(p.MinDistanceUM >= 0) || math.IsInf(p.MinDistanceUM, 0) {
		return pointlist.Validationf("minimum point distance must be non-negative, got %g", p.MinDistanceUM)
	}
	if p.DrawsPerPoint < 1 || p.DrawsPerPoint > MaxDrawsPerPoint {
		return pointlist.Validationf("draws per point must be in [1, %d], got %d", MaxDrawsPerPoint, p.DrawsPerPoint)
	}
	switch p.Strategy {
	case "", StrategyRejection, StrategyPoisson:
	default:
		return pointlist.Validationf("unknown sampling strategy %q", p.Strategy)
	}
	return nil
}

// WellCenter returns the stage position of a well center in micrometers.
// Stage x decreases with the column and y increases with the row.
func (p Params) WellCenter(w Well) r2.Vec {
	return r2.Vec{
		X: (p.OffsetXUM/1000 - float64(w.Col-1)*p.WellSpacingMM) * 1000,
		Y: (p.OffsetYUM/1000 + float64(w.Row)*p.WellSpacingMM) * 1000,
	}
}

// MaxDraws is the candidate budget per well for rejection sampling.
func (p Params) MaxDraws() int {
	return maxDraws(p.DrawsPerPoint, p.PointsPerWell, p.MinDistanceUM, p.WellDiameterUM)
}

// NewSampler builds the sampler selected by p.Strategy.
func (p Params) NewSampler() Sampler {
	// poissondisc needs a positive radius and fills the whole well, about
	// (side/d)^2 points. Tiny spacings go to rejection sampling, which accepts
	// nearly every draw there.
	if p.Strategy == StrategyPoisson && p.MinDistanceUM > 0 &&
		math.Pow(p.WellDiameterUM/p.MinDistanceUM, 2) <= maxPoissonCells {
		return PoissonSampler{Side: p.WellDiameterUM, MinDistance: p.MinDistanceUM, N: p.PointsPerWell}
	}
	return RejectionSampler{
		Side:        p.WellDiameterUM,
		MinDistance: p.MinDistanceUM,
		N:           p.PointsPerWell,
		MaxDraws:    p.MaxDraws(),
	}
}

// WellSample is the outcome for one visited well.
type WellSample struct {
	Well   Well     `json:"well"`
	ID     string   `json:"id"`
	Center r2.Vec   `json:"center"`
	Points []r2.Vec `json:"points"`
}

// Result holds the generated point list and its per-well breakdown.
type Result struct {
	Points pointlist.PointList `json:"points"`
	Wells  []WellSample        `json:"wells"`
}

// Generate samples PointsPerWell points in every selected well. Wells are
// visited in snake order and points keep their acceptance order within a
// well. A nil rng is seeded from the clock.
func Generate(selection []int, p Params, rng *rand.Rand) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(selection) == 0 {
		return Result{}, pointlist.Validationf("no wells selected")
	}
	wells, err := p.Layout.SnakeOrder(selection)
	if err != nil {
		return Result{}, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	sampler := p.NewSampler()
	res := Result{
		Points: make(pointlist.PointList, 0, len(wells)*p.PointsPerWell),
		Wells:  make([]WellSample, 0, len(wells)),
	}
	for _, w := range wells {
		id := w.ID()
		center := p.WellCenter(w)
		pts, err := sampler.Sample(id, center, rng)
		if err != nil {
			return Result{}, err
		}
		for i, pt := range pts {
			res.Points = append(res.Points, pointlist.Point{
				Name:      fmt.Sprintf("%s_%d", id, i),
				X:         pt.X,
				Y:         pt.Y,
				Z:         p.Z,
				PFSOffset: p.PSFOffset,
				Checked:   true,
			})
		}
		res.Wells = append(res.Wells, WellSample{Well: w, ID: id, Center: center, Points: pts})
	}
	return res, nil
}
