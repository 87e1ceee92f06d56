package plate

import (
	"math"
	"math/rand"

	"github.com/fogleman/poissondisc"
	"github.com/joaomamede/lowCostHCA/internal/pointlist"
	"gonum.org/v1/gonum/spatial/r2"
)

// Sampler places spaced points inside the square footprint of one well.
type Sampler interface {
	Sample(well string, center r2.Vec, rng *rand.Rand) ([]r2.Vec, error)
}

// RejectionSampler draws uniform candidates in the well square and keeps
// those at least MinDistance from every point already accepted in the well.
// It gives up with a GeometryError after MaxDraws candidates.
type RejectionSampler struct {
	Side        float64
	MinDistance float64
	N           int
	MaxDraws    int
}

func (s RejectionSampler) Sample(well string, center r2.Vec, rng *rand.Rand) ([]r2.Vec, error) {
	if !packable(s.N, s.MinDistance, s.Side) {
		return nil, unpackable(well, s.N, s.MinDistance, s.Side)
	}
	box := squareAround(center, s.Side)
	size := box.Size()
	accepted := make([]r2.Vec, 0, s.N)

	draws := 0
	for len(accepted) < s.N {
		if draws >= s.MaxDraws {
			return nil, &pointlist.GeometryError{
				Well:        well,
				Points:      s.N,
				MinDistance: s.MinDistance,
				Diameter:    s.Side,
				Accepted:    len(accepted),
				Draws:       draws,
			}
		}
		draws++

		c := r2.Vec{
			X: box.Min.X + size.X*rng.Float64(),
			Y: box.Min.Y + size.Y*rng.Float64(),
		}
		if farFromAll(c, accepted, s.MinDistance) {
			accepted = append(accepted, c)
		}
	}
	return accepted, nil
}

func farFromAll(c r2.Vec, pts []r2.Vec, d float64) bool {
	for _, p := range pts {
		if r2.Norm(r2.Sub(c, p)) < d {
			return false
		}
	}
	return true
}

// PoissonSampler fills the well square with a Poisson-disc pattern and keeps
// a random subset of N points. It never retries; a pattern with fewer than N
// points is a GeometryError. poissondisc does not expose its candidate count,
// so that error reports zero draws.
type PoissonSampler struct {
	Side        float64
	MinDistance float64
	N           int
	Attempts    int // candidates per active point, 30 when zero
}

func (s PoissonSampler) Sample(well string, center r2.Vec, rng *rand.Rand) ([]r2.Vec, error) {
	if s.N == 0 {
		return nil, nil
	}
	if !packable(s.N, s.MinDistance, s.Side) {
		return nil, unpackable(well, s.N, s.MinDistance, s.Side)
	}
	k := s.Attempts
	if k <= 0 {
		k = 30
	}
	box := squareAround(center, s.Side)
	raw := poissondisc.Sample(box.Min.X, box.Min.Y, box.Max.X, box.Max.Y, s.MinDistance, k, rng)
	if len(raw) < s.N {
		return nil, &pointlist.GeometryError{
			Well:        well,
			Points:      s.N,
			MinDistance: s.MinDistance,
			Diameter:    s.Side,
			Accepted:    len(raw),
		}
	}

	rng.Shuffle(len(raw), func(i, j int) { raw[i], raw[j] = raw[j], raw[i] })
	out := make([]r2.Vec, s.N)
	for i := range out {
		out[i] = r2.Vec{X: raw[i].X, Y: raw[i].Y}
	}
	return out, nil
}

func squareAround(c r2.Vec, side float64) r2.Box {
	h := r2.Vec{X: side / 2, Y: side / 2}
	return r2.Box{Min: r2.Sub(c, h), Max: r2.Add(c, h)}
}

// packable is a necessary condition for placing n points pairwise at least d
// apart in a square of the given side: the disks of radius d/2 around them
// are disjoint and lie inside the square grown by d/2 on every edge.
func packable(n int, d, side float64) bool {
	if n <= 1 || d <= 0 {
		return true
	}
	r := d / 2
	return float64(n)*math.Pi*r*r <= (side+d)*(side+d)
}

func unpackable(well string, n int, d, side float64) *pointlist.GeometryError {
	return &pointlist.GeometryError{Well: well, Points: n, MinDistance: d, Diameter: side}
}

// maxCrowding caps the scale-up of the draw budget so it stays linear in n.
const maxCrowding = 4

// maxDraws is the per-well candidate budget of the rejection sampler:
// drawsPerPoint*n, scaled by up to maxCrowding when n disks of diameter d
// crowd the well area.
func maxDraws(drawsPerPoint, n int, d, side float64) int {
	crowding := math.Ceil(float64(n) * d * d / (side * side))
	if !(crowding >= 1) {
		crowding = 1
	}
	if crowding > maxCrowding {
		crowding = maxCrowding
	}
	return drawsPerPoint * n * int(crowding)
}
