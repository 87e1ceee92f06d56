package geometry

import "gonum.org/v1/gonum/spatial/r2"

// Rect is an axis-aligned rectangle in image pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a new Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// CenteredSquare returns the square of the given side centered on c.
func CenteredSquare(c r2.Vec, side float64) Rect {
	return Rect{X: c.X - side/2, Y: c.Y - side/2, Width: side, Height: side}
}

// Center returns the center point of the rectangle.
func (r Rect) Center() r2.Vec {
	return r2.Vec{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Max returns the bottom-right corner.
func (r Rect) Max() r2.Vec {
	return r2.Vec{X: r.X + r.Width, Y: r.Y + r.Height}
}

// ContainsPoint reports whether p lies in [X, X+Width) x [Y, Y+Height).
func (r Rect) ContainsPoint(p r2.Vec) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}
