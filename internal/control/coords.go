package control

import "math"

// Point is a position normalized to [0,1]x[0,1].
type Point struct {
	X float64
	Y float64
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultScreen is assumed when the local screen size cannot be read.
var DefaultScreen = Size{Width: 1920, Height: 1080}

func (s Size) Valid() bool { return s.Width > 0 && s.Height > 0 }

// Normalize maps a position on a surface of the given size into [0,1].
func Normalize(px, py float64, surface Size) Point {
	if !surface.Valid() {
		return Point{}
	}
	return Point{
		X: clamp01(px / float64(surface.Width)),
		Y: clamp01(py / float64(surface.Height)),
	}
}

// Denormalize maps p onto screen pixels, rounding half away from zero and
// keeping the result on screen.
func Denormalize(p Point, screen Size) (int, int) {
	return scale(p.X, screen.Width), scale(p.Y, screen.Height)
}

func scale(v float64, extent int) int {
	if extent <= 0 {
		return 0
	}
	px := int(math.Round(clamp01(v) * float64(extent)))
	if px > extent-1 {
		px = extent - 1
	}
	return px
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
