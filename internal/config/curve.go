package config

import (
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// Point is one (x, y) control point of a Curve. In YAML it is written as a
// two-element sequence: [x, y].
type Point struct {
	X float64
	Y float64
}

// UnmarshalYAML decodes a point from a [x, y] pair.
func (p *Point) UnmarshalYAML(value *yaml.Node) error {
	var pair []float64
	if err := value.Decode(&pair); err != nil {
		return fmt.Errorf("line %d: curve point must be [x, y]: %w", value.Line, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line %d: curve point must have 2 elements, got %d", value.Line, len(pair))
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes the point as a [x, y] pair.
func (p Point) MarshalYAML() (any, error) {
	return []float64{p.X, p.Y}, nil
}

// Curve is a piecewise-linear function over control points sorted by
// strictly increasing X. Outside the first and last point it is flat.
type Curve struct {
	Points []Point `yaml:"points"`
}

// Linear returns a two-point curve from (x0, y0) to (x1, y1).
func Linear(x0, y0, x1, y1 float64) Curve {
	return Curve{Points: []Point{{X: x0, Y: y0}, {X: x1, Y: y1}}}
}

// Eval returns the curve's value at x. An empty curve evaluates to 0.
func (c Curve) Eval(x float64) float64 {
	pts := c.Points
	switch {
	case len(pts) == 0:
		return 0
	case x <= pts[0].X:
		return pts[0].Y
	case x >= pts[len(pts)-1].X:
		return pts[len(pts)-1].Y
	}

	// First point strictly right of x; x lies in [pts[i-1].X, pts[i].X).
	i := sort.Search(len(pts), func(i int) bool { return pts[i].X > x })
	a, b := pts[i-1], pts[i]
	t := (x - a.X) / (b.X - a.X)
	return a.Y + t*(b.Y-a.Y)
}

// validate checks that X is strictly increasing and every coordinate is finite.
func (c Curve) validate(field string, errs *Errors) {
	for i, p := range c.Points {
		if !finite(p.X) || !finite(p.Y) {
			errs.add(ErrCodeInvalidScoring, fmt.Sprintf("%s.points[%d]", field, i), "coordinates must be finite")
			continue
		}
		if i > 0 && p.X <= c.Points[i-1].X {
			errs.add(ErrCodeInvalidScoring, fmt.Sprintf("%s.points[%d]", field, i),
				fmt.Sprintf("x must be strictly increasing (%g after %g)", p.X, c.Points[i-1].X))
		}
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
