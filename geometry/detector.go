package geometry

import (
	"fmt"
	"math"

	"github.com/zero-day-ai/bimq/element"
)

// DefaultTolerance is the slack applied to every axis by NewBoxDetector when
// a non-positive tolerance is given.
const DefaultTolerance = 1e-6

// Detector decides whether two bounding boxes are spatially adjacent.
// Implementations must be symmetric: Adjacent(a, b) == Adjacent(b, a).
type Detector interface {
	Adjacent(a, b element.BoundingBox) bool
}

// Bounded is implemented by detectors whose answer is false for any two
// boxes farther apart than Reach on some axis. Pairs uses it to prune
// candidates.
type Bounded interface {
	Detector
	Reach() float64
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(a, b element.BoundingBox) bool

// Adjacent calls f(a, b).
func (f DetectorFunc) Adjacent(a, b element.BoundingBox) bool {
	return f(a, b)
}

// Mode selects what BoxDetector counts as adjacency.
type Mode string

const (
	// ModeTouch accepts boxes that share a face, an edge or a vertex but
	// whose interiors are disjoint. A box nested inside another or two
	// interpenetrating boxes share no boundary and are not adjacent.
	ModeTouch Mode = "touch"

	// ModeOverlap accepts touching boxes and boxes whose volumes overlap.
	ModeOverlap Mode = "overlap"
)

// ParseMode maps a configuration string to a Mode. The empty string is
// ModeTouch.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeTouch:
		return ModeTouch, nil
	case ModeOverlap:
		return ModeOverlap, nil
	default:
		return "", fmt.Errorf("unknown adjacency mode %q", s)
	}
}

// BoxDetector tests bounding boxes with closed intervals widened by
// Tolerance on each axis.
type BoxDetector struct {
	Tolerance float64
	Mode      Mode
}

// NewBoxDetector returns a touch-mode detector with the given tolerance.
func NewBoxDetector(tolerance float64) BoxDetector {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return BoxDetector{Tolerance: tolerance, Mode: ModeTouch}
}

// WithMode returns a copy of d using mode m.
func (d BoxDetector) WithMode(m Mode) BoxDetector {
	d.Mode = m
	return d
}

// Adjacent reports whether a and b are adjacent under d.Mode.
func (d BoxDetector) Adjacent(a, b element.BoundingBox) bool {
	t := d.Tolerance
	if !overlaps(a.MinX, a.MaxX, b.MinX, b.MaxX, t) ||
		!overlaps(a.MinY, a.MaxY, b.MinY, b.MaxY, t) ||
		!overlaps(a.MinZ, a.MaxZ, b.MinZ, b.MaxZ, t) {
		return false
	}
	if d.Mode == ModeOverlap {
		return true
	}
	// Touching means the shared extent is flat on at least one axis.
	return depth(a.MinX, a.MaxX, b.MinX, b.MaxX) <= 2*t ||
		depth(a.MinY, a.MaxY, b.MinY, b.MaxY) <= 2*t ||
		depth(a.MinZ, a.MaxZ, b.MinZ, b.MaxZ) <= 2*t
}

// Reach returns the largest gap between two boxes that can still count as
// adjacent.
func (d BoxDetector) Reach() float64 {
	return 2 * d.Tolerance
}

// overlaps is written so swapping the two intervals evaluates the same
// comparisons.
func overlaps(aMin, aMax, bMin, bMax, tol float64) bool {
	return aMin-tol <= bMax+tol && bMin-tol <= aMax+tol
}

// depth is the length of the intersection of two intervals; negative when
// they are apart.
func depth(aMin, aMax, bMin, bMax float64) float64 {
	return math.Min(aMax, bMax) - math.Max(aMin, bMin)
}
