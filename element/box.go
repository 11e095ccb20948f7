package element

import (
	"encoding/json"
	"fmt"
	"math"
)

// BoundingBox is an axis-aligned bounding volume given by its minimum and
// maximum corner.
type BoundingBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64

	// invalid holds the decode failure for boxes whose source data was not
	// numeric or incomplete. Such boxes still load so the element can become
	// an isolated graph node.
	invalid error
}

// Box is a convenience constructor taking the six scalars in
// min-x, min-y, min-z, max-x, max-y, max-z order.
func Box(minX, minY, minZ, maxX, maxY, maxZ float64) BoundingBox {
	return BoundingBox{MinX: minX, MinY: minY, MinZ: minZ, MaxX: maxX, MaxY: maxY, MaxZ: maxZ}
}

// missingBox returns a box that fails validation with ErrMissingBox.
func missingBox() BoundingBox {
	return BoundingBox{invalid: ErrMissingBox}
}

// Validate reports whether the box can take part in adjacency testing.
// It fails on undecodable source data, non-finite values, or min > max on
// any axis.
func (b BoundingBox) Validate() error {
	if b.invalid != nil {
		return b.invalid
	}
	axes := [3]struct {
		name     string
		min, max float64
	}{
		{"x", b.MinX, b.MaxX},
		{"y", b.MinY, b.MaxY},
		{"z", b.MinZ, b.MaxZ},
	}
	for _, a := range axes {
		if !finite(a.min) || !finite(a.max) {
			return fmt.Errorf("%w: non-finite value on %s axis", ErrInvalidBox, a.name)
		}
		if a.min > a.max {
			return fmt.Errorf("%w: min %g > max %g on %s axis", ErrInvalidBox, a.min, a.max, a.name)
		}
	}
	return nil
}

// Valid is shorthand for Validate() == nil.
func (b BoundingBox) Valid() bool {
	return b.Validate() == nil
}

// Equal compares the six scalars.
func (b BoundingBox) Equal(o BoundingBox) bool {
	return b.MinX == o.MinX && b.MinY == o.MinY && b.MinZ == o.MinZ &&
		b.MaxX == o.MaxX && b.MaxY == o.MaxY && b.MaxZ == o.MaxZ
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var boxKeys = [6]string{"xmin", "ymin", "zmin", "xmax", "ymax", "zmax"}

// MarshalJSON writes the box in the ingestion format.
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{
		"xmin": b.MinX, "ymin": b.MinY, "zmin": b.MinZ,
		"xmax": b.MaxX, "ymax": b.MaxY, "zmax": b.MaxZ,
	})
}

// UnmarshalJSON reads the ingestion format. Non-numeric or missing scalars do
// not fail decoding; they mark the box invalid so Validate reports them.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*b = BoundingBox{invalid: fmt.Errorf("%w: bounding box is not an object", ErrInvalidBox)}
		return nil
	}

	var vals [6]float64
	for i, key := range boxKeys {
		v, ok := raw[key]
		if !ok {
			*b = BoundingBox{invalid: fmt.Errorf("%w: missing %s", ErrInvalidBox, key)}
			return nil
		}
		if err := json.Unmarshal(v, &vals[i]); err != nil {
			*b = BoundingBox{invalid: fmt.Errorf("%w: %s is not numeric", ErrInvalidBox, key)}
			return nil
		}
	}
	*b = Box(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5])
	return nil
}
