// Package geometry decides spatial adjacency between element bounding boxes.
//
// Two boxes are adjacent when they share a face, an edge or a vertex. The
// default BoxDetector approximates this with an interval test on each axis,
// widened by a small tolerance to absorb floating point noise from the
// source model. In ModeTouch, the default, boxes whose interiors overlap are
// not adjacent, which mirrors a shared-boundary test on the derived solids.
// ModeOverlap also accepts overlapping volumes.
//
// Pairs enumerates every unordered adjacent pair of a box set. When the
// detector exposes its reach (see Bounded), candidates are pruned with a
// sweep over a B-tree ordered by the minimum X coordinate, so only boxes
// whose X extents can touch are tested:
//
//	d := geometry.NewBoxDetector(1e-6)
//	for _, p := range geometry.Pairs(boxes, d) {
//	    fmt.Println(p[0], p[1])
//	}
package geometry
