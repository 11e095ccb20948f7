package geometry

import (
	"context"
	"sort"

	"github.com/tidwall/btree"

	"github.com/zero-day-ai/bimq/element"
)

// Pair holds the indexes of two adjacent boxes, lower index first.
type Pair [2]int

// sweepItem is one box in the sweep index.
type sweepItem struct {
	MinX  float64
	Index int
}

func sweepLess(a, b sweepItem) bool {
	if a.MinX < b.MinX {
		return true
	}
	if a.MinX > b.MinX {
		return false
	}
	return a.Index < b.Index
}

// checkEvery is how many candidate tests run between context checks.
const checkEvery = 1024

// Pairs returns every unordered adjacent pair of boxes, sorted by (i, j).
// Boxes that fail validation never appear in a pair.
func Pairs(boxes []element.BoundingBox, d Detector) []Pair {
	pairs, _ := PairsContext(context.Background(), boxes, d)
	return pairs
}

// PairsContext is Pairs with cancellation. On cancellation it returns the
// context error and no pairs.
func PairsContext(ctx context.Context, boxes []element.BoundingBox, d Detector) ([]Pair, error) {
	b, ok := d.(Bounded)
	if !ok {
		return bruteForce(ctx, boxes, d)
	}
	reach := b.Reach()

	// The index is local to this call and scanned while nested ascends run.
	tree := btree.NewBTreeGOptions[sweepItem](sweepLess, btree.Options{NoLocks: true})
	for i, box := range boxes {
		if box.Valid() {
			tree.Set(sweepItem{MinX: box.MinX, Index: i})
		}
	}

	var (
		pairs []Pair
		tests int
		err   error
	)
	tree.Scan(func(cur sweepItem) bool {
		a := boxes[cur.Index]
		limit := a.MaxX + reach
		tree.Ascend(cur, func(next sweepItem) bool {
			if next.Index == cur.Index {
				return true
			}
			if next.MinX > limit {
				return false
			}
			tests++
			if tests%checkEvery == 0 {
				if err = ctx.Err(); err != nil {
					return false
				}
			}
			if d.Adjacent(a, boxes[next.Index]) {
				pairs = append(pairs, ordered(cur.Index, next.Index))
			}
			return true
		})
		return err == nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	sortPairs(pairs)
	return pairs, nil
}

// BruteForcePairs tests every unordered pair of valid boxes.
func BruteForcePairs(boxes []element.BoundingBox, d Detector) []Pair {
	pairs, _ := bruteForce(context.Background(), boxes, d)
	return pairs
}

func bruteForce(ctx context.Context, boxes []element.BoundingBox, d Detector) ([]Pair, error) {
	var pairs []Pair
	for i := 0; i < len(boxes); i++ {
		if !boxes[i].Valid() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i + 1; j < len(boxes); j++ {
			if !boxes[j].Valid() {
				continue
			}
			if d.Adjacent(boxes[i], boxes[j]) {
				pairs = append(pairs, Pair{i, j})
			}
		}
	}
	return pairs, nil
}

func ordered(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{i, j}
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a][0] != pairs[b][0] {
			return pairs[a][0] < pairs[b][0]
		}
		return pairs[a][1] < pairs[b][1]
	})
}
