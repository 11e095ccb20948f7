package element

import "encoding/json"

// RelationSet is an insertion-ordered set of element identifiers.
// The zero value is an empty set ready to use.
type RelationSet struct {
	order []string
	index map[string]struct{}
}

// NewRelationSet creates a set holding ids, dropping duplicates.
func NewRelationSet(ids ...string) RelationSet {
	var s RelationSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s *RelationSet) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Contains reports whether id is in the set.
func (s RelationSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of identifiers.
func (s RelationSet) Len() int {
	return len(s.order)
}

// Slice returns the identifiers in insertion order. The slice is a copy.
func (s RelationSet) Slice() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Clone returns an independent copy.
func (s RelationSet) Clone() RelationSet {
	return NewRelationSet(s.order...)
}

// MarshalJSON encodes the set as an array.
func (s RelationSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of identifiers, dropping duplicates.
func (s *RelationSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewRelationSet(ids...)
	return nil
}
