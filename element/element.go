package element

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Element is a single building component record.
type Element struct {
	// GlobalID is the model-wide unique identifier (the IFC GlobalId).
	GlobalID string

	// Category comes from the collection the element was declared in.
	Category Category

	// Name is the optional display name.
	Name string

	// Box is the element's axis-aligned bounding volume.
	Box BoundingBox

	// Properties holds typed property values such as load_bearing or fire_rating.
	Properties Properties

	// AdjacentTo lists elements sharing geometry with this one. The relation
	// is symmetric once the graph has been built.
	AdjacentTo RelationSet

	// ContainedIn lists elements this element is spatially or logically inside.
	ContainedIn RelationSet
}

// New creates an element with empty relation sets and properties.
func New(id string, category Category, name string, box BoundingBox) Element {
	return Element{
		GlobalID:   id,
		Category:   category,
		Name:       name,
		Box:        box,
		Properties: make(Properties),
	}
}

// WithProperty sets a property and returns the element for chaining.
func (e Element) WithProperty(name string, v Value) Element {
	e.Properties = e.Properties.Clone()
	if e.Properties == nil {
		e.Properties = make(Properties)
	}
	e.Properties[name] = v
	return e
}

// WithContainedIn appends containment targets and returns the element for chaining.
func (e Element) WithContainedIn(ids ...string) Element {
	e.ContainedIn = e.ContainedIn.Clone()
	for _, id := range ids {
		e.ContainedIn.Add(id)
	}
	return e
}

// WithAdjacentTo appends declared adjacency targets and returns the element for chaining.
func (e Element) WithAdjacentTo(ids ...string) Element {
	e.AdjacentTo = e.AdjacentTo.Clone()
	for _, id := range ids {
		e.AdjacentTo.Add(id)
	}
	return e
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	e.Properties = e.Properties.Clone()
	e.AdjacentTo = e.AdjacentTo.Clone()
	e.ContainedIn = e.ContainedIn.Clone()
	return e
}

// record is the on-disk shape of an element.
type record struct {
	GlobalID    string       `json:"global_id"`
	Name        *string      `json:"name"`
	Box         *BoundingBox `json:"BoundingBox"`
	Props       Properties   `json:"props,omitempty"`
	AdjacentTo  RelationSet  `json:"adjacent_to"`
	ContainedIn RelationSet  `json:"contained_in"`
}

func (e Element) toRecord() record {
	name := e.Name
	box := e.Box
	return record{
		GlobalID:    e.GlobalID,
		Name:        &name,
		Box:         &box,
		Props:       e.Properties,
		AdjacentTo:  e.AdjacentTo,
		ContainedIn: e.ContainedIn,
	}
}

func fromRecord(r record, c Category) Element {
	el := Element{
		GlobalID:    r.GlobalID,
		Category:    c,
		Properties:  r.Props,
		AdjacentTo:  r.AdjacentTo,
		ContainedIn: r.ContainedIn,
	}
	if el.Properties == nil {
		el.Properties = make(Properties)
	}
	if r.Name != nil {
		el.Name = *r.Name
	}
	if r.Box != nil {
		el.Box = *r.Box
	} else {
		el.Box = missingBox()
	}
	return el
}

// Model is an ordered, categorized collection of elements.
// Categories keep the order they were first seen in; elements keep their
// declaration order within a category.
type Model struct {
	order      []Category
	byCategory map[Category][]Element
	index      map[string]struct{}
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{
		byCategory: make(map[Category][]Element),
		index:      make(map[string]struct{}),
	}
}

// Add appends an element to its category collection.
func (m *Model) Add(el Element) error {
	if el.GlobalID == "" {
		return ErrMissingID
	}
	if !el.Category.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, el.Category)
	}
	if _, dup := m.index[el.GlobalID]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.GlobalID)
	}
	if _, seen := m.byCategory[el.Category]; !seen {
		m.order = append(m.order, el.Category)
	}
	m.byCategory[el.Category] = append(m.byCategory[el.Category], el.Clone())
	m.index[el.GlobalID] = struct{}{}
	return nil
}

// MustAdd is like Add but panics on error. Intended for tests and fixtures.
func (m *Model) MustAdd(els ...Element) *Model {
	for _, el := range els {
		if err := m.Add(el); err != nil {
			panic(err)
		}
	}
	return m
}

// Categories returns the categories present, in first-seen order.
func (m *Model) Categories() []Category {
	out := make([]Category, len(m.order))
	copy(out, m.order)
	return out
}

// ByCategory returns copies of the elements declared in c.
func (m *Model) ByCategory(c Category) []Element {
	src := m.byCategory[c]
	out := make([]Element, len(src))
	for i, el := range src {
		out[i] = el.Clone()
	}
	return out
}

// Elements returns copies of all elements in stable order.
func (m *Model) Elements() []Element {
	out := make([]Element, 0, m.Len())
	for _, c := range m.order {
		for _, el := range m.byCategory[c] {
			out = append(out, el.Clone())
		}
	}
	return out
}

// Len returns the number of elements.
func (m *Model) Len() int {
	return len(m.index)
}

// Contains reports whether an element with the given id exists.
func (m *Model) Contains(id string) bool {
	_, ok := m.index[id]
	return ok
}

// Lookup returns a copy of the element with the given id.
func (m *Model) Lookup(id string) (Element, bool) {
	if !m.Contains(id) {
		return Element{}, false
	}
	for _, c := range m.order {
		for _, el := range m.byCategory[c] {
			if el.GlobalID == id {
				return el.Clone(), true
			}
		}
	}
	return Element{}, false
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	out := NewModel()
	for _, el := range m.Elements() {
		_ = out.Add(el)
	}
	return out
}

// collectionKey returns the plural key used when writing a category.
func collectionKey(c Category) string {
	return string(c) + "s"
}

// MarshalJSON writes the categorized document, categories in model order.
func (m *Model) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range m.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(collectionKey(c))
		buf.Write(key)
		buf.WriteByte(':')
		recs := make([]record, 0, len(m.byCategory[c]))
		for _, el := range m.byCategory[c] {
			recs = append(recs, el.toRecord())
		}
		data, err := json.Marshal(recs)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode reads a categorized element document. Collection order in the
// document is preserved.
func Decode(r io.Reader) (*Model, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("read model: expected object, got %v", tok)
	}

	m := NewModel()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read model: %w", err)
		}
		key, _ := tok.(string)
		category, err := ParseCategory(key)
		if err != nil {
			return nil, err
		}
		var recs []record
		if err := dec.Decode(&recs); err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if _, seen := m.byCategory[category]; !seen {
			m.order = append(m.order, category)
			m.byCategory[category] = []Element{}
		}
		for i, rec := range recs {
			if rec.GlobalID == "" {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, ErrMissingID)
			}
			if err := m.Add(fromRecord(rec, category)); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return m, nil
}

// LoadFile reads a model document from disk.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}
