package element

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "rooms": [
    {"global_id": "R1", "name": "Kitchen", "BoundingBox": {"xmin":0,"ymin":0,"zmin":0,"xmax":10,"ymax":10,"zmax":3}, "adjacent_to": [], "contained_in": []},
    {"global_id": "R2", "name": null, "BoundingBox": {"xmin":10,"ymin":0,"zmin":0,"xmax":20,"ymax":10,"zmax":3}, "adjacent_to": [], "contained_in": []}
  ],
  "walls": [
    {"global_id": "W1", "name": "Basic Wall", "BoundingBox": {"xmin":5,"ymin":5,"zmin":0,"xmax":6,"ymax":6,"zmax":3},
     "props": {"load_bearing": true, "fire_rating": "REI60", "thickness": 0.2, "note": null},
     "adjacent_to": ["R1", "R1"], "contained_in": ["R1"]}
  ]
}`

func TestDecode(t *testing.T) {
	m, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []Category{CategoryRoom, CategoryWall}, m.Categories())

	var ids []string
	for _, el := range m.Elements() {
		ids = append(ids, el.GlobalID)
	}
	assert.Equal(t, []string{"R1", "R2", "W1"}, ids)

	w, ok := m.Lookup("W1")
	require.True(t, ok)
	assert.Equal(t, CategoryWall, w.Category)
	assert.Equal(t, "Basic Wall", w.Name)
	assert.True(t, w.Box.Valid())
	assert.Equal(t, []string{"R1"}, w.AdjacentTo.Slice())
	assert.Equal(t, []string{"R1"}, w.ContainedIn.Slice())

	lb, ok := w.Properties.Get("load_bearing")
	require.True(t, ok)
	assert.Equal(t, KindBool, lb.Kind())
	assert.Equal(t, "true", lb.String())

	th, ok := w.Properties.Get("thickness")
	require.True(t, ok)
	assert.Equal(t, "0.2", th.String())

	_, ok = w.Properties.Get("note")
	assert.False(t, ok, "null properties are dropped")
	assert.Equal(t, []string{"fire_rating", "load_bearing", "thickness"}, w.Properties.Keys())

	r2, ok := m.Lookup("R2")
	require.True(t, ok)
	assert.Empty(t, r2.Name)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "unknown collection",
			doc:     `{"windows": []}`,
			wantErr: ErrUnknownCategory,
		},
		{
			name:    "duplicate id across collections",
			doc:     `{"rooms": [{"global_id": "X"}], "walls": [{"global_id": "X"}]}`,
			wantErr: ErrDuplicateID,
		},
		{
			name:    "missing id",
			doc:     `{"doors": [{"name": "D"}]}`,
			wantErr: ErrMissingID,
		},
		{
			name:    "object property rejected",
			doc:     `{"doors": [{"global_id": "D1", "props": {"nested": {"a": 1}}}]}`,
			wantErr: ErrUnsupportedValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("not an object", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`[1,2]`))
		assert.Error(t, err)
	})
}

func TestDecode_MalformedBoxStillLoads(t *testing.T) {
	doc := `{"slabs": [
	  {"global_id": "S1", "BoundingBox": {"xmin": "a", "ymin":0,"zmin":0,"xmax":1,"ymax":1,"zmax":1}},
	  {"global_id": "S2"},
	  {"global_id": "S3", "BoundingBox": {"xmin":2,"ymin":0,"zmin":0,"xmax":1,"ymax":1,"zmax":1}},
	  {"global_id": "S4", "BoundingBox": {"xmin":0,"ymin":0,"zmin":0,"xmax":1,"ymax":1}}
	]}`
	m, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 4, m.Len())

	s1, _ := m.Lookup("S1")
	assert.ErrorIs(t, s1.Box.Validate(), ErrInvalidBox)

	s2, _ := m.Lookup("S2")
	assert.ErrorIs(t, s2.Box.Validate(), ErrMissingBox)

	s3, _ := m.Lookup("S3")
	assert.ErrorIs(t, s3.Box.Validate(), ErrInvalidBox)

	s4, _ := m.Lookup("S4")
	assert.ErrorIs(t, s4.Box.Validate(), ErrInvalidBox)
}

func TestBoundingBox_Validate(t *testing.T) {
	tests := []struct {
		name  string
		box   BoundingBox
		valid bool
	}{
		{"unit", Box(0, 0, 0, 1, 1, 1), true},
		{"degenerate plane", Box(0, 0, 0, 0, 1, 1), true},
		{"inverted y", Box(0, 2, 0, 1, 1, 1), false},
		{"nan", Box(math.NaN(), 0, 0, 1, 1, 1), false},
		{"inf", Box(0, 0, 0, 1, math.Inf(1), 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.box.Valid())
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
	}{
		{"walls", CategoryWall},
		{"Wall", CategoryWall},
		{"SLABS", CategorySlab},
		{"rooms", CategoryRoom},
		{"IfcSpace", CategoryRoom},
		{"doors", CategoryDoor},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCategory("stairs")
	assert.True(t, errors.Is(err, ErrUnknownCategory))
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(3)
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())

	v, err = ValueOf(false)
	require.NoError(t, err)
	assert.Equal(t, "false", v.String())

	_, err = ValueOf([]string{"a"})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestRelationSet(t *testing.T) {
	var s RelationSet
	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, []string{"a", "b"}, s.Slice())
	assert.True(t, s.Contains("b"))
	assert.False(t, s.Contains("c"))

	c := s.Clone()
	c.Add("c")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, c.Len())
}

func TestElement_CloneIsDeep(t *testing.T) {
	el := New("D1", CategoryDoor, "Door", Box(0, 0, 0, 1, 1, 2)).
		WithProperty("fire_rating", String("EI30")).
		WithContainedIn("W1")

	c := el.Clone()
	c.ContainedIn.Add("W2")
	c.Properties["fire_rating"] = String("EI60")

	assert.Equal(t, []string{"W1"}, el.ContainedIn.Slice())
	v, _ := el.Properties.Get("fire_rating")
	assert.Equal(t, "EI30", v.String())
}

func TestModel_RoundTripFile(t *testing.T) {
	m, err := Decode(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.Categories(), loaded.Categories())
	assert.Equal(t, m.Len(), loaded.Len())

	w, ok := loaded.Lookup("W1")
	require.True(t, ok)
	assert.True(t, w.Box.Equal(Box(5, 5, 0, 6, 6, 3)))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
