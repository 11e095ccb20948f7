package graph

import (
	"sort"

	"github.com/zero-day-ai/bimq/element"
)

// MaxSchemaNames caps the number of display names listed in a Schema.
const MaxSchemaNames = 200

// KindMixed is reported for a property observed with more than one value kind.
const KindMixed = "mixed"

// Schema summarises what a graph contains. It is handed to the intent
// resolver and query repairer so they only emit categories, relations and
// attributes that exist.
type Schema struct {
	// Categories lists the distinct node categories, sorted.
	Categories []string `json:"categories"`

	// Relations lists the relation labels: the built-in labels plus any label
	// present on an edge, sorted.
	Relations []string `json:"edge_types"`

	// Properties maps each observed property name to its value kind
	// ("boolean", "number", "string" or "mixed").
	Properties map[string]string `json:"node_attributes"`

	// Names lists distinct node display names in graph order, capped at
	// MaxSchemaNames.
	Names []string `json:"node_names"`
}

// HasCategory reports whether c is a category of the graph.
func (s Schema) HasCategory(c string) bool {
	return contains(s.Categories, c)
}

// HasRelation reports whether rel is a known relation label.
func (s Schema) HasRelation(rel string) bool {
	return contains(s.Relations, rel)
}

// PropertyKind returns the observed kind of a property.
func (s Schema) PropertyKind(name string) (string, bool) {
	k, ok := s.Properties[name]
	return k, ok
}

// PropertyNames returns the property names, sorted.
func (s Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for n := range s.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s Schema) clone() Schema {
	out := Schema{
		Categories: append([]string(nil), s.Categories...),
		Relations:  append([]string(nil), s.Relations...),
		Names:      append([]string(nil), s.Names...),
		Properties: make(map[string]string, len(s.Properties)),
	}
	for k, v := range s.Properties {
		out.Properties[k] = v
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// computeSchema derives the schema summary from nodes and edges.
func computeSchema(nodes []Node, edges []Edge) Schema {
	cats := make(map[string]struct{})
	rels := map[string]struct{}{
		string(AdjacentTo):  {},
		string(ContainedIn): {},
	}
	kinds := make(map[string]element.Kind)
	mixed := make(map[string]bool)
	seenName := make(map[string]struct{})
	var names []string

	for _, n := range nodes {
		cats[n.Category.String()] = struct{}{}
		for name, v := range n.Properties {
			if !v.IsValid() {
				continue
			}
			if k, ok := kinds[name]; ok && k != v.Kind() {
				mixed[name] = true
			}
			kinds[name] = v.Kind()
		}
		if n.Name == "" {
			continue
		}
		if _, ok := seenName[n.Name]; ok || len(names) >= MaxSchemaNames {
			continue
		}
		seenName[n.Name] = struct{}{}
		names = append(names, n.Name)
	}
	for _, e := range edges {
		rels[string(e.Relation)] = struct{}{}
	}

	props := make(map[string]string, len(kinds))
	for name, k := range kinds {
		if mixed[name] {
			props[name] = KindMixed
			continue
		}
		props[name] = k.String()
	}

	return Schema{
		Categories: sortedKeys(cats),
		Relations:  sortedKeys(rels),
		Properties: props,
		Names:      names,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
