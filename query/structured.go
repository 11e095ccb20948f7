package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zero-day-ai/bimq/element"
	"github.com/zero-day-ai/bimq/graph"
)

// Structured is the normalized filter and relation description consumed by
// Execute.
type Structured struct {
	// Categories lists the node categories to match.
	Categories []string `json:"category"`

	// IncludeNames lists substrings matched against node names, ignoring case.
	IncludeNames []string `json:"include_node_names"`

	// AttributeFilters maps attribute or property names to required values.
	AttributeFilters map[string]string `json:"filter"`

	// Relation restricts result edges to one relation label.
	Relation string `json:"relation"`

	// Explanation is free text from the collaborator that produced the query.
	// It does not affect matching.
	Explanation string `json:"explanation,omitempty"`
}

// IsEmpty reports whether the query specifies nothing at all.
func (q Structured) IsEmpty() bool {
	return len(q.Categories) == 0 &&
		len(q.IncludeNames) == 0 &&
		len(q.AttributeFilters) == 0 &&
		q.Relation == ""
}

// Clone returns a deep copy.
func (q Structured) Clone() Structured {
	out := q
	out.Categories = append([]string(nil), q.Categories...)
	out.IncludeNames = append([]string(nil), q.IncludeNames...)
	if q.AttributeFilters != nil {
		out.AttributeFilters = make(map[string]string, len(q.AttributeFilters))
		for k, v := range q.AttributeFilters {
			out.AttributeFilters[k] = v
		}
	}
	return out
}

// Normalize returns a cleaned copy: values trimmed, empty entries dropped,
// categories lowercased and mapped to canonical names when recognised
// ("Walls" becomes "wall"), duplicates removed and the relation lowercased.
func (q Structured) Normalize() Structured {
	out := Structured{Explanation: strings.TrimSpace(q.Explanation)}

	seen := make(map[string]struct{})
	for _, c := range q.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if cat, err := element.ParseCategory(c); err == nil {
			c = cat.String()
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out.Categories = append(out.Categories, c)
	}

	seenName := make(map[string]struct{})
	for _, n := range q.IncludeNames {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" {
			continue
		}
		if _, dup := seenName[key]; dup {
			continue
		}
		seenName[key] = struct{}{}
		out.IncludeNames = append(out.IncludeNames, n)
	}

	for k, v := range q.AttributeFilters {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if out.AttributeFilters == nil {
			out.AttributeFilters = make(map[string]string)
		}
		out.AttributeFilters[k] = strings.TrimSpace(v)
	}

	out.Relation = strings.ToLower(strings.TrimSpace(q.Relation))
	return out
}

// Validate checks the query against a schema summary and returns warnings
// for categories, relations and attributes the graph does not contain.
// Warnings are advisory; Execute still runs such queries and simply matches
// less.
func (q Structured) Validate(s graph.Schema) []string {
	var warnings []string
	for _, c := range q.Categories {
		if !s.HasCategory(strings.ToLower(c)) {
			warnings = append(warnings, fmt.Sprintf("unknown category %q", c))
		}
	}
	if q.Relation != "" && !s.HasRelation(q.Relation) {
		warnings = append(warnings, fmt.Sprintf("unknown relation %q", q.Relation))
	}
	keys := make([]string, 0, len(q.AttributeFilters))
	for k := range q.AttributeFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isTopLevel(k) {
			continue
		}
		if _, ok := s.PropertyKind(k); !ok {
			warnings = append(warnings, fmt.Sprintf("unknown attribute %q", k))
		}
	}
	return warnings
}

// String renders the query as compact JSON for logs and audit entries.
func (q Structured) String() string {
	data, _ := json.Marshal(q)
	return string(data)
}

// wireQuery accepts the shapes collaborators emit in practice: single
// strings where lists are expected, the plural relations list, the
// include_node_types alias used by repair output, and non-string filter
// values.
type wireQuery struct {
	Category         flexList                   `json:"category"`
	Categories       flexList                   `json:"categories"`
	IncludeNodeTypes flexList                   `json:"include_node_types"`
	IncludeNames     flexList                   `json:"include_node_names"`
	Names            flexList                   `json:"include_names"`
	Filter           map[string]json.RawMessage `json:"filter"`
	AttributeFilters map[string]json.RawMessage `json:"attribute_filters"`
	Relation         flexList                   `json:"relation"`
	Relations        flexList                   `json:"relations"`
	Explanation      string                     `json:"explanation"`
}

// UnmarshalJSON decodes the structured query leniently. Unknown keys are
// ignored. Filter values may be strings, booleans or numbers; objects and
// arrays are rejected.
func (q *Structured) UnmarshalJSON(data []byte) error {
	var w wireQuery
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}

	out := Structured{Explanation: w.Explanation}
	out.Categories = append(append(append(out.Categories, w.Category...), w.Categories...), w.IncludeNodeTypes...)
	out.IncludeNames = append(append(out.IncludeNames, w.IncludeNames...), w.Names...)

	for _, src := range []map[string]json.RawMessage{w.Filter, w.AttributeFilters} {
		for k, raw := range src {
			var v element.Value
			if err := v.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("%w: filter %q: %v", ErrMalformedQuery, k, err)
			}
			if !v.IsValid() {
				continue
			}
			if out.AttributeFilters == nil {
				out.AttributeFilters = make(map[string]string)
			}
			out.AttributeFilters[k] = v.String()
		}
	}

	switch {
	case len(w.Relation) > 0:
		out.Relation = w.Relation[0]
	case len(w.Relations) > 0:
		out.Relation = w.Relations[0]
	}

	*q = out
	return nil
}

// Parse decodes a structured query document.
func Parse(data []byte) (Structured, error) {
	var q Structured
	if err := json.Unmarshal(bytes.TrimSpace(data), &q); err != nil {
		if !errors.Is(err, ErrMalformedQuery) {
			err = fmt.Errorf("%w: %v", ErrMalformedQuery, err)
		}
		return Structured{}, err
	}
	return q, nil
}

// flexList decodes a JSON string, array of strings or null.
type flexList []string

func (l *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = flexList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

func isTopLevel(key string) bool {
	switch key {
	case "id", "global_id", "name", "category":
		return true
	default:
		return false
	}
}
