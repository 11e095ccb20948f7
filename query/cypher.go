package query

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ElementLabel is the label carried by every exported element node.
const ElementLabel = "Element"

// Op is a predicate operation in a generated WHERE clause.
type Op int

const (
	// Eq compares a field for equality (=).
	Eq Op = iota
	// In checks membership in a list parameter (IN).
	In
	// ContainsAny checks that the lowercased field contains any of the
	// lowercased strings in a list parameter.
	ContainsAny
	// EqualFold compares the lowercased string form of a dynamically named
	// property with a lowercased parameter. Field holds the property name
	// and is passed as a parameter too.
	EqualFold
)

// Predicate is one condition on the matched node.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Group is a set of predicates combined with OR. Groups are combined with AND.
type Group []Predicate

// BuildMatch generates a MATCH clause for a node with the given label and alias.
//
//	BuildMatch("Element", "n") // "MATCH (n:Element)"
func BuildMatch(label, alias string) string {
	return fmt.Sprintf("MATCH (%s:%s)", alias, label)
}

// BuildWhere generates a WHERE clause from predicate groups with
// parameterized values named $p0, $p1 and so on. It returns an empty string
// and nil params when there are no predicates.
//
//	where, params := BuildWhere([]Group{
//	    {{Field: "category", Op: In, Value: []string{"room"}}},
//	}, "n")
//	// where:  "WHERE (n.category IN $p0)"
//	// params: {"p0": []string{"room"}}
func BuildWhere(groups []Group, alias string) (string, map[string]any) {
	params := make(map[string]any)
	var clauses []string

	for _, group := range groups {
		var conds []string
		for _, pred := range group {
			conds = append(conds, buildCondition(pred, alias, params))
		}
		if len(conds) > 0 {
			clauses = append(clauses, "("+strings.Join(conds, " OR ")+")")
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), params
}

// buildCondition renders one predicate and registers its parameters.
func buildCondition(pred Predicate, alias string, params map[string]any) string {
	next := func(v any) string {
		name := fmt.Sprintf("p%d", len(params))
		params[name] = v
		return name
	}
	fieldRef := fmt.Sprintf("%s.%s", alias, pred.Field)

	switch pred.Op {
	case In:
		return fmt.Sprintf("%s IN $%s", fieldRef, next(pred.Value))
	case ContainsAny:
		return fmt.Sprintf("any(s IN $%s WHERE toLower(%s) CONTAINS s)", next(pred.Value), fieldRef)
	case EqualFold:
		key := next(pred.Field)
		return fmt.Sprintf("toLower(toString(%s[$%s])) = $%s", alias, key, next(pred.Value))
	default:
		return fmt.Sprintf("%s = $%s", fieldRef, next(pred.Value))
	}
}

// BuildReturn generates a RETURN clause. Each field is returned under its
// own name; an empty field list returns the node.
//
//	BuildReturn("n", []string{"global_id"}) // "RETURN n.global_id AS global_id"
func BuildReturn(alias string, fields []string) string {
	if len(fields) == 0 {
		return fmt.Sprintf("RETURN %s", alias)
	}
	refs := make([]string, 0, len(fields))
	for _, f := range fields {
		refs = append(refs, fmt.Sprintf("%s.%s AS %s", alias, f, f))
	}
	return "RETURN " + strings.Join(refs, ", ")
}

// BuildRelated generates the optional undirected traversal from alias to
// other under a relationship type, restricted to nodes in the named list.
//
//	BuildRelated("n", "ADJACENT_TO", "m", "selected")
//	// "OPTIONAL MATCH (n)-[:ADJACENT_TO]-(m:Element) WHERE m IN selected"
func BuildRelated(alias, relType, other, within string) string {
	return fmt.Sprintf("OPTIONAL MATCH (%s)-[:%s]-(%s:%s) WHERE %s IN %s",
		alias, relType, other, ElementLabel, other, within)
}

// RelationshipType converts a relation label to a Cypher relationship type:
// upper case with any character outside [A-Z0-9_] replaced by '_'.
func RelationshipType(rel string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(rel) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	if b.Len() == 0 {
		return "RELATED_TO"
	}
	return b.String()
}

// CategoryLabel converts a category name to a node label ("room" becomes "Room").
func CategoryLabel(category string) string {
	if category == "" {
		return ""
	}
	r := []rune(strings.ToLower(category))
	r[0] = unicode.ToUpper(r[0])
	for i, c := range r {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) {
			r[i] = '_'
		}
	}
	return string(r)
}

// Cypher renders q as a parameterised statement over the exported graph.
// Rows carry the selected node id and, when q.Relation is set, the ids of
// related selected nodes.
func Cypher(q Structured) (string, map[string]any) {
	if q.IsEmpty() {
		return BuildMatch(ElementLabel, "n") + " WHERE false " + BuildReturn("n", []string{"global_id"}), map[string]any{}
	}

	var groups []Group
	var candidate Group
	if len(q.Categories) > 0 {
		cats := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			cats[i] = strings.ToLower(c)
		}
		candidate = append(candidate, Predicate{Field: "category", Op: In, Value: cats})
	}
	if len(q.IncludeNames) > 0 {
		names := make([]string, len(q.IncludeNames))
		for i, n := range q.IncludeNames {
			names[i] = strings.ToLower(n)
		}
		candidate = append(candidate, Predicate{Field: "name", Op: ContainsAny, Value: names})
	}
	if len(candidate) > 0 {
		groups = append(groups, candidate)
	}

	keys := make([]string, 0, len(q.AttributeFilters))
	for k := range q.AttributeFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		field := k
		if k == "id" {
			field = "global_id"
		}
		groups = append(groups, Group{{Field: field, Op: EqualFold, Value: strings.ToLower(q.AttributeFilters[k])}})
	}

	where, params := BuildWhere(groups, "n")
	if params == nil {
		params = map[string]any{}
	}

	parts := []string{BuildMatch(ElementLabel, "n")}
	if where != "" {
		parts = append(parts, where)
	}
	if q.Relation == "" {
		parts = append(parts, BuildReturn("n", []string{"global_id"}))
		return strings.Join(parts, " "), params
	}

	parts = append(parts,
		"WITH collect(n) AS selected",
		"UNWIND selected AS n",
		BuildRelated("n", RelationshipType(q.Relation), "m", "selected"),
		"RETURN n.global_id AS global_id, collect(DISTINCT m.global_id) AS related",
	)
	return strings.Join(parts, " "), params
}
