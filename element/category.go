package element

import (
	"fmt"
	"strings"
)

// Category is the closed enumeration of element kinds understood by the graph.
type Category string

const (
	// CategoryWall represents walls (IfcWall).
	CategoryWall Category = "wall"

	// CategorySlab represents floor and roof slabs (IfcSlab).
	CategorySlab Category = "slab"

	// CategoryRoom represents spaces (IfcSpace).
	CategoryRoom Category = "room"

	// CategoryDoor represents doors (IfcDoor).
	CategoryDoor Category = "door"
)

// Categories returns every known category in canonical order.
func Categories() []Category {
	return []Category{CategoryWall, CategorySlab, CategoryRoom, CategoryDoor}
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// IsValid reports whether c is one of the defined categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryWall, CategorySlab, CategoryRoom, CategoryDoor:
		return true
	default:
		return false
	}
}

// ParseCategory maps a collection key to its category. Plural collection
// names ("walls"), singular names ("wall") and IFC class names ("IfcWall")
// are accepted case-insensitively.
func ParseCategory(key string) (Category, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case "wall", "walls", "ifcwall":
		return CategoryWall, nil
	case "slab", "slabs", "ifcslab":
		return CategorySlab, nil
	case "room", "rooms", "space", "spaces", "ifcspace":
		return CategoryRoom, nil
	case "door", "doors", "ifcdoor":
		return CategoryDoor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, key)
	}
}
