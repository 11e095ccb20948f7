// Package element defines the raw building records consumed by the graph
// builder: walls, slabs, rooms and doors with their identity, bounding volume,
// typed properties and declared relations.
//
// # Input Format
//
// Models are read from a categorized JSON document. Each top-level key names a
// collection and holds an array of element records:
//
//	{
//	  "rooms": [
//	    {
//	      "global_id": "R1",
//	      "name": "Office 101",
//	      "BoundingBox": {"xmin": 0, "ymin": 0, "zmin": 0, "xmax": 10, "ymax": 10, "zmax": 3},
//	      "props": {"fire_rating": "EI60"},
//	      "contained_in": ["S1"]
//	    }
//	  ],
//	  "walls": [ ... ]
//	}
//
// The collection key decides an element's category; there is no free-text
// category field on the record itself.
//
// # Properties
//
// Property values form a closed set of kinds (boolean, number, string). JSON
// null is treated as an absent property; arrays and objects are rejected
// instead of being silently stringified.
//
// # Relations
//
// AdjacentTo and ContainedIn are ordered sets. Adding an identifier twice is a
// no-op, which keeps repeated graph builds idempotent.
package element
