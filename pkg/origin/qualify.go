package origin

import "strings"

const nameDelimiter = "."

// QualifiedFieldNames renders one readable name per origin using the
// shortest qualification that stays unambiguous across the whole set:
// just the field when catalog, database and table are all the same;
// table.field when only catalog and database are shared; database.table.field
// when only the catalog is shared; the full chain otherwise.
//
// The field component is the origin's transform text when present (so earlier
// derivations compound), else the base table's declared field name. Names are
// deduplicated in insertion order.
func QualifiedFieldNames(set *Set) []string {
	catalogs := make(map[string]struct{})
	databases := make(map[string]struct{})
	tables := make(map[string]struct{})

	type qualified struct {
		segments []string // table qualified name
		field    string
	}
	entries := make([]qualified, 0, set.Len())

	for _, o := range set.Origins() {
		name := o.Table.QualifiedName()
		if len(name) > 0 {
			catalogs[name[0]] = struct{}{}
		}
		if len(name) > 1 {
			databases[name[1]] = struct{}{}
		}
		if len(name) > 2 {
			tables[name[2]] = struct{}{}
		}
		field := o.Transform
		if field == "" {
			field = o.FieldName()
		}
		entries = append(entries, qualified{segments: name, field: field})
	}

	// Shorter-than-three-part names never drop segments; ambiguity cannot
	// be judged for chains the catalog did not qualify.
	fullyQualified := true
	for _, e := range entries {
		if len(e.segments) < 3 {
			fullyQualified = false
			break
		}
	}

	var drop int
	switch {
	case !fullyQualified:
		drop = 0
	case len(catalogs) == 1 && len(databases) == 1 && len(tables) == 1:
		drop = 3
	case len(catalogs) == 1 && len(databases) == 1:
		drop = 2
	case len(catalogs) == 1:
		drop = 1
	default:
		drop = 0
	}

	seen := make(map[string]struct{})
	var names []string
	for _, e := range entries {
		parts := append(append([]string{}, e.segments[drop:]...), e.field)
		name := strings.Join(parts, nameDelimiter)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
