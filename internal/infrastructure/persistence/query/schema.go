// Package query translates client-supplied list parameters (pagination,
// sorting, filter maps, full-text search, distinct grouping) into SQL
// predicates for the generic resource engine.
//
// Translation is a pure function over a per-resource Schema: every
// filterable or sortable field is declared up front with its column name and
// value kind, so nothing the client sends can reach the SQL layer without
// passing the whitelist, and operator-suffix coercion (admissionDate_gte vs
// capacity_gte) is schema-driven instead of guessed from the suffix.
package query

// Kind describes how filter values for a field are coerced before they are
// bound as SQL arguments.
type Kind int

// Field value kinds
const (
	String Kind = iota
	Number
	Time
	Bool
	UUID
)

// Field declares one filterable/sortable attribute of a resource.
type Field struct {
	Column     string
	Kind       Kind
	Filterable bool
	Sortable   bool
}

// F builds a field that is both filterable and sortable, which is the common
// case.
func F(column string, kind Kind) Field {
	return Field{Column: column, Kind: kind, Filterable: true, Sortable: true}
}

// Relation declares a joinable related entity addressed by dotted filter
// keys (e.g. "class.gradeLevel").
type Relation struct {
	// Table is the joined table's name, used to qualify predicate columns.
	Table string
	// Join is the full join clause added to the query when the relation is
	// referenced.
	Join string
	// Fields whitelists the related entity's filterable attributes.
	Fields map[string]Field
}

// Schema is the declared query surface of one resource.
type Schema struct {
	// Table is the resource's own table name.
	Table string
	// Fields maps client-facing (JSON) field names to columns.
	Fields map[string]Field
	// Relations maps dotted-key prefixes to joinable relations.
	Relations map[string]Relation
	// SearchFields are the client-facing names searched by the q/search
	// parameter. Dotted relation paths are allowed.
	SearchFields []string
}

// Column resolves a client-facing field name to its qualified column, the
// field declaration and an optional join clause. Dotted names are resolved
// through Relations. Unknown or non-filterable names resolve to ok=false.
func (s Schema) Column(name string) (column string, field Field, join string, ok bool) {
	if prefix, rest, found := cutDot(name); found {
		rel, exists := s.Relations[prefix]
		if !exists {
			return "", Field{}, "", false
		}
		f, exists := rel.Fields[rest]
		if !exists || !f.Filterable {
			return "", Field{}, "", false
		}
		return rel.Table + "." + f.Column, f, rel.Join, true
	}

	f, exists := s.Fields[name]
	if !exists || !f.Filterable {
		return "", Field{}, "", false
	}
	return s.Table + "." + f.Column, f, "", true
}

func cutDot(name string) (prefix, rest string, found bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return name, "", false
}
