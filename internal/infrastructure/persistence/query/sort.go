package query

import "strings"

// parseSort converts the client sort expression into ORDER BY terms.
// Accepted forms: "field", "-field", "field:asc", "field:desc".
// Unknown or non-sortable fields fall back to the default order. The primary
// key is always appended as a tiebreaker so pagination stays deterministic.
func parseSort(s Schema, raw string) []string {
	idOrder := s.Table + ".id ASC"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{idOrder}
	}

	name := raw
	dir := "ASC"

	if strings.HasPrefix(name, "-") {
		name = name[1:]
		dir = "DESC"
	} else if field, suffix, found := strings.Cut(name, ":"); found {
		name = field
		switch strings.ToLower(suffix) {
		case "desc":
			dir = "DESC"
		case "asc", "":
			dir = "ASC"
		default:
			return []string{idOrder}
		}
	}

	field, ok := s.Fields[name]
	if !ok || !field.Sortable {
		return []string{idOrder}
	}
	if field.Column == "id" {
		return []string{s.Table + ".id " + dir}
	}
	return []string{s.Table + "." + field.Column + " " + dir, idOrder}
}
