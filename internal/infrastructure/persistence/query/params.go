package query

// Pagination bounds
const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Reserved filter keys stripped before predicate construction. Scope columns
// are included so client filters can never override the ambient identity.
var reservedKeys = map[string]bool{
	"page":     true,
	"perPage":  true,
	"pageSize": true,
	"sort":     true,
	"ids":      true,
	"filter":   true,
	"q":        true,
	"search":   true,
	"tenantId": true,
	"branchId": true,
	"schoolId": true,
	DistinctKey: true,
}

// DistinctKey is the private filter marker selecting grouped listing.
const DistinctKey = "_distinct"

// ListParams are the normalized list/query parameters of one call.
// Constructed from untrusted input; Normalize must run before use.
type ListParams struct {
	Page    int
	PerPage int
	Sort    string
	Filter  map[string]any
	IDs     []string
}

// Normalize applies defaults and clamps pagination into the allowed range.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset returns the row offset for the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// SearchTerm extracts the full-text search term, if any.
func (p ListParams) SearchTerm() string {
	for _, key := range []string{"q", "search"} {
		if v, ok := p.Filter[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Distinct extracts the client-facing name of the distinct grouping field,
// if any.
func (p ListParams) Distinct() string {
	if v, ok := p.Filter[DistinctKey]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithFilter returns a copy of the params with one filter entry added.
// The receiver's filter map is not mutated.
func (p ListParams) WithFilter(key string, value any) ListParams {
	merged := make(map[string]any, len(p.Filter)+1)
	for k, v := range p.Filter {
		merged[k] = v
	}
	merged[key] = value
	p.Filter = merged
	return p
}
