package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
	"gorm.io/gorm"
)

// DeletedMode selects how soft-deleted rows participate in a query.
type DeletedMode int

// Soft-delete visibility modes
const (
	// DeletedExclude hides soft-deleted rows (the default listing behavior).
	DeletedExclude DeletedMode = iota
	// DeletedOnly returns soft-deleted rows exclusively (the deleted listing).
	DeletedOnly
	// DeletedAny ignores the soft-delete column entirely.
	DeletedAny
)

// Options carry the per-resource capabilities and the ambient scope that
// participate in translation.
type Options struct {
	SoftDelete   bool
	Deleted      DeletedMode
	BranchScoped bool
	Scope        scope.Scope
}

// Condition is one SQL predicate with its bind arguments.
type Condition struct {
	Expr string
	Args []any
}

// Result is the translated predicate set for one call.
type Result struct {
	Joins  []string
	Conds  []Condition
	Order  []string
	Limit  int
	Offset int
	// Distinct is the qualified grouping column when _distinct was present
	// and resolved to a declared own-table field.
	Distinct string
	// Empty is set when the scope policy forces an empty result (branch
	// scoping required but no branch identity present). The conditions then
	// already contain a contradiction.
	Empty bool
}

// operator suffixes in precedence order; longer suffixes first so _gte wins
// over _gt when both match.
var operatorSuffixes = []struct {
	suffix string
	op     string
}{
	{"_gte", ">="},
	{"_lte", "<="},
	{"_gt", ">"},
	{"_lt", "<"},
}

// Translate converts normalized list parameters into SQL predicates for the
// given schema. It never returns an error: unknown fields and malformed
// values are dropped, matching the contract that a bad filter narrows to
// nothing rather than failing the request.
func Translate(s Schema, p ListParams, o Options) Result {
	p.Normalize()

	res := Result{
		Limit:  p.PerPage,
		Offset: p.Offset(),
	}
	joins := map[string]bool{}

	if term := p.SearchTerm(); term != "" {
		// A search term replaces ordinary field filters on the same pass.
		res.addSearch(s, term, joins)
	} else {
		for key, value := range p.Filter {
			if reservedKeys[key] {
				continue
			}
			res.addFilter(s, key, value, joins)
		}
	}

	if len(p.IDs) > 0 {
		res.Conds = append(res.Conds, Condition{
			Expr: s.Table + ".id IN ?",
			Args: []any{p.IDs},
		})
	}

	if o.SoftDelete {
		switch o.Deleted {
		case DeletedExclude:
			res.Conds = append(res.Conds, Condition{Expr: s.Table + ".deleted_at IS NULL"})
		case DeletedOnly:
			res.Conds = append(res.Conds, Condition{Expr: s.Table + ".deleted_at IS NOT NULL"})
		}
	}

	// Scope is ANDed last and cannot be overridden by client filter keys:
	// the reserved-key set already strips tenantId/branchId lookalikes.
	if o.BranchScoped {
		if o.Scope.HasBranch() {
			res.Conds = append(res.Conds, Condition{
				Expr: s.Table + ".branch_id = ?",
				Args: []any{o.Scope.BranchID},
			})
		} else {
			res.Empty = true
			res.Conds = append(res.Conds, Condition{Expr: "1 = 0"})
		}
	}
	if o.Scope.TenantID != "" {
		res.Conds = append(res.Conds, Condition{
			Expr: s.Table + ".tenant_id = ?",
			Args: []any{o.Scope.TenantID},
		})
	}

	if name := p.Distinct(); name != "" {
		if f, ok := s.Fields[name]; ok && f.Filterable {
			res.Distinct = s.Table + "." + f.Column
		}
	}

	res.Order = parseSort(s, p.Sort)
	return res
}

// addSearch builds the case-insensitive OR clause across the schema's
// declared search fields.
func (r *Result) addSearch(s Schema, term string, joins map[string]bool) {
	var exprs []string
	var args []any
	pattern := "%" + strings.ToLower(term) + "%"

	for _, name := range s.SearchFields {
		column, _, join, ok := s.Column(name)
		if !ok {
			continue
		}
		if join != "" && !joins[join] {
			joins[join] = true
			r.Joins = append(r.Joins, join)
		}
		exprs = append(exprs, "LOWER("+column+") LIKE ?")
		args = append(args, pattern)
	}

	if len(exprs) > 0 {
		r.Conds = append(r.Conds, Condition{
			Expr: "(" + strings.Join(exprs, " OR ") + ")",
			Args: args,
		})
	}
}

// addFilter translates one filter key/value pair.
func (r *Result) addFilter(s Schema, key string, value any, joins map[string]bool) {
	op := "="
	for _, cand := range operatorSuffixes {
		if strings.HasSuffix(key, cand.suffix) && len(key) > len(cand.suffix) {
			op = cand.op
			key = strings.TrimSuffix(key, cand.suffix)
			break
		}
	}

	column, field, join, ok := s.Column(key)
	if !ok {
		return
	}
	if join != "" && !joins[join] {
		joins[join] = true
		r.Joins = append(r.Joins, join)
	}

	if op != "=" {
		if coerced, ok := Coerce(field, value); ok {
			r.Conds = append(r.Conds, Condition{Expr: column + " " + op + " ?", Args: []any{coerced}})
		}
		return
	}

	switch v := value.(type) {
	case nil:
		// Absent values are "no filter", not "filter for null".
		return
	case string:
		if v == "" {
			return
		}
		if coerced, ok := Coerce(field, v); ok {
			r.Conds = append(r.Conds, Condition{Expr: column + " = ?", Args: []any{coerced}})
		}
	case []any:
		if len(v) == 0 {
			return
		}
		r.Conds = append(r.Conds, Condition{Expr: column + " IN ?", Args: []any{v}})
	case map[string]any:
		r.addOperatorObject(column, field, v)
	default:
		if coerced, ok := Coerce(field, value); ok {
			r.Conds = append(r.Conds, Condition{Expr: column + " = ?", Args: []any{coerced}})
		}
	}
}

// addOperatorObject handles map-valued filters such as
// {"amount": {"gte": 100, "lt": 500}} or {"status": {"not": "paid"}}.
func (r *Result) addOperatorObject(column string, field Field, ops map[string]any) {
	for op, raw := range ops {
		switch op {
		case "gte", "lte", "gt", "lt":
			sqlOp := map[string]string{"gte": ">=", "lte": "<=", "gt": ">", "lt": "<"}[op]
			if coerced, ok := Coerce(field, raw); ok {
				r.Conds = append(r.Conds, Condition{Expr: column + " " + sqlOp + " ?", Args: []any{coerced}})
			}
		case "in":
			if list, ok := raw.([]any); ok && len(list) > 0 {
				r.Conds = append(r.Conds, Condition{Expr: column + " IN ?", Args: []any{list}})
			}
		case "not":
			if raw == nil {
				r.Conds = append(r.Conds, Condition{Expr: column + " IS NOT NULL"})
			} else if coerced, ok := Coerce(field, raw); ok {
				r.Conds = append(r.Conds, Condition{Expr: column + " <> ?", Args: []any{coerced}})
			}
		case "contains":
			if s, ok := raw.(string); ok && s != "" {
				r.Conds = append(r.Conds, Condition{
					Expr: "LOWER(" + column + ") LIKE ?",
					Args: []any{"%" + strings.ToLower(s) + "%"},
				})
			}
		}
	}
}

// Coerce converts a raw filter value into the field's declared kind.
// Coercion is driven by the schema, never inferred from an operator suffix.
func Coerce(f Field, value any) (any, bool) {
	switch f.Kind {
	case Number:
		switch v := value.(type) {
		case float64, int, int64:
			return v, true
		case string:
			n, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, false
			}
			return n, true
		}
		return nil, false
	case Time:
		s, ok := value.(string)
		if !ok {
			return nil, false
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return nil, false
	case Bool:
		switch v := value.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, false
			}
			return b, true
		}
		return nil, false
	default:
		return value, true
	}
}

// Apply attaches joins, predicates and ordering to a GORM query.
func (r Result) Apply(db *gorm.DB) *gorm.DB {
	db = r.ApplyWhere(db)
	for _, o := range r.Order {
		db = db.Order(o)
	}
	return db.Limit(r.Limit).Offset(r.Offset)
}

// ApplyWhere attaches joins and predicates only, which is what the matching
// count query needs: total must reflect the same predicate as the page.
func (r Result) ApplyWhere(db *gorm.DB) *gorm.DB {
	for _, j := range r.Joins {
		db = db.Joins(j)
	}
	for _, c := range r.Conds {
		db = db.Where(c.Expr, c.Args...)
	}
	return db
}
