package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

func studentSchema() Schema {
	return Schema{
		Table: "students",
		Fields: map[string]Field{
			"id":            F("id", UUID),
			"firstName":     F("first_name", String),
			"lastName":      F("last_name", String),
			"status":        F("status", String),
			"capacity":      F("capacity", Number),
			"admissionDate": F("admission_date", Time),
			"active":        F("active", Bool),
			"internal":      {Column: "internal", Kind: String},
		},
		Relations: map[string]Relation{
			"class": {
				Table: "school_classes",
				Join:  "LEFT JOIN school_classes ON school_classes.id = students.class_id",
				Fields: map[string]Field{
					"gradeLevel": F("grade_level", String),
				},
			},
		},
		SearchFields: []string{"firstName", "lastName"},
	}
}

func exprs(r Result) []string {
	out := make([]string, len(r.Conds))
	for i, c := range r.Conds {
		out[i] = c.Expr
	}
	return out
}

func TestTranslate_Filters(t *testing.T) {
	s := studentSchema()

	t.Run("plain equality filter", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"status": "active"}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.status = ?", r.Conds[0].Expr)
		assert.Equal(t, []any{"active"}, r.Conds[0].Args)
	})

	t.Run("unknown fields are dropped", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"nope": "x"}}, Options{})
		assert.Empty(t, r.Conds)
	})

	t.Run("non-filterable fields are dropped", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"internal": "x"}}, Options{})
		assert.Empty(t, r.Conds)
	})

	t.Run("empty and nil values are no filter", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"status":    "",
			"firstName": nil,
			"lastName":  []any{},
		}}, Options{})
		assert.Empty(t, r.Conds)
	})

	t.Run("reserved keys never become predicates", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"page":     "2",
			"sort":     "firstName",
			"tenantId": "evil",
			"branchId": "evil",
			"schoolId": "evil",
		}}, Options{})
		assert.Empty(t, r.Conds)
	})

	t.Run("array values become IN", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"status": []any{"active", "graduated"}}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.status IN ?", r.Conds[0].Expr)
	})

	t.Run("operator suffixes with schema-driven coercion", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"admissionDate_gte": "2024-09-01"}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.admission_date >= ?", r.Conds[0].Expr)
		want, _ := time.Parse("2006-01-02", "2024-09-01")
		assert.Equal(t, []any{want}, r.Conds[0].Args)
	})

	t.Run("number coercion from string", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"capacity_lt": "30"}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.capacity < ?", r.Conds[0].Expr)
		assert.Equal(t, []any{30.0}, r.Conds[0].Args)
	})

	t.Run("uncoercible values are dropped", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"capacity_gte": "many"}}, Options{})
		assert.Empty(t, r.Conds)
	})

	t.Run("operator object", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"capacity": map[string]any{"gte": 10.0, "lt": 40.0},
		}}, Options{})
		assert.Len(t, r.Conds, 2)
		assert.ElementsMatch(t,
			[]string{"students.capacity >= ?", "students.capacity < ?"},
			exprs(r))
	})

	t.Run("not null operator", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"status": map[string]any{"not": nil},
		}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.status IS NOT NULL", r.Conds[0].Expr)
	})

	t.Run("dotted relation path adds the join once", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"class.gradeLevel": "5",
		}}, Options{})
		require.Len(t, r.Joins, 1)
		assert.Contains(t, r.Joins[0], "LEFT JOIN school_classes")
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "school_classes.grade_level = ?", r.Conds[0].Expr)
	})
}

func TestTranslate_Search(t *testing.T) {
	s := studentSchema()

	t.Run("search spans the declared fields", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"q": "Ada"}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "(LOWER(students.first_name) LIKE ? OR LOWER(students.last_name) LIKE ?)", r.Conds[0].Expr)
		assert.Equal(t, []any{"%ada%", "%ada%"}, r.Conds[0].Args)
	})

	t.Run("search replaces ordinary filters", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{
			"q":      "Ada",
			"status": "active",
		}}, Options{})
		require.Len(t, r.Conds, 1)
		assert.NotContains(t, r.Conds[0].Expr, "status")
	})

	t.Run("search is also accepted as term key", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"search": "Ada"}}, Options{})
		require.Len(t, r.Conds, 1)
	})
}

func TestTranslate_ScopeAndLifecycle(t *testing.T) {
	s := studentSchema()

	t.Run("soft delete exclusion is the default", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{SoftDelete: true})
		assert.Contains(t, exprs(r), "students.deleted_at IS NULL")
	})

	t.Run("deleted-only mode inverts the predicate", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{SoftDelete: true, Deleted: DeletedOnly})
		assert.Contains(t, exprs(r), "students.deleted_at IS NOT NULL")
	})

	t.Run("deleted-any mode drops the predicate", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{SoftDelete: true, Deleted: DeletedAny})
		assert.NotContains(t, exprs(r), "students.deleted_at IS NULL")
		assert.NotContains(t, exprs(r), "students.deleted_at IS NOT NULL")
	})

	t.Run("branch scope is appended", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{
			BranchScoped: true,
			Scope:        scope.Scope{TenantID: "t1", BranchID: "b1"},
		})
		assert.Contains(t, exprs(r), "students.branch_id = ?")
		assert.Contains(t, exprs(r), "students.tenant_id = ?")
		assert.False(t, r.Empty)
	})

	t.Run("missing branch scope forces empty result", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{BranchScoped: true})
		assert.True(t, r.Empty)
		assert.Contains(t, exprs(r), "1 = 0")
	})

	t.Run("client filters cannot override scope", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{"branchId": "other"}}, Options{
			BranchScoped: true,
			Scope:        scope.Scope{BranchID: "b1"},
		})
		require.Len(t, r.Conds, 1)
		assert.Equal(t, "students.branch_id = ?", r.Conds[0].Expr)
		assert.Equal(t, []any{"b1"}, r.Conds[0].Args)
	})
}

func TestTranslate_Pagination(t *testing.T) {
	s := studentSchema()

	t.Run("defaults", func(t *testing.T) {
		r := Translate(s, ListParams{}, Options{})
		assert.Equal(t, DefaultPerPage, r.Limit)
		assert.Equal(t, 0, r.Offset)
	})

	t.Run("page and perPage", func(t *testing.T) {
		r := Translate(s, ListParams{Page: 3, PerPage: 10}, Options{})
		assert.Equal(t, 10, r.Limit)
		assert.Equal(t, 20, r.Offset)
	})

	t.Run("perPage is clamped", func(t *testing.T) {
		r := Translate(s, ListParams{PerPage: 10_000}, Options{})
		assert.Equal(t, MaxPerPage, r.Limit)
	})
}

func TestTranslate_Distinct(t *testing.T) {
	s := studentSchema()

	t.Run("resolves declared fields", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{DistinctKey: "status"}}, Options{})
		assert.Equal(t, "students.status", r.Distinct)
	})

	t.Run("unknown field resolves to nothing", func(t *testing.T) {
		r := Translate(s, ListParams{Filter: map[string]any{DistinctKey: "nope"}}, Options{})
		assert.Empty(t, r.Distinct)
	})
}

func TestParseSort(t *testing.T) {
	s := studentSchema()

	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty defaults to id", "", []string{"students.id ASC"}},
		{"plain field ascends", "firstName", []string{"students.first_name ASC", "students.id ASC"}},
		{"dash prefix descends", "-firstName", []string{"students.first_name DESC", "students.id ASC"}},
		{"colon suffix desc", "firstName:desc", []string{"students.first_name DESC", "students.id ASC"}},
		{"colon suffix asc", "firstName:asc", []string{"students.first_name ASC", "students.id ASC"}},
		{"unknown field falls back", "secret", []string{"students.id ASC"}},
		{"bad direction falls back", "firstName:sideways", []string{"students.id ASC"}},
		{"id avoids a duplicate tiebreaker", "id:desc", []string{"students.id DESC"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseSort(s, tc.raw))
		})
	}
}
