package resource

import (
	"context"
	"fmt"

	"github.com/schoolms/backend/internal/infrastructure/persistence/query"
)

// listDistinct implements grouped listing: one representative row per
// distinct value of the grouping field, paginated over the groups, with the
// total counting groups instead of rows.
//
// The representative is the row with the smallest id in its group, selected
// through a correlated id subquery that shares the full predicate set of the
// outer query. Ids are compared as text so the construct behaves the same on
// the uuid and text column types of the supported dialects.
func (e *Engine[M]) listDistinct(ctx context.Context, p query.ListParams) ([]M, int64, error) {
	tr := e.translate(ctx, p, query.DeletedExclude)
	if tr.Distinct == "" {
		return nil, 0, fmt.Errorf("distinct listing of %s: unknown grouping field %q", e.desc.Name, p.Distinct())
	}

	// Rows without a value form no group: COUNT(DISTINCT col) skips NULL, so
	// the row query must skip it too or pages drift out of step with total.
	nonNull := tr.Distinct + " IS NOT NULL"

	var total int64
	if err := tr.ApplyWhere(e.model(ctx)).Where(nonNull).Distinct(tr.Distinct).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count distinct %s: %w", e.desc.Name, err)
	}

	idExpr := "CAST(" + e.desc.Schema.Table + ".id AS TEXT)"
	sub := tr.ApplyWhere(e.model(ctx)).
		Where(nonNull).
		Select("MIN(" + idExpr + ")").
		Group(tr.Distinct)

	recs := []M{}
	err := tr.ApplyWhere(e.model(ctx)).
		Where(idExpr+" IN (?)", sub).
		Order(tr.Distinct + " ASC").
		Order(e.desc.Schema.Table + ".id ASC").
		Limit(tr.Limit).
		Offset(tr.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("distinct listing of %s: %w", e.desc.Name, err)
	}
	return recs, total, nil
}
