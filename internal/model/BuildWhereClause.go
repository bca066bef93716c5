package model

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// BuildWhereClause renders criteria as
//
//	f1 = ? AND f2 IN (...) AND NOT COALESCE((e1 = ? AND e2 IN (...)), FALSE)
//
// Returns nil when there is nothing to filter on.
func (r *Resource) BuildWhereClause(c Criteria) (squirrel.Sqlizer, error) {
	var exprs []squirrel.Sqlizer

	// 1. Фильтры: равенство или принадлежность
	for _, p := range c.Filters {
		if r.Field(p.Field) == nil {
			return nil, fmt.Errorf("unknown column %s in %s", p.Field, r.Table)
		}
		exprs = append(exprs, predicateExpr(p))
	}

	// 2. Исключения: отрицание конъюнкции, NULL считается "не совпало"
	if len(c.Excludes) > 0 {
		parts := make(squirrel.And, 0, len(c.Excludes))
		for _, p := range c.Excludes {
			if r.Field(p.Field) == nil {
				return nil, fmt.Errorf("unknown column %s in %s", p.Field, r.Table)
			}
			parts = append(parts, predicateExpr(p))
		}
		sql, args, err := parts.ToSql()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, squirrel.Expr("NOT COALESCE(("+sql+"), FALSE)", args...))
	}

	if len(exprs) == 0 {
		return nil, nil
	}
	return squirrel.And(exprs), nil
}

// squirrel.Eq renders a slice value as IN and nil as IS NULL.
func predicateExpr(p Predicate) squirrel.Sqlizer {
	return squirrel.Eq{p.Field: p.Value}
}
