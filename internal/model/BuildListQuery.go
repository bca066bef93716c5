package model

import (
	"github.com/Masterminds/squirrel"
)

// BuildListQuery строит SELECT для окна списка
func (r *Resource) BuildListQuery(q ListQuery) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.Columns(r.Columns()...).From(r.Table)

	wherePart, err := r.BuildWhereClause(q.Criteria)
	if err != nil {
		return sb, err
	}
	if wherePart != nil {
		sb = sb.Where(wherePart)
	}

	for _, o := range r.WithTieBreaker(q.Order) {
		if o.Desc {
			sb = sb.OrderBy(o.Field + " DESC")
		} else {
			sb = sb.OrderBy(o.Field + " ASC")
		}
	}

	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		sb = sb.Offset(uint64(q.Offset))
	}
	return sb, nil
}

// BuildGetQuery selects at most one row matching c.
func (r *Resource) BuildGetQuery(c Criteria) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.Columns(r.Columns()...).From(r.Table)

	wherePart, err := r.BuildWhereClause(c)
	if err != nil {
		return sb, err
	}
	if wherePart != nil {
		sb = sb.Where(wherePart)
	}
	return sb.Limit(1), nil
}
