package model

import (
	"github.com/Masterminds/squirrel"
)

func (r *Resource) BuildCountQuery(c Criteria) (squirrel.SelectBuilder, error) {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(squirrel.Dollar)
	sb = sb.Column("COUNT(*)").From(r.Table)

	wherePart, err := r.BuildWhereClause(c)
	if err != nil {
		return sb, err
	}
	if wherePart != nil {
		sb = sb.Where(wherePart)
	}
	return sb, nil
}
