package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
)

func (r *Resource) returning() string {
	return "RETURNING " + strings.Join(r.Columns(), ", ")
}

func (r *Resource) sortedColumns(values Record) ([]string, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		if r.Field(col) == nil {
			return nil, fmt.Errorf("unknown column %s in %s", col, r.Table)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// BuildInsert returns INSERT ... RETURNING every column.
func (r *Resource) BuildInsert(values Record) (squirrel.InsertBuilder, error) {
	ib := squirrel.Insert(r.Table).PlaceholderFormat(squirrel.Dollar)

	cols, err := r.sortedColumns(values)
	if err != nil {
		return ib, err
	}
	if len(cols) == 0 {
		return ib.Columns(r.PrimaryKey).Values(squirrel.Expr("DEFAULT")).Suffix(r.returning()), nil
	}
	row := make([]any, 0, len(cols))
	for _, c := range cols {
		row = append(row, values[c])
	}
	return ib.Columns(cols...).Values(row...).Suffix(r.returning()), nil
}

// BuildUpdate sets values on the row with primary key pk.
func (r *Resource) BuildUpdate(pk any, values Record) (squirrel.UpdateBuilder, error) {
	ub := squirrel.Update(r.Table).PlaceholderFormat(squirrel.Dollar)

	cols, err := r.sortedColumns(values)
	if err != nil {
		return ub, err
	}
	if len(cols) == 0 {
		return ub, fmt.Errorf("nothing to update in %s", r.Table)
	}
	for _, c := range cols {
		ub = ub.Set(c, values[c])
	}
	return ub.Where(squirrel.Eq{r.PrimaryKey: pk}).Suffix(r.returning()), nil
}

func (r *Resource) BuildDelete(pk any) squirrel.DeleteBuilder {
	return squirrel.Delete(r.Table).
		PlaceholderFormat(squirrel.Dollar).
		Where(squirrel.Eq{r.PrimaryKey: pk})
}
