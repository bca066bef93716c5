// Package pgstore is the Postgres store.Store: squirrel-built statements
// executed through a pgx pool.
package pgstore

import (
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/store"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	pool *pgxpool.Pool
	reader
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, reader: reader{q: pool}}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	t, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{reader: reader{q: t}, tx: t}, nil
}

type reader struct {
	q querier
}

func (r reader) Select(ctx context.Context, res *model.Resource, q model.ListQuery) ([]model.Record, error) {
	sb, err := res.BuildListQuery(q)
	if err != nil {
		return nil, err
	}
	return r.queryRows(ctx, sb)
}

func (r reader) Count(ctx context.Context, res *model.Resource, c model.Criteria) (int, error) {
	sb, err := res.BuildCountQuery(c)
	if err != nil {
		return 0, err
	}
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.q.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (r reader) Get(ctx context.Context, res *model.Resource, c model.Criteria) (model.Record, error) {
	sb, err := res.BuildGetQuery(c)
	if err != nil {
		return nil, err
	}
	rows, err := r.queryRows(ctx, sb)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0], nil
}

func (r reader) queryRows(ctx context.Context, sq squirrel.Sqlizer) ([]model.Record, error) {
	sqlStr, args, err := sq.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql_query", map[string]any{"sql": sqlStr, "args": len(args)})

	rows, err := r.q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, translate(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]model.Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, model.Record(m))
	}
	return out, nil
}

type tx struct {
	reader
	tx pgx.Tx
}

func (t *tx) Insert(ctx context.Context, res *model.Resource, values model.Record) (model.Record, error) {
	ib, err := res.BuildInsert(encodeValues(res, values))
	if err != nil {
		return nil, err
	}
	return t.one(ctx, ib)
}

func (t *tx) Update(ctx context.Context, res *model.Resource, pk any, values model.Record) (model.Record, error) {
	ub, err := res.BuildUpdate(pk, encodeValues(res, values))
	if err != nil {
		return nil, err
	}
	return t.one(ctx, ub)
}

func (t *tx) Delete(ctx context.Context, res *model.Resource, pk any) error {
	sqlStr, args, err := res.BuildDelete(pk).ToSql()
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *tx) one(ctx context.Context, sq squirrel.Sqlizer) (model.Record, error) {
	sqlStr, args, err := sq.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("sql_exec", map[string]any{"sql": sqlStr, "args": len(args)})

	rows, err := t.tx.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, translate(err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	return model.Record(m), nil
}

// encodeValues turns date strings into time.Time for date columns.
func encodeValues(res *model.Resource, values model.Record) model.Record {
	out := make(model.Record, len(values))
	for col, v := range values {
		if f := res.Field(col); f != nil && f.Type == "date" {
			if s, ok := v.(string); ok {
				if t, err := time.Parse(model.DateLayout, s); err == nil {
					v = t
				}
			}
		}
		out[col] = v
	}
	return out
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.Detail)
		case "23503", "23502", "23514", "22P02", "22001":
			return fmt.Errorf("%w: %s", store.ErrInvalid, pgErr.Message)
		}
	}
	return err
}
