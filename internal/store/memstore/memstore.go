// Package memstore is an in-process store.Store used by tests and the
// memory backend. Write transactions are serialized and see a private
// copy of the data until they commit.
package memstore

import (
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/store"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Calls counts store operations, transactions included.
type Calls struct {
	Select   int
	Count    int
	Get      int
	Insert   int
	Update   int
	Delete   int
	Begin    int
	Commit   int
	Rollback int
}

// Reads is the number of calls that read rows.
func (c Calls) Reads() int {
	return c.Select + c.Count + c.Get
}

type table struct {
	rows map[string]model.Record
	seq  int64
}

func (t *table) clone() *table {
	return &table{rows: maps.Clone(t.rows), seq: t.seq}
}

type tables map[string]*table

func (ts tables) clone() tables {
	out := make(tables, len(ts))
	for name, t := range ts {
		out[name] = t.clone()
	}
	return out
}

func (ts tables) get(name string) *table {
	t, ok := ts[name]
	if !ok {
		t = &table{rows: map[string]model.Record{}}
		ts[name] = t
	}
	return t
}

type Store struct {
	writeMu sync.Mutex // held by the open write transaction

	mu   sync.RWMutex
	data tables

	callsMu sync.Mutex
	calls   Calls
}

func New() *Store {
	return &Store{data: tables{}}
}

func (s *Store) Calls() Calls {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	return s.calls
}

func (s *Store) ResetCalls() {
	s.callsMu.Lock()
	defer s.callsMu.Unlock()
	s.calls = Calls{}
}

func (s *Store) count(fn func(c *Calls)) {
	s.callsMu.Lock()
	fn(&s.calls)
	s.callsMu.Unlock()
}

// Seed inserts rows without counting calls and returns them as stored.
func (s *Store) Seed(res *model.Resource, rows ...model.Record) ([]model.Record, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := insert(s.data.get(res.Table), res, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Raw returns the stored row by primary key, ignoring filters and soft delete.
func (s *Store) Raw(res *model.Resource, pk any) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data[res.Table]
	if !ok {
		return nil, false
	}
	rec, ok := t.rows[pkKey(pk)]
	return maps.Clone(rec), ok
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Select(ctx context.Context, res *model.Resource, q model.ListQuery) ([]model.Record, error) {
	s.count(func(c *Calls) { c.Select++ })
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selectRows(ctx, s.data, res, q)
}

func (s *Store) Count(ctx context.Context, res *model.Resource, c model.Criteria) (int, error) {
	s.count(func(c *Calls) { c.Count++ })
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countRows(ctx, s.data, res, c)
}

func (s *Store) Get(ctx context.Context, res *model.Resource, c model.Criteria) (model.Record, error) {
	s.count(func(c *Calls) { c.Get++ })
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRow(ctx, s.data, res, c)
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.count(func(c *Calls) { c.Begin++ })
	s.writeMu.Lock()
	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()
	return &tx{store: s, data: snapshot}, nil
}

type tx struct {
	store *Store
	data  tables
	done  bool
}

var errTxDone = errors.New("transaction already finished")

func (t *tx) Select(ctx context.Context, res *model.Resource, q model.ListQuery) ([]model.Record, error) {
	t.store.count(func(c *Calls) { c.Select++ })
	if t.done {
		return nil, errTxDone
	}
	return selectRows(ctx, t.data, res, q)
}

func (t *tx) Count(ctx context.Context, res *model.Resource, c model.Criteria) (int, error) {
	t.store.count(func(c *Calls) { c.Count++ })
	if t.done {
		return 0, errTxDone
	}
	return countRows(ctx, t.data, res, c)
}

func (t *tx) Get(ctx context.Context, res *model.Resource, c model.Criteria) (model.Record, error) {
	t.store.count(func(c *Calls) { c.Get++ })
	if t.done {
		return nil, errTxDone
	}
	return getRow(ctx, t.data, res, c)
}

func (t *tx) Insert(ctx context.Context, res *model.Resource, values model.Record) (model.Record, error) {
	t.store.count(func(c *Calls) { c.Insert++ })
	if t.done {
		return nil, errTxDone
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return insert(t.data.get(res.Table), res, values)
}

func (t *tx) Update(ctx context.Context, res *model.Resource, pk any, values model.Record) (model.Record, error) {
	t.store.count(func(c *Calls) { c.Update++ })
	if t.done {
		return nil, errTxDone
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl := t.data.get(res.Table)
	key := pkKey(pk)
	cur, ok := tbl.rows[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	next := maps.Clone(cur)
	for col, v := range values {
		f := res.Field(col)
		if f == nil {
			return nil, fmt.Errorf("unknown column %s in %s", col, res.Table)
		}
		if col == res.PrimaryKey {
			continue
		}
		coerced, err := f.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", store.ErrInvalid, col, err)
		}
		next[col] = coerced
	}
	tbl.rows[key] = next
	return maps.Clone(next), nil
}

func (t *tx) Delete(ctx context.Context, res *model.Resource, pk any) error {
	t.store.count(func(c *Calls) { c.Delete++ })
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tbl := t.data.get(res.Table)
	key := pkKey(pk)
	if _, ok := tbl.rows[key]; !ok {
		return store.ErrNotFound
	}
	delete(tbl.rows, key)
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	t.store.count(func(c *Calls) { c.Commit++ })
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.mu.Lock()
	t.store.data = t.data
	t.store.mu.Unlock()
	t.store.writeMu.Unlock()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.store.count(func(c *Calls) { c.Rollback++ })
	if t.done {
		return errTxDone
	}
	t.done = true
	t.store.writeMu.Unlock()
	return nil
}

func pkKey(pk any) string {
	return fmt.Sprint(pk)
}

func insert(tbl *table, res *model.Resource, values model.Record) (model.Record, error) {
	rec := make(model.Record, len(res.Fields))
	for _, f := range res.Fields {
		v, ok := values[f.Name]
		if !ok {
			// column default, as the migrations declare it
			rec[f.Name] = f.Default
			continue
		}
		coerced, err := f.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", store.ErrInvalid, f.Name, err)
		}
		rec[f.Name] = coerced
	}
	for col := range values {
		if res.Field(col) == nil {
			return nil, fmt.Errorf("unknown column %s in %s", col, res.Table)
		}
	}

	pkField := res.Field(res.PrimaryKey)
	pk := rec[res.PrimaryKey]
	switch {
	case pk == nil && pkField.Type == "int":
		tbl.seq++
		pk = tbl.seq
	case pk == nil:
		pk = uuid.NewString()
	case pkField.Type == "int":
		if n, ok := pk.(int64); ok && n > tbl.seq {
			tbl.seq = n
		}
	}
	rec[res.PrimaryKey] = pk

	key := pkKey(pk)
	if _, exists := tbl.rows[key]; exists {
		return nil, fmt.Errorf("%w: duplicate key %s=%v", store.ErrConflict, res.PrimaryKey, pk)
	}
	tbl.rows[key] = rec
	return maps.Clone(rec), nil
}

func matching(ctx context.Context, data tables, res *model.Resource, c model.Criteria) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := data[res.Table]
	if !ok {
		return nil, nil
	}
	var out []model.Record
	for _, rec := range t.rows {
		if c.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func selectRows(ctx context.Context, data tables, res *model.Resource, q model.ListQuery) ([]model.Record, error) {
	rows, err := matching(ctx, data, res, q.Criteria)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, compareRecords(res.WithTieBreaker(q.Order)))

	start := min(max(q.Offset, 0), len(rows))
	end := len(rows)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(rows))
	}
	out := make([]model.Record, 0, end-start)
	for _, rec := range rows[start:end] {
		out = append(out, maps.Clone(rec))
	}
	return out, nil
}

func countRows(ctx context.Context, data tables, res *model.Resource, c model.Criteria) (int, error) {
	rows, err := matching(ctx, data, res, c)
	return len(rows), err
}

func getRow(ctx context.Context, data tables, res *model.Resource, c model.Criteria) (model.Record, error) {
	rows, err := matching(ctx, data, res, c)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return maps.Clone(rows[0]), nil
}
