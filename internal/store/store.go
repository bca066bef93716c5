// Package store defines the transactional data source the views run on.
package store

import (
	"ShelfAPI/internal/model"
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict wraps unique constraint violations.
	ErrConflict = errors.New("conflict")
	// ErrInvalid wraps values the database refused (foreign key, not null, check).
	ErrInvalid = errors.New("invalid value")
)

type Reader interface {
	// Select returns the rows of q's window in q's order.
	Select(ctx context.Context, res *model.Resource, q model.ListQuery) ([]model.Record, error)
	Count(ctx context.Context, res *model.Resource, c model.Criteria) (int, error)
	// Get returns the first row matching c or ErrNotFound.
	Get(ctx context.Context, res *model.Resource, c model.Criteria) (model.Record, error)
}

type Tx interface {
	Reader
	// Insert stores values and returns the full row, generated columns included.
	Insert(ctx context.Context, res *model.Resource, values model.Record) (model.Record, error)
	// Update sets values on the row with primary key pk and returns the full row.
	Update(ctx context.Context, res *model.Resource, pk any, values model.Record) (model.Record, error)
	Delete(ctx context.Context, res *model.Resource, pk any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Store interface {
	Reader
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
}
