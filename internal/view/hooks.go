package view

import (
	"ShelfAPI/internal/auth"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/store"
	"ShelfAPI/internal/uow"
	"context"
)

// Call is what a hook sees of the running operation. Tx and Unit are set
// for mutations only; every store access inside a hook goes through Tx so a
// hook failure rolls the whole mutation back.
type Call struct {
	Identity auth.Identity
	Resource *model.Resource
	Tx       store.Tx
	Unit     *uow.Unit

	assigned model.Record
}

// Assign sets a server-side value that bypasses the write contract, such
// as the owner of a new row. Assigned values win over the payload.
func (c *Call) Assign(field string, value any) {
	if c.assigned == nil {
		c.assigned = model.Record{}
	}
	c.assigned[field] = value
}

// Hooks are the per-resource extension points of the mutating operations.
// They run inside the mutation's transaction; an error aborts it.
type Hooks interface {
	// OnBeforeCreate may rewrite payload before it is validated.
	OnBeforeCreate(ctx context.Context, call *Call, payload map[string]any) error
	OnAfterCreate(ctx context.Context, call *Call, created model.Record) error
	// OnBeforeUpdate runs after the target was loaded and before the
	// update allow-list and the contract are checked.
	OnBeforeUpdate(ctx context.Context, call *Call, current model.Record, payload map[string]any) error
	OnAfterUpdate(ctx context.Context, call *Call, before, after model.Record) error
	OnBeforeDestroy(ctx context.Context, call *Call, current model.Record) error
	OnAfterDestroy(ctx context.Context, call *Call, removed model.Record) error
}

// Scoper narrows the criteria of every lookup: list, retrieve and the target
// lookups of update and destroy. op is one of the model.Method* names.
type Scoper interface {
	Scope(ctx context.Context, call *Call, op string, c model.Criteria) (model.Criteria, error)
}

// NopHooks does nothing; embed it to override a subset.
type NopHooks struct{}

func (NopHooks) OnBeforeCreate(context.Context, *Call, map[string]any) error { return nil }

func (NopHooks) OnAfterCreate(context.Context, *Call, model.Record) error { return nil }

func (NopHooks) OnBeforeUpdate(context.Context, *Call, model.Record, map[string]any) error {
	return nil
}

func (NopHooks) OnAfterUpdate(context.Context, *Call, model.Record, model.Record) error { return nil }

func (NopHooks) OnBeforeDestroy(context.Context, *Call, model.Record) error { return nil }

func (NopHooks) OnAfterDestroy(context.Context, *Call, model.Record) error { return nil }
