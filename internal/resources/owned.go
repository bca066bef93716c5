package resources

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/view"
	"context"
)

// ownedHooks stamps the caller as owner on create and lets only the owner
// change or remove the row.
type ownedHooks struct {
	view.NopHooks
	field string
}

func (h ownedHooks) OnBeforeCreate(_ context.Context, call *view.Call, _ map[string]any) error {
	if !call.Identity.Authenticated {
		return apperr.Unauthorized("%s", "authentication credentials were not provided")
	}
	call.Assign(h.field, call.Identity.UserID)
	return nil
}

func (h ownedHooks) OnBeforeUpdate(_ context.Context, call *view.Call, current model.Record, _ map[string]any) error {
	return h.owns(call, current)
}

func (h ownedHooks) OnBeforeDestroy(_ context.Context, call *view.Call, current model.Record) error {
	return h.owns(call, current)
}

func (h ownedHooks) owns(call *view.Call, rec model.Record) error {
	if !call.Identity.Authenticated {
		return apperr.Unauthorized("%s", "authentication credentials were not provided")
	}
	owner, ok := intValue(call.Resource, h.field, rec)
	if !ok || owner != call.Identity.UserID {
		return apperr.Forbidden("%s", "you do not have permission to modify this object")
	}
	return nil
}

// selfHooks guards the user resource: a user may only change or remove
// their own account.
type selfHooks struct {
	view.NopHooks
}

func (selfHooks) OnBeforeUpdate(_ context.Context, call *view.Call, current model.Record, _ map[string]any) error {
	return self(call, current)
}

func (selfHooks) OnBeforeDestroy(_ context.Context, call *view.Call, current model.Record) error {
	return self(call, current)
}

func self(call *view.Call, rec model.Record) error {
	id, ok := intValue(call.Resource, call.Resource.PrimaryKey, rec)
	if !call.Identity.Authenticated || !ok || id != call.Identity.UserID {
		return apperr.Forbidden("%s", "you can only modify your own account")
	}
	return nil
}

// readingListHooks keeps a reading list private to its owner. Listing
// with an explicit user_id filter shows another user's list.
type readingListHooks struct {
	ownedHooks
}

func (h readingListHooks) Scope(_ context.Context, call *view.Call, op string, c model.Criteria) (model.Criteria, error) {
	if op == model.MethodList && c.Has(h.field) {
		return c, nil
	}
	return c.And(model.Predicate{Field: h.field, Value: call.Identity.UserID}), nil
}

// intValue reads an integer column whatever width the driver returned.
func intValue(res *model.Resource, field string, rec model.Record) (int64, bool) {
	f := res.Field(field)
	if f == nil {
		return 0, false
	}
	v, err := f.Coerce(rec[field])
	if err != nil {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}
