// Package view implements the generic CRUD orchestrator: one View serves
// list, retrieve, create, update and destroy for a configured resource.
package view

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/auth"
	"ShelfAPI/internal/cache"
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/query"
	"ShelfAPI/internal/store"
	"ShelfAPI/internal/uow"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

type View struct {
	res   *model.Resource
	store store.Store
	cache *cache.Layer
	hooks Hooks
	now   func() time.Time
}

// New binds a resource to its store and cache. A nil layer disables caching,
// nil hooks fall back to NopHooks.
func New(res *model.Resource, st store.Store, layer *cache.Layer, hooks Hooks) (*View, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("resource %s: store is required", res.Name)
	}
	if layer == nil {
		layer = cache.NewLayer(nil, "", 0)
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &View{res: res, store: st, cache: layer, hooks: hooks, now: time.Now}, nil
}

func (v *View) Resource() *model.Resource { return v.res }

// Cache exposes the layer so other resources' hooks can invalidate it.
func (v *View) Cache() *cache.Layer { return v.cache }

// ListResponse is the list envelope.
type ListResponse struct {
	Objects     []model.Record `json:"objects"`
	TotalCount  int            `json:"total_count"`
	NumPages    int            `json:"num_pages"`
	CurrentPage int            `json:"current_page"`
}

func (v *View) gate(id auth.Identity, method string) error {
	if !v.res.AllowsMethod(method) {
		return apperr.MethodNotAllowed(method)
	}
	if v.res.AuthRequired && !id.Authenticated {
		return apperr.Unauthorized("%s", "authentication credentials were not provided")
	}
	return nil
}

// scoped applies the soft delete flag and the resource's Scoper.
func (v *View) scoped(ctx context.Context, call *Call, op string, c model.Criteria) (model.Criteria, error) {
	if v.res.SoftDelete != "" {
		c = c.And(model.Predicate{Field: v.res.SoftDelete, Value: false})
	}
	if s, ok := v.hooks.(Scoper); ok {
		return s.Scope(ctx, call, op, c)
	}
	return c, nil
}

func (v *View) scope(id auth.Identity) string {
	return cache.Scope(id.UserID, id.Authenticated)
}

// parsePK converts a path id into the primary key's type. An id that
// cannot be a key of this resource identifies nothing.
func (v *View) parsePK(raw string) (any, error) {
	pk, err := v.res.Field(v.res.PrimaryKey).Coerce(raw)
	if err != nil || pk == nil {
		return nil, apperr.NotFound("%s", "not found")
	}
	return pk, nil
}

func (v *View) byPK(pk any) model.Criteria {
	return model.Criteria{Filters: []model.Predicate{{Field: v.res.PrimaryKey, Value: pk}}}
}

func (v *View) List(ctx context.Context, id auth.Identity, values url.Values) (json.RawMessage, error) {
	if err := v.gate(id, model.MethodList); err != nil {
		return nil, err
	}
	p := query.Parse(values, v.res.AllowedFilterFields)
	w, err := query.NewWindow(p.Paging, v.res.PageSize)
	if err != nil {
		return nil, v.translate(model.MethodList, err)
	}
	order, err := v.res.ParseOrder(p.Paging["order_by"])
	if err != nil {
		return nil, orderError(err)
	}
	crit, err := v.res.BuildCriteria(p.Filters, p.Excludes)
	if err != nil {
		return nil, v.translate(model.MethodList, err)
	}
	call := &Call{Identity: id, Resource: v.res}
	if crit, err = v.scoped(ctx, call, model.MethodList, crit); err != nil {
		return nil, v.translate(model.MethodList, err)
	}

	load := func(ctx context.Context) ([]byte, error) {
		total, err := v.store.Count(ctx, v.res, crit)
		if err != nil {
			return nil, err
		}
		page := w.Paginate(total)
		rows, err := v.store.Select(ctx, v.res, model.ListQuery{
			Criteria: crit,
			Order:    order,
			Offset:   page.Offset,
			Limit:    page.Limit,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(ListResponse{
			Objects:     v.res.SerializeAll(rows),
			TotalCount:  page.TotalCount,
			NumPages:    page.NumPages,
			CurrentPage: page.Number,
		})
	}

	if !v.cache.Enabled() {
		data, err := load(ctx)
		return data, v.translate(model.MethodList, err)
	}
	key, err := v.cache.ListKey(v.scope(id), p.Filters, p.Excludes, w.Top, w.Bottom, p.Paging["order_by"])
	if err != nil {
		return nil, v.translate(model.MethodList, err)
	}
	data, err := v.cache.Fetch(ctx, key, load)
	return data, v.translate(model.MethodList, err)
}

func (v *View) Retrieve(ctx context.Context, id auth.Identity, rawPK string) (json.RawMessage, error) {
	if err := v.gate(id, model.MethodRetrieve); err != nil {
		return nil, err
	}
	pk, err := v.parsePK(rawPK)
	if err != nil {
		return nil, err
	}
	call := &Call{Identity: id, Resource: v.res}
	crit, err := v.scoped(ctx, call, model.MethodRetrieve, v.byPK(pk))
	if err != nil {
		return nil, v.translate(model.MethodRetrieve, err)
	}

	load := func(ctx context.Context) ([]byte, error) {
		rec, err := v.store.Get(ctx, v.res, crit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v.res.Serialize(rec))
	}
	var data []byte
	if v.cache.Enabled() {
		data, err = v.cache.Fetch(ctx, v.cache.ObjectKey(v.scope(id), pk), load)
	} else {
		data, err = load(ctx)
	}
	return data, v.translate(model.MethodRetrieve, err)
}

func (v *View) Create(ctx context.Context, id auth.Identity, payload map[string]any) (json.RawMessage, error) {
	if err := v.gate(id, model.MethodCreate); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	var data []byte
	err := uow.Do(ctx, v.store, func(tx store.Tx, u *uow.Unit) error {
		call := &Call{Identity: id, Resource: v.res, Tx: tx, Unit: u}
		if err := v.hooks.OnBeforeCreate(ctx, call, payload); err != nil {
			return err
		}
		values, err := v.res.Deserialize(payload, model.ModeCreate)
		if err != nil {
			return err
		}
		v.merge(values, call.assigned)
		v.res.Stamp(values, true, v.now())

		created, err := tx.Insert(ctx, v.res, values)
		if err != nil {
			return err
		}
		if err := v.hooks.OnAfterCreate(ctx, call, created); err != nil {
			return err
		}
		if data, err = json.Marshal(v.res.Serialize(created)); err != nil {
			return err
		}
		v.afterWrite(u, id, created[v.res.PrimaryKey], data)
		return nil
	})
	if err != nil {
		return nil, v.translate(model.MethodCreate, err)
	}
	return data, nil
}

// Update replaces the writable fields of a row, or only the supplied ones
// when partial is set.
func (v *View) Update(ctx context.Context, id auth.Identity, rawPK string, payload map[string]any, partial bool) (json.RawMessage, error) {
	if err := v.gate(id, model.MethodUpdate); err != nil {
		return nil, err
	}
	pk, err := v.parsePK(rawPK)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	mode := model.ModeReplace
	if partial {
		mode = model.ModePartial
	}

	var data []byte
	err = uow.Do(ctx, v.store, func(tx store.Tx, u *uow.Unit) error {
		call := &Call{Identity: id, Resource: v.res, Tx: tx, Unit: u}
		current, err := v.target(ctx, call, model.MethodUpdate, pk)
		if err != nil {
			return err
		}
		if err := v.hooks.OnBeforeUpdate(ctx, call, current, payload); err != nil {
			return err
		}
		if err := v.res.CheckUpdatable(payload); err != nil {
			return err
		}
		values, err := v.res.Deserialize(payload, mode)
		if err != nil {
			return err
		}
		v.merge(values, call.assigned)
		v.res.Stamp(values, false, v.now())

		updated := current
		if len(values) > 0 {
			if updated, err = tx.Update(ctx, v.res, pk, values); err != nil {
				return err
			}
		}
		if err := v.hooks.OnAfterUpdate(ctx, call, current, updated); err != nil {
			return err
		}
		if data, err = json.Marshal(v.res.Serialize(updated)); err != nil {
			return err
		}
		v.afterWrite(u, id, pk, data)
		return nil
	})
	if err != nil {
		return nil, v.translate(model.MethodUpdate, err)
	}
	return data, nil
}

// Destroy removes a row, or sets its soft delete flag when the resource
// has one.
func (v *View) Destroy(ctx context.Context, id auth.Identity, rawPK string) error {
	if err := v.gate(id, model.MethodDelete); err != nil {
		return err
	}
	pk, err := v.parsePK(rawPK)
	if err != nil {
		return err
	}
	err = uow.Do(ctx, v.store, func(tx store.Tx, u *uow.Unit) error {
		call := &Call{Identity: id, Resource: v.res, Tx: tx, Unit: u}
		current, err := v.target(ctx, call, model.MethodDelete, pk)
		if err != nil {
			return err
		}
		if err := v.hooks.OnBeforeDestroy(ctx, call, current); err != nil {
			return err
		}
		if v.res.SoftDelete != "" {
			_, err = tx.Update(ctx, v.res, pk, model.Record{v.res.SoftDelete: true})
		} else {
			err = tx.Delete(ctx, v.res, pk)
		}
		if err != nil {
			return err
		}
		if err := v.hooks.OnAfterDestroy(ctx, call, current); err != nil {
			return err
		}
		v.InvalidateAfterCommit(u, pk)
		return nil
	})
	return v.translate(model.MethodDelete, err)
}

func (v *View) target(ctx context.Context, call *Call, op string, pk any) (model.Record, error) {
	crit, err := v.scoped(ctx, call, op, v.byPK(pk))
	if err != nil {
		return nil, err
	}
	return call.Tx.Get(ctx, v.res, crit)
}

func (v *View) merge(values, assigned model.Record) {
	for k, val := range assigned {
		values[k] = val
	}
}

// afterWrite invalidates the row and the lists, then writes the fresh
// payload through for the caller's scope.
func (v *View) afterWrite(u *uow.Unit, id auth.Identity, pk any, data []byte) {
	v.InvalidateAfterCommit(u, pk)
	if !v.cache.Enabled() {
		return
	}
	key := v.cache.ObjectKey(v.scope(id), pk)
	u.AfterCommit("", func(ctx context.Context) error {
		v.cache.Put(ctx, key, data)
		return nil
	})
}

// InvalidateAfterCommit schedules eviction of pk in every scope and of every
// list page. Repeated calls for one row within a unit run once.
func (v *View) InvalidateAfterCommit(u *uow.Unit, pk any) {
	if !v.cache.Enabled() {
		return
	}
	u.AfterCommit(fmt.Sprintf("cache:%s:object:%v", v.cache.Prefix(), pk), func(ctx context.Context) error {
		return v.cache.InvalidateObject(ctx, pk)
	})
	u.AfterCommit(fmt.Sprintf("cache:%s:lists", v.cache.Prefix()), func(ctx context.Context) error {
		logger.Debug("cache_invalidate_lists", map[string]any{"resource": v.res.Name})
		return v.cache.InvalidateLists(ctx)
	})
}
