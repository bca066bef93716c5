// Package resources binds the configured resources to their views and the
// named hook sets that carry the domain rules.
package resources

import (
	"ShelfAPI/internal/cache"
	"ShelfAPI/internal/logger"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/store"
	"ShelfAPI/internal/view"
	"fmt"
)

// Set holds one view per resource.
type Set struct {
	store store.Store
	names []string
	views map[string]*view.View
}

// Build creates the views of every resource in reg. cs may be nil to run
// without a cache.
func Build(reg map[string]*model.Resource, st store.Store, cs cache.Store) (*Set, error) {
	s := &Set{store: st, views: make(map[string]*view.View, len(reg))}
	for _, name := range model.SortedNames(reg) {
		res := reg[name]
		hooks, err := s.hooksFor(res)
		if err != nil {
			return nil, err
		}
		var layer *cache.Layer
		if cs != nil {
			layer = cache.NewLayer(cs, res.Cache.Prefix, res.Cache.TTL)
		}
		v, err := view.New(res, st, layer, hooks)
		if err != nil {
			return nil, err
		}
		s.views[name] = v
		s.names = append(s.names, name)
		logger.Debug("view_built", map[string]any{
			"resource": name,
			"path":     res.Path,
			"hooks":    res.Hooks,
			"cached":   layer.Enabled(),
		})
	}

	for _, name := range s.names {
		if reg[name].Hooks != "review" {
			continue
		}
		for _, dep := range []string{userResource, bookResource} {
			if s.views[dep] == nil {
				return nil, fmt.Errorf("resource %s: review hooks need the %s resource", name, dep)
			}
		}
	}
	return s, nil
}

func (s *Set) hooksFor(res *model.Resource) (view.Hooks, error) {
	owner := func(field string) (ownedHooks, error) {
		f := res.Field(field)
		if f == nil || f.Type != "int" {
			return ownedHooks{}, fmt.Errorf("resource %s: hooks %s need an int field %s", res.Name, res.Hooks, field)
		}
		return ownedHooks{field: field}, nil
	}

	switch res.Hooks {
	case "":
		return view.NopHooks{}, nil
	case "owned":
		return owner("created_by")
	case "comment":
		return owner("user_id")
	case "reading_list":
		h, err := owner("user_id")
		return readingListHooks{ownedHooks: h}, err
	case "review":
		h, err := owner("user_id")
		return reviewHooks{ownedHooks: h, set: s}, err
	case "user":
		return selfHooks{}, nil
	}
	return nil, fmt.Errorf("resource %s: unknown hooks %q", res.Name, res.Hooks)
}

// View returns the view of a resource, nil when it is not configured.
func (s *Set) View(name string) *view.View {
	return s.views[name]
}

// Views returns every view ordered by resource name.
func (s *Set) Views() []*view.View {
	out := make([]*view.View, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.views[name])
	}
	return out
}
