package model

import (
	"fmt"
	"slices"
	"strings"
)

// Prepare fills defaults and builds lookup indexes. It is idempotent.
func (r *Resource) Prepare() {
	if r._Prepared {
		return
	}
	if r.PrimaryKey == "" {
		r.PrimaryKey = "id"
	}
	if len(r.AllowedMethods) == 0 {
		r.AllowedMethods = slices.Clone(allMethods)
	}
	if len(r.AllowedFilterFields) == 0 {
		r.AllowedFilterFields = []string{Wildcard}
	}
	if len(r.AllowedUpdateFields) == 0 {
		r.AllowedUpdateFields = []string{Wildcard}
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.Cache.TTL <= 0 {
		r.Cache.TTL = DefaultCacheTTL
	}
	if r.Path == "" && r.Name != "" {
		r.Path = "/" + r.Name
	}
	r.Path = "/" + strings.Trim(r.Path, "/")

	r._FieldIndex = make(map[string]*Field, len(r.Fields))
	for _, f := range r.Fields {
		if f == nil {
			continue
		}
		if f.Name == r.PrimaryKey || f.Auto != "" {
			f.ReadOnly = true
		}
		r._FieldIndex[f.Name] = f
	}
	r._Prepared = true
}

// Validate rejects a resource that cannot be served.
func (r *Resource) Validate() error {
	if r == nil {
		return fmt.Errorf("resource is nil")
	}
	r.Prepare()
	name := r.Name
	if name == "" {
		name = r.Table
	}
	if strings.TrimSpace(r.Table) == "" {
		return fmt.Errorf("resource %s: table is required", name)
	}
	if len(r.Fields) == 0 {
		return fmt.Errorf("resource %s: fields are required", name)
	}
	for i, f := range r.Fields {
		if f == nil || f.Name == "" {
			return fmt.Errorf("resource %s: field #%d has no name", name, i)
		}
		if !allowedFieldTypeValues[f.Type] {
			return fmt.Errorf("resource %s: field %s has unknown type %q", name, f.Name, f.Type)
		}
		if f.ReadOnly && f.WriteOnly {
			return fmt.Errorf("resource %s: field %s is both read_only and write_only", name, f.Name)
		}
		if err := f.prepareConstraints(); err != nil {
			return fmt.Errorf("resource %s: %w", name, err)
		}
	}
	if len(r._FieldIndex) != len(r.Fields) {
		return fmt.Errorf("resource %s: duplicate field names", name)
	}
	if r.Field(r.PrimaryKey) == nil {
		return fmt.Errorf("resource %s: primary key %s is not a field", name, r.PrimaryKey)
	}
	for _, m := range r.AllowedMethods {
		if !slices.Contains(allMethods, m) {
			return fmt.Errorf("resource %s: unknown method %q", name, m)
		}
	}
	for _, list := range [][]string{r.AllowedFilterFields, r.AllowedUpdateFields} {
		for _, fname := range list {
			if fname != Wildcard && r.Field(fname) == nil {
				return fmt.Errorf("resource %s: allow-list names unknown field %s", name, fname)
			}
		}
	}
	if r.SoftDelete != "" {
		f := r.Field(r.SoftDelete)
		if f == nil || f.Type != "bool" {
			return fmt.Errorf("resource %s: soft_delete field %s must be a bool field", name, r.SoftDelete)
		}
	}
	order, err := r.ParseOrder(strings.Join(r.Ordering, ","))
	if err != nil {
		return fmt.Errorf("resource %s: ordering: %w", name, err)
	}
	r._Order = order
	return nil
}

func (r *Resource) Field(name string) *Field {
	if r == nil {
		return nil
	}
	r.Prepare()
	return r._FieldIndex[name]
}

func (r *Resource) AllowsMethod(method string) bool {
	return slices.Contains(r.AllowedMethods, method)
}

func (r *Resource) FilterAllowed(field string) bool {
	return allowListed(r.AllowedFilterFields, field)
}

func (r *Resource) UpdateAllowed(field string) bool {
	return allowListed(r.AllowedUpdateFields, field)
}

func allowListed(list []string, field string) bool {
	return slices.Contains(list, Wildcard) || slices.Contains(list, field)
}

// Caching reports whether the resource opted in to caching.
func (r *Resource) Caching() bool {
	return r.Cache.Prefix != ""
}

// Columns lists every stored column in declaration order.
func (r *Resource) Columns() []string {
	cols := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// ParseOrder parses "field,-other" into orderings over readable fields.
func (r *Resource) ParseOrder(raw string) ([]Order, error) {
	var out []Order
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		o := Order{Field: part}
		if strings.HasPrefix(part, "-") {
			o = Order{Field: part[1:], Desc: true}
		}
		f := r.Field(o.Field)
		if f == nil || f.WriteOnly {
			return nil, fmt.Errorf("cannot order by %q", o.Field)
		}
		out = append(out, o)
	}
	return out, nil
}

// WithTieBreaker appends the primary key unless it already takes part in the ordering.
func (r *Resource) WithTieBreaker(order []Order) []Order {
	if len(order) == 0 {
		order = r._Order
	}
	out := slices.Clone(order)
	for _, o := range out {
		if o.Field == r.PrimaryKey {
			return out
		}
	}
	return append(out, Order{Field: r.PrimaryKey})
}
