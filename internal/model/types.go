package model

import "time"

// Resource describes one REST resource in the configuration.
type Resource struct {
	Name                string     `yaml:"-"` // logical name, taken from the file name
	Table               string     `yaml:"table"`
	Path                string     `yaml:"path"`
	PrimaryKey          string     `yaml:"primary_key"`
	Fields              []*Field   `yaml:"fields"`
	AllowedMethods      StringList `yaml:"allowed_methods"`
	AllowedFilterFields StringList `yaml:"allowed_filter_fields"`
	AllowedUpdateFields StringList `yaml:"allowed_update_fields"`
	PageSize            int        `yaml:"page_size"`
	Ordering            StringList `yaml:"ordering"`
	Cache               CacheSpec  `yaml:"cache"`
	SoftDelete          string     `yaml:"soft_delete"` // bool column set instead of deleting the row
	AuthRequired        bool       `yaml:"auth_required"`
	Hooks               string     `yaml:"hooks"` // named hook set, resolved by the resources package

	// runtime, filled by Prepare
	_FieldIndex map[string]*Field `yaml:"-"`
	_Order      []Order           `yaml:"-"`
	_Prepared   bool              `yaml:"-"`
}

type CacheSpec struct {
	Prefix string        `yaml:"prefix"` // empty disables caching for the resource
	TTL    time.Duration `yaml:"ttl"`
}

// Field is one entry of the serialization contract.
type Field struct {
	Name      string   `yaml:"name"`
	Type      string   `yaml:"type"` // int, float, string, text, bool, date, datetime
	ReadOnly  bool     `yaml:"read_only"`
	WriteOnly bool     `yaml:"write_only"`
	Required  bool     `yaml:"required"`
	Nullable  bool     `yaml:"nullable"`
	Default   any      `yaml:"default"`
	MaxLength int      `yaml:"max_length"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Choices   []any    `yaml:"choices"`
	Format    string   `yaml:"format"` // email, url
	Auto      string   `yaml:"auto"`   // now_add, now
}

// Record is one row keyed by column name.
type Record map[string]any

// Predicate is an equality test, or a membership test when Value is []any.
type Predicate struct {
	Field string
	Value any
}

// Criteria selects rows: every filter must hold and the excludes must not all hold.
type Criteria struct {
	Filters  []Predicate
	Excludes []Predicate
}

type Order struct {
	Field string
	Desc  bool
}

// ListQuery is a filtered, ordered window over a resource.
type ListQuery struct {
	Criteria Criteria
	Order    []Order
	Offset   int
	Limit    int
}

// WriteMode selects how a payload is validated against the contract.
type WriteMode int

const (
	ModeCreate  WriteMode = iota // required fields enforced, defaults applied
	ModeReplace                  // required fields enforced, no defaults
	ModePartial                  // only the supplied fields are checked
)

const (
	MethodList     = "list"
	MethodRetrieve = "retrieve"
	MethodCreate   = "create"
	MethodUpdate   = "update"
	MethodDelete   = "delete"
)

const (
	DefaultPageSize = 20
	DefaultCacheTTL = time.Hour
	Wildcard        = "*"
)

var allMethods = []string{MethodList, MethodRetrieve, MethodCreate, MethodUpdate, MethodDelete}
