package model

import (
	"strings"
	"testing"
	"time"
)

func TestValidateRequiresTableAndFields(t *testing.T) {
	cases := map[string]*Resource{
		"table":  {Name: "x", Fields: []*Field{{Name: "id", Type: "int"}}},
		"fields": {Name: "x", Table: "xs"},
	}
	for want, res := range cases {
		err := res.Validate()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s error, got %v", want, err)
		}
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		res  *Resource
		want string
	}{
		{"no pk", &Resource{Table: "t", Fields: []*Field{{Name: "name", Type: "string"}}}, "primary key"},
		{"bad type", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "uuid"}}}, "unknown type"},
		{"bad method", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "int"}}, AllowedMethods: []string{"patch"}}, "unknown method"},
		{"bad filter", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "int"}}, AllowedFilterFields: []string{"nope"}}, "allow-list"},
		{"soft delete type", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "int"}, {Name: "removed", Type: "int"}}, SoftDelete: "removed"}, "soft_delete"},
		{"ordering", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "int"}}, Ordering: []string{"-missing"}}, "ordering"},
		{"choice type", &Resource{Table: "t", Fields: []*Field{{Name: "id", Type: "int"}, {Name: "n", Type: "int", Choices: []any{"a"}}}}, "choice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.res.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestPrepareDefaults(t *testing.T) {
	r := &Resource{Name: "genre", Table: "genres", Fields: []*Field{{Name: "id", Type: "int"}, {Name: "name", Type: "string"}}}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.PrimaryKey != "id" || r.PageSize != DefaultPageSize || r.Cache.TTL != DefaultCacheTTL {
		t.Fatalf("defaults not applied: %+v", r)
	}
	if r.Path != "/genre" {
		t.Fatalf("path = %q", r.Path)
	}
	if !r.AllowsMethod(MethodDelete) || !r.FilterAllowed("name") || !r.UpdateAllowed("name") {
		t.Fatalf("wildcard defaults not applied")
	}
	if !r.Field("id").ReadOnly {
		t.Fatalf("primary key must be read-only")
	}
	if r.Caching() {
		t.Fatalf("caching must be opt-in")
	}
}

func TestParseResourceYAML(t *testing.T) {
	data := []byte(`
table: books
path: /api/v1/book/
allowed_methods: list, retrieve, create
page_size: 5
ordering: [-id]
soft_delete: removed
cache:
  prefix: book
  ttl: 30m
fields:
  - name: id
    type: int
  - name: title
    type: string
    required: true
    max_length: 200
  - name: removed
    type: bool
    default: false
`)
	res, err := ParseResource("book", data)
	if err != nil {
		t.Fatalf("ParseResource: %v", err)
	}
	if err := res.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Path != "/api/v1/book" || res.Cache.TTL != 30*time.Minute || res.PageSize != 5 {
		t.Fatalf("decoded wrong: %+v", res)
	}
	if res.AllowsMethod(MethodDelete) {
		t.Fatalf("delete must not be allowed")
	}
	if got := res.Field("title").MaxLength; got != 200 {
		t.Fatalf("max_length = %d", got)
	}
}

func TestParseResourceRejectsUnknownKeys(t *testing.T) {
	cases := map[string]string{
		"resource key": "table: t\nrelations: {}\nfields:\n  - name: id\n    type: int\n",
		"field key":    "table: t\nfields:\n  - name: id\n    type: int\n    preset: x\n",
		"field type":   "table: t\nfields:\n  - name: id\n    type: UUID\n",
		"cache key":    "table: t\ncache:\n  prefix: t\n  size: 3\nfields:\n  - name: id\n    type: int\n",
		"auto value":   "table: t\nfields:\n  - name: id\n    type: int\n  - name: at\n    type: datetime\n    auto: later\n",
	}
	for name, src := range cases {
		if _, err := ParseResource("t", []byte(src)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParseOrderAndTieBreaker(t *testing.T) {
	r := bookFixture()

	order, err := r.ParseOrder("title, -rating")
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	got := r.WithTieBreaker(order)
	want := []Order{{Field: "title"}, {Field: "rating", Desc: true}, {Field: "id"}}
	if len(got) != len(want) {
		t.Fatalf("order = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, err := r.ParseOrder("secret"); err == nil {
		t.Fatalf("write-only field must not be orderable")
	}

	def := r.WithTieBreaker(nil)
	if len(def) != 2 || def[0] != (Order{Field: "created_at", Desc: true}) || def[1].Field != "id" {
		t.Fatalf("default ordering = %+v", def)
	}
}

func TestValidateAllRejectsDuplicatePaths(t *testing.T) {
	a := &Resource{Name: "a", Table: "a", Path: "/x", Fields: []*Field{{Name: "id", Type: "int"}}}
	b := &Resource{Name: "b", Table: "b", Path: "/x/", Fields: []*Field{{Name: "id", Type: "int"}}}
	if err := ValidateAll(map[string]*Resource{"a": a, "b": b}); err == nil {
		t.Fatalf("expected duplicate path error")
	}
}
