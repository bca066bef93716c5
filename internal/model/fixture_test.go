package model

func fptr(v float64) *float64 { return &v }

func bookFixture() *Resource {
	r := &Resource{
		Name:  "book",
		Table: "books",
		Path:  "/api/v1/book",
		Fields: []*Field{
			{Name: "id", Type: "int"},
			{Name: "title", Type: "string", Required: true, MaxLength: 10},
			{Name: "author", Type: "string", Required: true},
			{Name: "rating", Type: "float", Min: fptr(0), Max: fptr(5), Default: 0},
			{Name: "pages", Type: "int", Nullable: true, Min: fptr(1)},
			{Name: "status", Type: "string", Choices: []any{"draft", "published"}, Default: "draft"},
			{Name: "contact", Type: "string", Format: "email", Nullable: true},
			{Name: "secret", Type: "string", WriteOnly: true, Nullable: true},
			{Name: "created_by", Type: "int", ReadOnly: true},
			{Name: "created_at", Type: "datetime", Auto: "now_add"},
			{Name: "updated_at", Type: "datetime", Auto: "now"},
			{Name: "removed", Type: "bool", Default: false},
		},
		AllowedFilterFields: []string{"title", "author", "status", "removed", "created_by"},
		Ordering:            []string{"-created_at"},
		SoftDelete:          "removed",
	}
	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}
