package model

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildListQueryFiltersExcludesAndWindow(t *testing.T) {
	r := bookFixture()
	q := ListQuery{
		Criteria: Criteria{
			Filters:  []Predicate{{Field: "author", Value: "Herbert"}, {Field: "status", Value: []any{"draft", "published"}}},
			Excludes: []Predicate{{Field: "title", Value: "Dune"}},
		},
		Order:  []Order{{Field: "title"}},
		Offset: 20,
		Limit:  10,
	}

	sb, err := r.BuildListQuery(q)
	if err != nil {
		t.Fatalf("BuildListQuery: %v", err)
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	for _, want := range []string{
		"SELECT id, title, author,",
		"FROM books",
		"author = $1",
		"status IN ($2,$3)",
		"NOT COALESCE((",
		"title = $4",
		"), FALSE)",
		"ORDER BY title ASC, id ASC",
		"LIMIT",
		"OFFSET",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected %q in SQL: %s", want, sql)
		}
	}
	if diff := cmp.Diff([]any{"Herbert", "draft", "published", "Dune"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildListQueryDefaultOrdering(t *testing.T) {
	r := bookFixture()
	sb, err := r.BuildListQuery(ListQuery{})
	if err != nil {
		t.Fatalf("BuildListQuery: %v", err)
	}
	sql, args, _ := sb.ToSql()
	if strings.Contains(sql, "WHERE") {
		t.Fatalf("unexpected WHERE: %s", sql)
	}
	if !strings.Contains(sql, "ORDER BY created_at DESC, id ASC") {
		t.Fatalf("expected default ordering with pk tie-breaker: %s", sql)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildWhereClauseNullFilter(t *testing.T) {
	r := bookFixture()
	where, err := r.BuildWhereClause(Criteria{Filters: []Predicate{{Field: "pages", Value: nil}}})
	if err != nil {
		t.Fatalf("BuildWhereClause: %v", err)
	}
	sql, _, _ := where.ToSql()
	if !strings.Contains(sql, "pages IS NULL") {
		t.Fatalf("expected IS NULL, got %s", sql)
	}
}

func TestBuildWhereClauseRejectsUnknownColumn(t *testing.T) {
	r := bookFixture()
	if _, err := r.BuildWhereClause(Criteria{Excludes: []Predicate{{Field: "nope", Value: 1}}}); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestBuildCountQuery(t *testing.T) {
	r := bookFixture()
	sb, err := r.BuildCountQuery(Criteria{Filters: []Predicate{{Field: "removed", Value: false}}})
	if err != nil {
		t.Fatalf("BuildCountQuery: %v", err)
	}
	sql, args, _ := sb.ToSql()
	if !strings.Contains(sql, "SELECT COUNT(*) FROM books WHERE") || !strings.Contains(sql, "removed = $1") {
		t.Fatalf("unexpected SQL: %s", sql)
	}
	if len(args) != 1 || args[0] != false {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildGetQuery(t *testing.T) {
	r := bookFixture()
	sb, err := r.BuildGetQuery(Criteria{Filters: []Predicate{{Field: "id", Value: int64(7)}}})
	if err != nil {
		t.Fatalf("BuildGetQuery: %v", err)
	}
	sql, args, _ := sb.ToSql()
	if !strings.Contains(sql, "id = $1") || !strings.Contains(sql, "LIMIT") {
		t.Fatalf("unexpected SQL: %s", sql)
	}
	if len(args) != 1 || args[0] != int64(7) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildMutations(t *testing.T) {
	r := bookFixture()

	ib, err := r.BuildInsert(Record{"title": "Dune", "author": "Herbert"})
	if err != nil {
		t.Fatalf("BuildInsert: %v", err)
	}
	sql, args, err := ib.ToSql()
	if err != nil {
		t.Fatalf("insert ToSql: %v", err)
	}
	if !strings.HasPrefix(sql, "INSERT INTO books (author,title) VALUES ($1,$2) RETURNING id, title") {
		t.Fatalf("unexpected insert SQL: %s", sql)
	}
	if diff := cmp.Diff([]any{"Herbert", "Dune"}, args); diff != "" {
		t.Fatalf("insert args (-want +got):\n%s", diff)
	}

	ub, err := r.BuildUpdate(int64(3), Record{"title": "Dune Messiah", "removed": true})
	if err != nil {
		t.Fatalf("BuildUpdate: %v", err)
	}
	sql, args, err = ub.ToSql()
	if err != nil {
		t.Fatalf("update ToSql: %v", err)
	}
	if !strings.HasPrefix(sql, "UPDATE books SET removed = $1, title = $2 WHERE id = $3 RETURNING") {
		t.Fatalf("unexpected update SQL: %s", sql)
	}
	if diff := cmp.Diff([]any{true, "Dune Messiah", int64(3)}, args); diff != "" {
		t.Fatalf("update args (-want +got):\n%s", diff)
	}

	if _, err := r.BuildUpdate(int64(3), Record{}); err == nil {
		t.Fatalf("empty update must fail")
	}
	if _, err := r.BuildInsert(Record{"bogus": 1}); err == nil {
		t.Fatalf("unknown column must fail")
	}

	sql, args, _ = r.BuildDelete(int64(3)).ToSql()
	if sql != "DELETE FROM books WHERE id = $1" || len(args) != 1 {
		t.Fatalf("unexpected delete SQL: %s %v", sql, args)
	}
}
