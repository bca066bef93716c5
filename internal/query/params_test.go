package query

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseValue(t *testing.T) {
	cases := []struct {
		raw  string
		want any
	}{
		{"42", json.Number("42")},
		{"true", true},
		{"null", nil},
		{`"quoted"`, "quoted"},
		{"Herbert", "Herbert"},
		{"a, b ,c", []any{"a", "b", "c"}},
		{"a,", "a"},
		{" , ,", nil},
		{"12abc", "12abc"},
		{"", ""},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ParseValue(tc.raw)); diff != "" {
			t.Fatalf("ParseValue(%q) mismatch (-want +got):\n%s", tc.raw, diff)
		}
	}
}

func TestParseSplitsFiltersExcludesAndPaging(t *testing.T) {
	values := url.Values{
		"author":          {"Herbert"},
		"exclude__status": {"draft,archived"},
		"page":            {" 2 "},
		"order_by":        {"-title"},
		"secret":          {"x"},
		"exclude__secret": {"y"},
	}
	p := Parse(values, []string{"author", "status"})

	if diff := cmp.Diff(map[string]any{"author": "Herbert"}, p.Filters); diff != "" {
		t.Fatalf("filters (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{"status": []any{"draft", "archived"}}, p.Excludes); diff != "" {
		t.Fatalf("excludes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"page": "2", "order_by": "-title"}, p.Paging); diff != "" {
		t.Fatalf("paging (-want +got):\n%s", diff)
	}
}

func TestParseReservedKeysBypassAllowList(t *testing.T) {
	p := Parse(url.Values{"top": {"10"}, "bottom": {"20"}}, []string{"title"})
	if p.Paging["top"] != "10" || p.Paging["bottom"] != "20" {
		t.Fatalf("reserved keys must reach paging: %v", p.Paging)
	}
	if len(p.Filters) != 0 {
		t.Fatalf("reserved keys must not become filters: %v", p.Filters)
	}
}

func TestParseWildcardAndLastValueWins(t *testing.T) {
	p := Parse(url.Values{"title": {"first", "second"}, "exclude__": {"x"}}, []string{"*"})
	if p.Filters["title"] != "second" {
		t.Fatalf("last value must win, got %v", p.Filters["title"])
	}
	if len(p.Excludes) != 0 {
		t.Fatalf("bare exclude prefix must be ignored: %v", p.Excludes)
	}
}
