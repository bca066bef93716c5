package query

import (
	"fmt"
	"strconv"
)

// Window is the half-open row range [Top, Bottom) requested by a list call.
type Window struct {
	Top      int
	Bottom   int
	PageSize int
}

// Page is the resolved slice of a paginated listing.
type Page struct {
	Number     int // 1-based, after clamping
	NumPages   int
	TotalCount int
	Offset     int
	Limit      int
}

type WindowError struct {
	Key    string
	Reason string
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Key, e.Reason)
}

// NewWindow resolves page/top/bottom for a page size. page wins over top;
// bottom defaults to top + pageSize.
func NewWindow(paging map[string]string, pageSize int) (Window, error) {
	if pageSize <= 0 {
		pageSize = 1
	}
	w := Window{PageSize: pageSize}

	top, hasTop, err := intParam(paging, "top")
	if err != nil {
		return w, err
	}
	if hasTop {
		w.Top = top
	}
	page, hasPage, err := intParam(paging, "page")
	if err != nil {
		return w, err
	}
	if hasPage {
		w.Top = (page - 1) * pageSize
	}

	bottom, hasBottom, err := intParam(paging, "bottom")
	if err != nil {
		return w, err
	}
	w.Bottom = w.Top + pageSize
	if hasBottom && bottom != 0 {
		if bottom < w.Top {
			return w, &WindowError{Key: "bottom", Reason: "must not be less than top"}
		}
		w.Bottom = bottom
	}
	return w, nil
}

func intParam(paging map[string]string, key string) (int, bool, error) {
	raw, ok := paging[key]
	if !ok || raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &WindowError{Key: key, Reason: "must be an integer"}
	}
	return n, true, nil
}

// Paginate places the window over total rows. The page holding Top is
// served; a page past the end or before the first resolves to the last
// page. An empty dataset reports zero pages and page 1.
func (w Window) Paginate(total int) Page {
	n := w.PageSize
	p := Page{TotalCount: total, Limit: n}
	if total > 0 {
		p.NumPages = (total + n - 1) / n
	}
	p.Number = floorDiv(w.Top, n) + 1
	if p.Number < 1 || p.Number > p.NumPages {
		p.Number = max(p.NumPages, 1)
	}
	p.Offset = (p.Number - 1) * n
	return p
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
