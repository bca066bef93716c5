package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestEventsAreJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard); SetDebug(false) })

	Info("view_built", map[string]any{"resource": "book"})
	Debug("hidden", nil)
	SetDebug(true)
	Debug("shown", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev["message"] != "view_built" || ev["level"] != "info" || ev["resource"] != "book" {
		t.Fatalf("unexpected event: %v", ev)
	}
	if !strings.Contains(lines[1], `"message":"shown"`) {
		t.Fatalf("debug line missing: %s", lines[1])
	}
}
