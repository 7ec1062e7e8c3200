package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// #region new-tests
func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", "json", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Debug("hidden")
	Component(l, "loader").Info("loaded", zap.Int("number", 12))
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["component"] != "loader" {
		t.Errorf("expected component 'loader', got %v", entry["component"])
	}
	if entry["logger"] != "loader" {
		t.Errorf("expected logger name 'loader', got %v", entry["logger"])
	}
	if entry["msg"] != "loaded" {
		t.Errorf("expected msg 'loaded', got %v", entry["msg"])
	}
	if entry["number"] != float64(12) {
		t.Errorf("expected number 12, got %v", entry["number"])
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("DEBUG", "console", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Debug("visible")
	_ = l.Sync()
	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "visible") {
		t.Errorf("unexpected console output: %q", buf.String())
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// #endregion new-tests

// #region component-tests
func TestComponent_NilParent(t *testing.T) {
	l := Component(nil, "x")
	if l == nil {
		t.Fatal("expected a logger")
	}
	l.Info("dropped")
	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
}

// #endregion component-tests
