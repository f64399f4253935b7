package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/raysh454/trygglink/internal/logging"
)

type entry struct {
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component"`
	Fields    map[string]any `json:"fields"`
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLogger_WritesJSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewLogger(&buf, "engine", logging.LevelDebug)

	l.Info("scan finished", logging.Field{Key: "score", Value: 42})

	got := decodeLines(t, &buf)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Level != "info" || got[0].Msg != "scan finished" || got[0].Component != "engine" {
		t.Errorf("unexpected entry: %+v", got[0])
	}
	if got[0].Fields["score"] != float64(42) {
		t.Errorf("expected score field 42, got %v", got[0].Fields["score"])
	}
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := logging.NewLogger(&buf, "", logging.LevelWarn)

	l.Debug("noise")
	l.Info("noise")
	l.Warn("kept")
	l.Error("kept too")

	if got := decodeLines(t, &buf); len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestLogger_WithCarriesFieldsAndComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	root := logging.NewLogger(&buf, "root", logging.LevelInfo)
	child := root.With(logging.Field{Key: "component", Value: "store"}, logging.Field{Key: "db", Value: "x.db"})

	child.Warn("slow query", logging.Err(errors.New("boom")))

	got := decodeLines(t, &buf)
	if got[0].Component != "store" {
		t.Errorf("expected component store, got %q", got[0].Component)
	}
	if got[0].Fields["db"] != "x.db" || got[0].Fields["error"] != "boom" {
		t.Errorf("unexpected fields: %v", got[0].Fields)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]logging.Level{
		"debug": logging.LevelDebug, "WARN": logging.LevelWarn,
		"error": logging.LevelError, "": logging.LevelInfo, "bogus": logging.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
