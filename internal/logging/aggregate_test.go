package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadEntriesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	run := logger.WithRun("run-7")
	run.Info("batch started", "pairs", 2)
	run.WithPair("cloneA", "pool1").Info("pair finished", "status", "success")
	run.WithPair("cloneB", "pool2").WithStep("pipeline").Error("pair failed", "exit_code", 3)
	_ = logger.Close()

	entries, err := ReadEntries(dir)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	last := entries[2]
	if last.RunID != "run-7" || last.Clone != "cloneB" || last.Pool != "pool2" || last.Step != "pipeline" {
		t.Errorf("unexpected structured fields: %+v", last)
	}
	if last.Attrs["exit_code"] != float64(3) {
		t.Errorf("exit_code attr = %v, want 3", last.Attrs["exit_code"])
	}
	if _, ok := last.Attrs["msg"]; ok {
		t.Error("standard fields must not leak into Attrs")
	}
}

func TestReadEntriesMissingFile(t *testing.T) {
	if _, err := ReadEntries(t.TempDir()); err == nil {
		t.Error("expected error for missing log file")
	}
}

func TestParseEntriesSkipsGarbage(t *testing.T) {
	input := strings.Join([]string{
		`{"time":"2026-01-02T03:04:05Z","level":"INFO","msg":"ok"}`,
		`not json`,
		``,
		`{"time":"2026-01-02T03:04:06Z","level":"WARN","msg":"second"}`,
	}, "\n")

	entries, err := ParseEntries(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[1].Message != "second" {
		t.Errorf("second message = %q", entries[1].Message)
	}
}

func TestFilterEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug)
	logger.WithRun("r1").WithPair("cloneA", "pool1").Debug("composed command")
	logger.WithRun("r1").WithPair("cloneA", "pool1").Error("Pipeline failed")
	logger.WithRun("r2").WithPair("cloneB", "pool1").Warn("archive partial")

	entries, err := ParseEntries(&buf)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"empty filter", Filter{}, 3},
		{"level warn", Filter{Level: "warn"}, 2},
		{"run", Filter{RunID: "r1"}, 2},
		{"clone", Filter{Clone: "cloneB"}, 1},
		{"pool", Filter{Pool: "pool1"}, 3},
		{"message case-insensitive", Filter{MessageContains: "pipeline"}, 1},
		{"combined", Filter{RunID: "r1", Level: LevelError}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(FilterEntries(entries, tt.filter)); got != tt.want {
				t.Errorf("FilterEntries() returned %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatEntry(t *testing.T) {
	entries, _ := ParseEntries(strings.NewReader(
		`{"time":"2026-01-02T03:04:05Z","level":"ERROR","msg":"pair failed","clone":"c","pool":"p","step":"score","b":2,"a":1}`,
	))
	got := FormatEntry(entries[0])
	want := "2026-01-02 03:04:05 ERROR [c/p] (score) pair failed a=1 b=2"
	if got != want {
		t.Errorf("FormatEntry() = %q, want %q", got, want)
	}
}
