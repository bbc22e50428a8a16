package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Entry is one parsed line of the JSON batch log.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	RunID   string         `json:"run_id,omitempty"`
	Clone   string         `json:"clone,omitempty"`
	Pool    string         `json:"pool,omitempty"`
	Step    string         `json:"step,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Filter selects log entries. Zero-valued fields match everything.
type Filter struct {
	Level           string
	RunID           string
	Clone           string
	Pool            string
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadEntries parses {logDir}/ssbatch.log. Lines that are not valid JSON
// are skipped so a truncated tail does not hide the rest of the log.
func ReadEntries(logDir string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(logDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file in %s: %w", logDir, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseEntries(f)
}

// ParseEntries parses JSON log lines from r in file order.
func ParseEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var entries []Entry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log: %w", err)
	}
	return entries, nil
}

func parseEntry(line string) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, err
	}

	e := Entry{Attrs: make(map[string]any)}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}

	if ts := take("time"); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Time = t
		}
	}
	e.Level = take("level")
	e.Message = take("msg")
	e.RunID = take("run_id")
	e.Clone = take("clone")
	e.Pool = take("pool")
	e.Step = take("step")
	for k, v := range raw {
		e.Attrs[k] = v
	}
	return e, nil
}

// FilterEntries returns the entries matching f, preserving order.
func FilterEntries(entries []Entry, f Filter) []Entry {
	minLevel := -1
	if f.Level != "" {
		minLevel = levelOrder[strings.ToUpper(f.Level)]
	}

	var out []Entry
	for _, e := range entries {
		if minLevel >= 0 && levelOrder[strings.ToUpper(e.Level)] < minLevel {
			continue
		}
		if f.RunID != "" && e.RunID != f.RunID {
			continue
		}
		if f.Clone != "" && e.Clone != f.Clone {
			continue
		}
		if f.Pool != "" && e.Pool != f.Pool {
			continue
		}
		if f.MessageContains != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.MessageContains)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FormatEntry renders an entry as a single human-readable line.
func FormatEntry(e Entry) string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, " %-5s", e.Level)
	if e.Clone != "" || e.Pool != "" {
		fmt.Fprintf(&sb, " [%s/%s]", e.Clone, e.Pool)
	}
	if e.Step != "" {
		fmt.Fprintf(&sb, " (%s)", e.Step)
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Attrs)) {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}
