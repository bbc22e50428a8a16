package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/go-cmp/cmp"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"short string unchanged", "cloneA/pool1", 20, "cloneA/pool1"},
		{"exact length unchanged", "pool1", 5, "pool1"},
		{"long error truncated", "PipelineExecutionError: exit status 2", 14, "PipelineExe..."},
		{"tiny maxLen returns ellipsis", "pool1", 3, "..."},
		{"negative maxLen returns ellipsis", "pool1", -5, "..."},
		{"empty string unchanged", "", 10, ""},
		{"unicode counted by rune", "日本語テスト", 5, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	tests := []struct {
		name     string
		input    string
		maxWidth int
		check    func(t *testing.T, result string)
	}{
		{
			name:     "plain string truncated",
			input:    "cloneA/pool1 failed",
			maxWidth: 8,
			check: func(t *testing.T, result string) {
				if result != "clone..." {
					t.Errorf("expected 'clone...', got %q", result)
				}
			},
		},
		{
			name:     "tiny maxWidth returns ellipsis",
			input:    "failed",
			maxWidth: 2,
			check: func(t *testing.T, result string) {
				if result != "..." {
					t.Errorf("expected '...', got %q", result)
				}
			},
		},
		{
			name:     "styled string preserved when it fits",
			input:    red.Render("failed"),
			maxWidth: 10,
			check: func(t *testing.T, result string) {
				if result != red.Render("failed") {
					t.Errorf("styled string was modified when it shouldn't be")
				}
			},
		},
		{
			name:     "styled string truncated respects width",
			input:    red.Render("PipelineExecutionError"),
			maxWidth: 8,
			check: func(t *testing.T, result string) {
				if w := lipgloss.Width(result); w > 8 {
					t.Errorf("result width %d exceeds maxWidth 8", w)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, TruncateANSI(tt.input, tt.maxWidth))
		})
	}
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		n     int
		want  []string
	}{
		{"empty", "", 3, nil},
		{"only newlines", "\n\n", 3, nil},
		{"zero n", "a\nb", 0, nil},
		{"fewer lines than n", "a\nb\n", 5, []string{"a", "b"}},
		{"keeps the tail", "1\n2\n3\n4\n", 2, []string{"3", "4"}},
		{"crlf", "x\r\ny\r\n", 5, []string{"x", "y"}},
		{"blank lines inside are kept", "a\n\nb", 3, []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, TailLines(tt.input, tt.n)); diff != "" {
				t.Errorf("TailLines() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"ok", 5, "ok   "},
		{"exact", 5, "exact"},
		{"longer", 3, "longer"},
		{"日本", 6, "日本  "},
	}
	for _, tt := range tests {
		if got := PadRight(tt.input, tt.width); got != tt.want {
			t.Errorf("PadRight(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
	}
}
