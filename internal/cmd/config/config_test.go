package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	appconfig "github.com/Iron-Ham/ssbatch/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    any
		wantErr bool
	}{
		{"batch.workers", "4", 4, false},
		{"batch.workers", "four", nil, true},
		{"batch.halt_on_error", "true", true, false},
		{"batch.halt_on_error", "yes", nil, true},
		{"batch.layout", "clone/pool", "clone/pool", false},
		{"pipeline.timeout", "90m", "1h30m0s", false},
		{"pipeline.timeout", "soon", nil, true},
		{"mount.password", "secret", nil, true},
		{"ice.session_id", "abc", nil, true},
		{"no.such.key", "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, err := parseValue(tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseValue(%q, %q) error = nil, want error", tt.key, tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseValue(%q, %q) error = %v", tt.key, tt.value, err)
			}
			if got != tt.want {
				t.Errorf("parseValue(%q, %q) = %v, want %v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestValidKeysSorted(t *testing.T) {
	keys := ValidKeys()
	if len(keys) != len(validKeys) {
		t.Fatalf("ValidKeys() returned %d keys, want %d", len(keys), len(validKeys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("ValidKeys() not sorted at %d: %q >= %q", i, keys[i-1], keys[i])
		}
	}
}

func TestConfigInit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	if err := runConfigInit(cmd, nil); err != nil {
		t.Fatalf("runConfigInit() error = %v", err)
	}

	path := appconfig.ConfigFile()
	if filepath.Dir(path) != appconfig.ConfigDir() {
		t.Errorf("ConfigFile() = %q, not under %q", path, appconfig.ConfigDir())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("# ssbatch configuration")) {
		t.Errorf("config file does not start with the header:\n%s", data)
	}

	var got appconfig.Config
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("config file is not valid YAML: %v", err)
	}
	want := appconfig.Default()
	if got.Batch != want.Batch {
		t.Errorf("batch section = %+v, want %+v", got.Batch, want.Batch)
	}
	if got.Pipeline.Program != want.Pipeline.Program || got.Pipeline.Mode != want.Pipeline.Mode {
		t.Errorf("pipeline section = %+v, want %+v", got.Pipeline, want.Pipeline)
	}
	if bytes.Contains(data, []byte("password")) || bytes.Contains(data, []byte("session_id")) {
		t.Errorf("config file must not contain secrets:\n%s", data)
	}

	if err := runConfigInit(cmd, nil); err == nil {
		t.Error("second runConfigInit() error = nil, want already exists")
	}
}
