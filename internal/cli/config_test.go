package cli

import (
	"os"
	"path/filepath"
	"testing"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Run from an empty directory so no config file is found.
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	want := defaultConfig()
	if cfg != want {
		t.Errorf("loadConfig() = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "mode = \"always-spec\"\nfull-buffer = false\ntop = 5\naddr = \":9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Mode != "always-spec" || cfg.FullBuffer || cfg.Top != 5 || cfg.Addr != ":9000" {
		t.Errorf("loadConfig() = %+v", cfg)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("top = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Top != 3 {
		t.Errorf("Top = %d, want 3", cfg.Top)
	}
	// Unset keys keep their defaults.
	if cfg.Mode != defaultConfig().Mode || cfg.Addr != defaultConfig().Addr {
		t.Errorf("unset keys lost defaults: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		wantCode herrors.Code
	}{
		{name: "malformed toml", content: "mode = [", wantCode: herrors.ErrCodeInvalidInput},
		{name: "unknown mode", content: "mode = \"bogus\"\n", wantCode: herrors.ErrCodeInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := loadConfig(path)
			if herrors.GetCode(err) != tt.wantCode {
				t.Errorf("loadConfig() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(dir, "absent.toml"))
		if herrors.GetCode(err) != herrors.ErrCodeFileNotFound {
			t.Errorf("loadConfig() error = %v, want FILE_NOT_FOUND", err)
		}
	})
}

func TestFindConfigCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := os.WriteFile(configFileName, []byte("top = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	found, err := findConfig()
	if err != nil {
		t.Fatalf("findConfig() error = %v", err)
	}
	if found != configFileName {
		t.Errorf("findConfig() = %q, want %q", found, configFileName)
	}
}
