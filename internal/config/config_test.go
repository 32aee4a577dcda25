package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"censys-toolkit/internal/formatter"
	"censys-toolkit/internal/model"
)

// clearEnv blanks every setting so the developer's environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{APIID, APISecret, APIURL, Timeout, CacheDir, CacheTTL, MaxRetries, RateLimit, OutputDir, PageSize, MaxPages, DataAge, OutputFormat, Debug, LogFile} {
		name := strings.ToUpper(key)
		if old, ok := os.LookupEnv(name); ok {
			t.Setenv(name, old)
			os.Unsetenv(name)
		}
	}
}

func setup(t *testing.T, home, workdir string) *viper.Viper {
	t.Helper()
	v := viper.New()
	if err := Setup(v, home, workdir); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return v
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(setup(t, t.TempDir(), t.TempDir()))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Timeout != 300*time.Second || cfg.CacheTTL != time.Hour || cfg.MaxRetries != 3 || cfg.RateLimit != 1 {
		t.Fatalf("unexpected client defaults: %+v", cfg)
	}
	if cfg.PageSize != 50 || cfg.MaxPages != -1 || cfg.DataAge != model.FreshnessAll || cfg.OutputFormat != formatter.KindJSON {
		t.Fatalf("unexpected collection defaults: %+v", cfg)
	}
	if cfg.APIURL != "https://search.censys.io/api" || cfg.HasCredentials() || cfg.Debug {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestPrecedence(t *testing.T) {
	clearEnv(t)
	home, workdir := t.TempDir(), t.TempDir()
	yaml := "censys_api_id: from-yaml\ncensys_api_secret: yaml-secret\ndefault_page_size: 25\nmax_pages: 4\n"
	if err := os.WriteFile(filepath.Join(home, ".censys.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	dotenv := "CENSYS_API_ID=from-dotenv\nDATA_AGE=7\n"
	if err := os.WriteFile(filepath.Join(workdir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MAX_PAGES", "9")
	t.Setenv("CENSYS_TIMEOUT", "2m")

	cfg, err := LoadFrom(setup(t, home, workdir))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.APIID != "from-dotenv" || cfg.APISecret != "yaml-secret" {
		t.Fatalf("credentials = %q/%q", cfg.APIID, cfg.APISecret)
	}
	if cfg.PageSize != 25 || cfg.MaxPages != 9 || cfg.DataAge != 7 || cfg.Timeout != 2*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"DEFAULT_PAGE_SIZE":  "500",
		"MAX_PAGES":          "0",
		"DATA_AGE":           "30",
		"OUTPUT_FORMAT":      "xml",
		"CENSYS_TIMEOUT":     "soon",
		"CENSYS_MAX_RETRIES": "-1",
		"CENSYS_RATE_LIMIT":  "fast",
	}
	for env, value := range tests {
		t.Run(env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(env, value)
			_, err := LoadFrom(setup(t, t.TempDir(), t.TempDir()))
			var cfgErr *model.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("%s=%s: error = %v; want *model.ConfigurationError", env, value, err)
			}
		})
	}
}

func TestSetCredentialsKeepsOtherSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".censys.yaml")
	if err := os.WriteFile(path, []byte("output_dir: /tmp/results\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := SetCredentialsIn(dir, " my-id ", "my-secret")
	if err != nil {
		t.Fatalf("SetCredentialsIn: %v", err)
	}
	if written != path {
		t.Fatalf("wrote %s; want %s", written, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	if v.GetString(APIID) != "my-id" || v.GetString(APISecret) != "my-secret" || v.GetString(OutputDir) != "/tmp/results" {
		t.Fatalf("file settings = %v", v.AllSettings())
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("credentials file mode = %v; want 0600", info.Mode().Perm())
	}

	var cfgErr *model.ConfigurationError
	if _, err := SetCredentialsIn(dir, "id", ""); !errors.As(err, &cfgErr) {
		t.Fatalf("empty secret error = %v", err)
	}
}

func TestSetCredentialsCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := SetCredentialsIn(dir, "id", "secret"); err != nil {
		t.Fatalf("SetCredentialsIn: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".censys.yaml")); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	for in, want := range map[string]string{"": "(not set)", "abc": "***", "supersecret": "*******cret"} {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q; want %q", in, got, want)
		}
	}
}
