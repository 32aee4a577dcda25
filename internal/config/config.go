package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"censys-toolkit/internal/formatter"
	"censys-toolkit/internal/model"
)

// Setting keys. With AutomaticEnv each key also reads the upper-cased
// environment variable, e.g. censys_api_id from CENSYS_API_ID.
const (
	APIID        = "censys_api_id"
	APISecret    = "censys_api_secret"
	APIURL       = "censys_api_url"
	Timeout      = "censys_timeout"
	CacheDir     = "censys_cache_dir"
	CacheTTL     = "censys_cache_ttl"
	MaxRetries   = "censys_max_retries"
	RateLimit    = "censys_rate_limit"
	OutputDir    = "output_dir"
	PageSize     = "default_page_size"
	MaxPages     = "max_pages"
	DataAge      = "data_age"
	OutputFormat = "output_format"
	Debug        = "debug"
	LogFile      = "log_file"
)

const (
	configName = ".censys"
	configType = "yaml"
	envFile    = ".env"
)

// SetDefaults registers the documented fallback values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(APIURL, "https://search.censys.io/api")
	v.SetDefault(Timeout, "300")
	v.SetDefault(CacheTTL, "1h")
	v.SetDefault(MaxRetries, "3")
	v.SetDefault(RateLimit, "1")
	v.SetDefault(PageSize, "50")
	v.SetDefault(MaxPages, "-1")
	v.SetDefault(DataAge, "all")
	v.SetDefault(OutputFormat, "json")
	v.SetDefault(Debug, false)
}

// Setup wires v to $home/.censys.yaml, then workdir/.env, then the environment.
// Missing files are not an error.
func Setup(v *viper.Viper, home, workdir string) error {
	SetDefaults(v)

	if home != "" {
		v.AddConfigPath(home)
	}
	v.SetConfigType(configType)
	v.SetConfigName(configName)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	envPath := filepath.Join(workdir, envFile)
	if _, err := os.Stat(envPath); err == nil {
		dotenv := viper.New()
		dotenv.SetConfigFile(envPath)
		dotenv.SetConfigType("env")
		if err := dotenv.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", envPath, err)
		}
		if err := v.MergeConfigMap(dotenv.AllSettings()); err != nil {
			return fmt.Errorf("merge %s: %w", envPath, err)
		}
	}

	v.AutomaticEnv()
	return nil
}

// InitConfig sets up the global viper instance.
func InitConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := Setup(viper.GetViper(), home, "."); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
}

// Config is the resolved configuration handed to the components.
type Config struct {
	APIID        string
	APISecret    string
	APIURL       string
	Timeout      time.Duration
	CacheDir     string
	CacheTTL     time.Duration
	MaxRetries   int
	RateLimit    float64
	OutputDir    string
	PageSize     int
	MaxPages     int
	DataAge      model.Freshness
	OutputFormat formatter.Kind
	Debug        bool
	LogFile      string
}

// Load reads the global viper instance.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	cfg := Config{
		APIID:     strings.TrimSpace(v.GetString(APIID)),
		APISecret: strings.TrimSpace(v.GetString(APISecret)),
		APIURL:    strings.TrimSpace(v.GetString(APIURL)),
		CacheDir:  expandHome(v.GetString(CacheDir)),
		OutputDir: expandHome(v.GetString(OutputDir)),
		Debug:     v.GetBool(Debug),
		LogFile:   expandHome(v.GetString(LogFile)),
	}

	var err error
	if cfg.Timeout, err = durationSetting(v, Timeout); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = durationSetting(v, CacheTTL); err != nil {
		return cfg, err
	}
	if cfg.MaxRetries, err = intSetting(v, MaxRetries); err != nil {
		return cfg, err
	}
	if cfg.PageSize, err = intSetting(v, PageSize); err != nil {
		return cfg, err
	}
	if cfg.MaxPages, err = intSetting(v, MaxPages); err != nil {
		return cfg, err
	}
	rate := strings.TrimSpace(v.GetString(RateLimit))
	if cfg.RateLimit, err = strconv.ParseFloat(rate, 64); err != nil {
		return cfg, &model.ConfigurationError{Setting: RateLimit, Value: rate, Reason: "not a number"}
	}
	if cfg.DataAge, err = model.ParseFreshness(v.GetString(DataAge)); err != nil {
		return cfg, err
	}
	if cfg.OutputFormat, err = formatter.ParseKind(v.GetString(OutputFormat)); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges; credentials are checked by the commands that need them.
func (c Config) Validate() error {
	switch {
	case c.PageSize < 1 || c.PageSize > model.MaxPageSize:
		return &model.ConfigurationError{Setting: PageSize, Value: strconv.Itoa(c.PageSize), Reason: "must be between 1 and 100"}
	case c.MaxPages != model.UnboundedPages && c.MaxPages < 1:
		return &model.ConfigurationError{Setting: MaxPages, Value: strconv.Itoa(c.MaxPages), Reason: "use -1 for all pages or a positive count"}
	case c.Timeout <= 0:
		return &model.ConfigurationError{Setting: Timeout, Value: c.Timeout.String(), Reason: "must be positive"}
	case c.CacheTTL < 0:
		return &model.ConfigurationError{Setting: CacheTTL, Value: c.CacheTTL.String(), Reason: "must not be negative"}
	case c.MaxRetries < 0:
		return &model.ConfigurationError{Setting: MaxRetries, Value: strconv.Itoa(c.MaxRetries), Reason: "must not be negative"}
	case c.RateLimit < 0:
		return &model.ConfigurationError{Setting: RateLimit, Value: strconv.FormatFloat(c.RateLimit, 'f', -1, 64), Reason: "must not be negative"}
	case c.APIURL == "":
		return &model.ConfigurationError{Setting: APIURL, Reason: "must not be empty"}
	}
	return nil
}

// HasCredentials reports whether both halves of the API credential are set.
func (c Config) HasCredentials() bool {
	return c.APIID != "" && c.APISecret != ""
}

// SetCredentials stores the API credentials in $HOME/.censys.yaml, keeping
// any other settings already in that file.
func SetCredentials(id, secret string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return SetCredentialsIn(home, id, secret)
}

func SetCredentialsIn(dir, id, secret string) (string, error) {
	id, secret = strings.TrimSpace(id), strings.TrimSpace(secret)
	if id == "" || secret == "" {
		return "", &model.ConfigurationError{Setting: "credentials", Reason: "API ID and secret must both be set"}
	}

	path := filepath.Join(dir, configName+"."+configType)
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType(configType)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}
	file.Set(APIID, id)
	file.Set(APISecret, secret)
	if err := file.WriteConfigAs(path); err != nil {
		return "", err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return "", err
	}

	viper.Set(APIID, id)
	viper.Set(APISecret, secret)
	return path, nil
}

// MaskSecret hides all but the last four characters.
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &model.ConfigurationError{Setting: key, Value: raw, Reason: "use seconds or a duration such as 5m"}
	}
	return d, nil
}

func intSetting(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &model.ConfigurationError{Setting: key, Value: raw, Reason: "not an integer"}
	}
	return n, nil
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
