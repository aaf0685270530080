// Package config resolves runtime settings. Precedence, highest first:
// command-line flag, ILLUSTRAITOR_* environment variable, setting persisted
// in the state store, built-in default.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/store"
)

const (
	// EnvPrefix prefixes every environment variable read by the CLI.
	EnvPrefix = "ILLUSTRAITOR"

	DevEndpoint    = "http://127.0.0.1:8000"
	HostedEndpoint = "https://illustraitor-ai-v2.onrender.com"
)

// Keys shared by flags, environment variables and viper.
const (
	KeyEndpoint     = "endpoint"
	KeyTimeout      = "timeout"
	KeyLogLevel     = "log_level"
	KeyStateDir     = "state_dir"
	KeyKeyring      = "keyring"
	KeyDefaultStyle = "default_style"
)

// flagNames maps viper keys to the persistent flags that override them.
var flagNames = map[string]string{
	KeyEndpoint: "endpoint",
	KeyTimeout:  "timeout",
	KeyLogLevel: "log-level",
	KeyStateDir: "state-dir",
	KeyKeyring:  "keyring",
}

// Config is the resolved runtime configuration.
type Config struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LogLevel     string        `mapstructure:"log_level"`
	StateDir     string        `mapstructure:"state_dir"`
	Keyring      bool          `mapstructure:"keyring"`
	DefaultStyle string        `mapstructure:"default_style"`
}

// Loader resolves Config in two phases: Bootstrap settings are needed to
// open the state store, and Load folds the store's persisted settings in.
type Loader struct {
	v *viper.Viper
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// NewLoader binds flags and environment variables. defaultEndpoint is the
// build's built-in endpoint.
func NewLoader(flags *pflag.FlagSet, defaultEndpoint string) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if defaultEndpoint == "" {
		defaultEndpoint = DevEndpoint
	}
	v.SetDefault(KeyEndpoint, defaultEndpoint)
	v.SetDefault(KeyTimeout, illustraitor.DefaultTimeout)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyStateDir, "")
	v.SetDefault(KeyKeyring, false)
	v.SetDefault(KeyDefaultStyle, illustraitor.DefaultStyleID)

	if flags != nil {
		for key, name := range flagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag --%s: %w", name, err)
			}
		}
	}
	return &Loader{v: v}, nil
}

// Bootstrap returns the settings that do not depend on the state store.
func (l *Loader) Bootstrap() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("read configuration: %w", err)
	}
	return cfg, nil
}

// Load resolves the full configuration. persisted holds the store's settings
// keyed by full name; they take the place of built-in defaults.
func (l *Loader) Load(persisted map[string]string) (*Config, error) {
	if v := persisted[store.SettingEndpoint]; v != "" {
		l.v.SetDefault(KeyEndpoint, v)
	}
	if v := persisted[store.SettingDefaultStyle]; v != "" {
		l.v.SetDefault(KeyDefaultStyle, v)
	}

	cfg, err := l.Bootstrap()
	if err != nil {
		return nil, err
	}
	cfg.Endpoint, err = NormalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	cfg.DefaultStyle = strings.TrimSpace(cfg.DefaultStyle)
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = illustraitor.DefaultStyleID
	}
	return &cfg, nil
}

// NormalizeEndpoint checks that raw is an absolute http(s) URL and strips any
// trailing slash.
func NormalizeEndpoint(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q: missing host", raw)
	}
	return raw, nil
}
