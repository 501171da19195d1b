// Package config loads valobj settings and manages the .valobj directory a
// project gets on first use.
//
// Settings are layered, lowest precedence first: built-in defaults, the user
// file (~/.config/valobj/config.yaml), the project file (.valobj.yaml in the
// project directory or a parent) and VALOBJ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	// Dir is the per-project state directory.
	Dir = ".valobj"
	// ProjectFile is the project-level settings file.
	ProjectFile = ".valobj.yaml"
	// EnvPrefix prefixes environment overrides, e.g. VALOBJ_SYNTH_BACKEND.
	EnvPrefix = "VALOBJ"

	BackendReflect     = "reflect"
	BackendInterpreted = "interpreted"
)

const defaultProjectConfigYAML = `# valobj project configuration
contracts:
  dir: contracts

generate:
  out: generated
  package: values

synth:
  suffix: Value
  container: valobj
  # reflect or interpreted
  backend: reflect

log:
  level: info
`

// Config holds every valobj setting.
type Config struct {
	Contracts ContractsConfig `mapstructure:"contracts"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Synth     SynthConfig     `mapstructure:"synth"`
	Log       LogConfig       `mapstructure:"log"`

	// ProjectDir is the directory relative paths resolve against.
	ProjectDir string `mapstructure:"-"`

	v *viper.Viper
}

// ContractsConfig locates contract sources.
type ContractsConfig struct {
	Dir string `mapstructure:"dir"`
}

// GenerateConfig controls source generation.
type GenerateConfig struct {
	Out     string `mapstructure:"out"`
	Package string `mapstructure:"package"`
}

// SynthConfig controls runtime synthesis.
type SynthConfig struct {
	Suffix    string `mapstructure:"suffix"`
	Container string `mapstructure:"container"`
	Backend   string `mapstructure:"backend"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load resolves settings for projectDir.
func Load(projectDir string) (*Config, error) {
	v := newViper()

	userDir := UserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read user config: %w", err)
		}
	}

	if projectFile := FindProjectConfig(projectDir); projectFile != "" {
		project := viper.New()
		project.SetConfigFile(projectFile)
		if err := project.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", projectFile, err)
		}
		if err := v.MergeConfigMap(project.AllSettings()); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", projectFile, err)
		}
	}

	return decode(v, projectDir)
}

// LoadFromPath reads one settings file on top of the defaults, ignoring the
// user file. Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v, filepath.Dir(path))
}

// Default returns the built-in settings.
func Default() *Config {
	cfg, err := decode(newViper(), ".")
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("contracts.dir", "contracts")
	v.SetDefault("generate.out", "generated")
	v.SetDefault("generate.package", "values")
	v.SetDefault("synth.suffix", "Value")
	v.SetDefault("synth.container", "valobj")
	v.SetDefault("synth.backend", BackendReflect)
	v.SetDefault("log.level", "info")
}

func decode(v *viper.Viper, projectDir string) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ProjectDir = projectDir
	cfg.v = v
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Contracts.Dir = strings.TrimSpace(c.Contracts.Dir)
	c.Generate.Out = strings.TrimSpace(c.Generate.Out)
	c.Generate.Package = strings.TrimSpace(c.Generate.Package)
	c.Synth.Suffix = strings.TrimSpace(c.Synth.Suffix)
	c.Synth.Container = strings.TrimSpace(c.Synth.Container)
	c.Synth.Backend = strings.ToLower(strings.TrimSpace(c.Synth.Backend))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

func (c *Config) validate() error {
	switch c.Synth.Backend {
	case BackendReflect, BackendInterpreted:
	default:
		return fmt.Errorf("synth.backend must be %q or %q, got %q", BackendReflect, BackendInterpreted, c.Synth.Backend)
	}
	if c.Synth.Suffix != "" && !token.IsIdentifier("T"+c.Synth.Suffix) {
		return fmt.Errorf("synth.suffix %q cannot be part of a Go identifier", c.Synth.Suffix)
	}
	if c.Synth.Container == "" {
		return fmt.Errorf("synth.container is required")
	}
	if !token.IsIdentifier(c.Generate.Package) {
		return fmt.Errorf("generate.package %q is not a Go identifier", c.Generate.Package)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// StateDir returns ProjectDir/.valobj.
func (c *Config) StateDir() string {
	return filepath.Join(c.ProjectDir, Dir)
}

// LogsDir returns the directory the log file lives in.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir(), "logs")
}

// ContractsDir returns the contracts directory resolved against ProjectDir.
func (c *Config) ContractsDir() string {
	return resolvePath(c.ProjectDir, c.Contracts.Dir)
}

// OutDir returns the generation output directory resolved against ProjectDir.
func (c *Config) OutDir() string {
	return resolvePath(c.ProjectDir, c.Generate.Out)
}

// Keys lists every known setting key in sorted order.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Value returns the effective value of key.
func (c *Config) Value(key string) (any, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !c.v.IsSet(key) {
		return nil, false
	}
	return c.v.Get(key), true
}

// InitDir creates the .valobj directory structure and a default project
// file when none exists:
//
//	.valobj/
//	└── logs/
//	.valobj.yaml
func InitDir(projectDir string) error {
	if err := os.MkdirAll(filepath.Join(projectDir, Dir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure state dir: %w", err)
	}
	return ensureProjectConfig(filepath.Join(projectDir, ProjectFile))
}

// UserConfigDir returns the XDG config directory for valobj.
func UserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "valobj")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "valobj")
	}
	return filepath.Join(home, ".config", "valobj")
}

// FindProjectConfig searches dir and its parents for .valobj.yaml.
func FindProjectConfig(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(abs, ProjectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
