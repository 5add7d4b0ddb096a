package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/Nomadcxx/cinesync/internal/naming"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

// FileName is the config file looked up in the working directory.
const FileName = "config.toml"

type Config struct {
	Movies           LibraryConfig `mapstructure:"movies" toml:"movies"`
	Series           LibraryConfig `mapstructure:"series" toml:"series"`
	WorkingDirectory string        `mapstructure:"working_directory" toml:"working_directory"`
	TMDb             TMDbConfig    `mapstructure:"tmdb" toml:"tmdb"`
	Daemon           DaemonConfig  `mapstructure:"daemon" toml:"daemon"`
	Options          OptionsConfig `mapstructure:"options" toml:"options"`
	Logging          LoggingConfig `mapstructure:"logging" toml:"logging"`
	Notify           NotifyConfig  `mapstructure:"notify" toml:"notify"`

	// File is the config file the values were read from, if any.
	File string `mapstructure:"-" toml:"-"`
}

// LibraryConfig pairs a watch directory with the library it is linked into.
// A library with both directories empty is disabled.
type LibraryConfig struct {
	WatchDirectory  string `mapstructure:"watch_directory" toml:"watch_directory"`
	TargetDirectory string `mapstructure:"target_directory" toml:"target_directory"`
}

// Enabled reports whether either directory is configured.
func (l LibraryConfig) Enabled() bool {
	return strings.TrimSpace(l.WatchDirectory) != "" || strings.TrimSpace(l.TargetDirectory) != ""
}

// TMDbConfig contains metadata lookup settings
type TMDbConfig struct {
	APIKey         string `mapstructure:"api_key" toml:"api_key"`
	BaseURL        string `mapstructure:"base_url" toml:"base_url"`
	Language       string `mapstructure:"language" toml:"language"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	// RequestsPer10s mirrors the TMDb allowance of roughly 40 requests
	// every ten seconds.
	RequestsPer10s int `mapstructure:"requests_per_10s" toml:"requests_per_10s"`
	MaxAttempts    int `mapstructure:"max_attempts" toml:"max_attempts"`
}

type DaemonConfig struct {
	DebounceSeconds   int    `mapstructure:"debounce_seconds" toml:"debounce_seconds"`
	ReconcileSchedule string `mapstructure:"reconcile_schedule" toml:"reconcile_schedule"`
	StatusAddr        string `mapstructure:"status_addr" toml:"status_addr"`
	QueueSize         int    `mapstructure:"queue_size" toml:"queue_size"`
}

// Debounce returns the quiet period before a changed path is processed.
func (d DaemonConfig) Debounce() time.Duration {
	return time.Duration(d.DebounceSeconds) * time.Second
}

// OptionsConfig contains general options
type OptionsConfig struct {
	DryRun bool `mapstructure:"dry_run" toml:"dry_run"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" toml:"level"`
	File       string `mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
}

// NotifyConfig points at a media server that is asked to rescan after
// links change. An empty URL disables it.
type NotifyConfig struct {
	JellyfinURL    string `mapstructure:"jellyfin_url" toml:"jellyfin_url"`
	JellyfinAPIKey string `mapstructure:"jellyfin_api_key" toml:"jellyfin_api_key"`
}

// Library is an enabled watch/target pair.
type Library struct {
	Name   string
	Kind   naming.Kind
	Watch  string
	Target string
}

// Libraries returns the enabled libraries, movies first.
func (c *Config) Libraries() []Library {
	var libs []Library
	if c.Movies.Enabled() {
		libs = append(libs, Library{Name: "movies", Kind: naming.KindMovie, Watch: c.Movies.WatchDirectory, Target: c.Movies.TargetDirectory})
	}
	if c.Series.Enabled() {
		libs = append(libs, Library{Name: "series", Kind: naming.KindEpisode, Watch: c.Series.WatchDirectory, Target: c.Series.TargetDirectory})
	}
	return libs
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	d := platformDefaults()
	return &Config{
		Movies: LibraryConfig{
			WatchDirectory:  d.moviesWatch,
			TargetDirectory: d.moviesTarget,
		},
		Series: LibraryConfig{
			WatchDirectory:  d.seriesWatch,
			TargetDirectory: d.seriesTarget,
		},
		WorkingDirectory: d.workingDir,
		TMDb: TMDbConfig{
			BaseURL:        "https://api.themoviedb.org/3",
			Language:       "en-US",
			TimeoutSeconds: 10,
			RequestsPer10s: 40,
			MaxAttempts:    3,
		},
		Daemon: DaemonConfig{
			DebounceSeconds:   10,
			ReconcileSchedule: "@every 5m",
			StatusAddr:        "",
			QueueSize:         256,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

var envBindings = map[string]string{
	"movies.watch_directory":  "MOVIES_WATCH_DIRECTORY",
	"movies.target_directory": "MOVIES_TARGET_DIRECTORY",
	"series.watch_directory":  "SERIES_WATCH_DIRECTORY",
	"series.target_directory": "SERIES_TARGET_DIRECTORY",
	"working_directory":       "WORKING_DIRECTORY",
	"tmdb.api_key":            "TMDB_API_KEY",
	"logging.level":           "CINESYNC_LOG_LEVEL",
	"notify.jellyfin_url":     "JELLYFIN_URL",
	"notify.jellyfin_api_key": "JELLYFIN_API_KEY",
}

// EnvVars returns the environment variables Load consults, sorted.
func EnvVars() []string {
	vars := make([]string, 0, len(envBindings))
	for _, env := range envBindings {
		vars = append(vars, env)
	}
	sort.Strings(vars)
	return vars
}

// Load builds the configuration from defaults, the config file, the .env file
// in the working directory and the environment, in increasing order of
// precedence. An environment variable set to the empty string still counts,
// so SERIES_WATCH_DIRECTORY="" disables the series library.
//
// configFile may be empty, in which case config.toml is looked up in the
// working directory and then in ~/.config/cinesync. Load does not validate;
// call Validate before using the result.
func Load(configFile string) (*Config, error) {
	if wd, err := paths.Expand(os.Getenv("WORKING_DIRECTORY")); err == nil && wd != "" {
		if err := loadDotEnv(filepath.Join(wd, ".env")); err != nil {
			return nil, err
		}
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("toml")
	v.AllowEmptyEnv(true)
	setDefaults(v, cfg)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	file, err := resolveConfigFile(configFile, v.GetString("working_directory"))
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: unable to read config file %s: %v", ErrConfigurationInvalid, file, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unable to unmarshal config: %v", ErrConfigurationInvalid, err)
	}
	cfg.File = file

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%w: loading %s: %v", ErrConfigurationInvalid, path, err)
	}
	return nil
}

func resolveConfigFile(explicit, workingDir string) (string, error) {
	if explicit != "" {
		path, err := paths.Expand(explicit)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: config file %s: %v", ErrConfigurationInvalid, path, err)
		}
		return path, nil
	}

	var candidates []string
	if wd, err := paths.Expand(workingDir); err == nil && wd != "" {
		candidates = append(candidates, filepath.Join(wd, FileName))
	}
	if p, err := paths.ConfigPath(); err == nil {
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("movies.watch_directory", cfg.Movies.WatchDirectory)
	v.SetDefault("movies.target_directory", cfg.Movies.TargetDirectory)
	v.SetDefault("series.watch_directory", cfg.Series.WatchDirectory)
	v.SetDefault("series.target_directory", cfg.Series.TargetDirectory)
	v.SetDefault("working_directory", cfg.WorkingDirectory)
	v.SetDefault("tmdb.api_key", cfg.TMDb.APIKey)
	v.SetDefault("tmdb.base_url", cfg.TMDb.BaseURL)
	v.SetDefault("tmdb.language", cfg.TMDb.Language)
	v.SetDefault("tmdb.timeout_seconds", cfg.TMDb.TimeoutSeconds)
	v.SetDefault("tmdb.requests_per_10s", cfg.TMDb.RequestsPer10s)
	v.SetDefault("tmdb.max_attempts", cfg.TMDb.MaxAttempts)
	v.SetDefault("daemon.debounce_seconds", cfg.Daemon.DebounceSeconds)
	v.SetDefault("daemon.reconcile_schedule", cfg.Daemon.ReconcileSchedule)
	v.SetDefault("daemon.status_addr", cfg.Daemon.StatusAddr)
	v.SetDefault("daemon.queue_size", cfg.Daemon.QueueSize)
	v.SetDefault("options.dry_run", cfg.Options.DryRun)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("notify.jellyfin_url", cfg.Notify.JellyfinURL)
	v.SetDefault("notify.jellyfin_api_key", cfg.Notify.JellyfinAPIKey)
}

// normalize expands "~" and makes every directory absolute.
func (c *Config) normalize() error {
	for _, p := range []*string{
		&c.Movies.WatchDirectory,
		&c.Movies.TargetDirectory,
		&c.Series.WatchDirectory,
		&c.Series.TargetDirectory,
		&c.WorkingDirectory,
		&c.Logging.File,
	} {
		expanded, err := paths.Expand(strings.TrimSpace(*p))
		if err != nil {
			return fmt.Errorf("%w: expanding %q: %v", ErrConfigurationInvalid, *p, err)
		}
		*p = expanded
	}
	return nil
}

// LogFile returns the configured log file or the default inside the
// working directory.
func (c *Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	p, err := paths.LogPath(c.WorkingDirectory)
	if err != nil {
		return ""
	}
	return p
}

// DatabasePath returns the link registry location.
func (c *Config) DatabasePath() string {
	p, err := paths.DatabasePath(c.WorkingDirectory)
	if err != nil {
		return filepath.Join(".", "cinesync.db")
	}
	return p
}

// DefaultPath is where Save writes: config.toml in the working directory.
func (c *Config) DefaultPath() string {
	return filepath.Join(c.WorkingDirectory, FileName)
}

// Save writes the configuration as TOML to path, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create config dir: %w", err)
	}

	data, err := c.ToTOML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) ToTOML() ([]byte, error) {
	body, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# CineSync configuration\n")
	buf.WriteString("# Generated by: cinesync setup\n")
	buf.WriteString("# Environment variables (MOVIES_WATCH_DIRECTORY, ...) override these values.\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// Exists reports whether a config file is present for the working
// directory.
func Exists(workingDir string) bool {
	if workingDir == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(workingDir, FileName))
	return err == nil
}
