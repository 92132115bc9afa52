package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix is the prefix for environment keys that map onto config keys,
	// e.g. PRHELPER_CACHE_BACKEND for cache.backend
	EnvPrefix = "PRHELPER"

	DefaultProjectID = "Auto-GPT"
	DefaultPullsURL  = "https://api.github.com/repos/Significant-Gravitas/Auto-GPT/pulls?q=is%3Apr+is%3Aopen+-is%3Aconflict"
	DefaultTokenFile = "github.token"
	DefaultAPIURL    = "https://api.github.com/"
)

// Config holds all configuration settings
type Config struct {
	// Name of the cache entry; one entry per project
	ProjectID string `yaml:"project_id" mapstructure:"project_id"`

	GitHub  GitHubConfig  `yaml:"github" mapstructure:"github"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Ranking RankingConfig `yaml:"ranking" mapstructure:"ranking"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

type GitHubConfig struct {
	// API root used when the pulls URL is derived, e.g. by --from-git
	APIURL        string        `yaml:"api_url" mapstructure:"api_url"`
	PullsURL      string        `yaml:"pulls_url" mapstructure:"pulls_url"`
	PerPage       int           `yaml:"per_page" mapstructure:"per_page"`
	RateLimit     float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second
	RetryAttempts uint          `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Proxy         string        `yaml:"proxy" mapstructure:"proxy"`
	TokenFile     string        `yaml:"token_file" mapstructure:"token_file"`
}

type CacheConfig struct {
	Directory string        `yaml:"directory" mapstructure:"directory"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // "json", "bolt", "sqlite"
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

type RankingConfig struct {
	MaxFileConflicts int `yaml:"max_file_conflicts" mapstructure:"max_file_conflicts"`
	Workers          int `yaml:"workers" mapstructure:"workers"`
}

type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // "text", "json", "yaml"
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
	File  string `yaml:"file" mapstructure:"file"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		ProjectID: DefaultProjectID,
		GitHub: GitHubConfig{
			APIURL:        DefaultAPIURL,
			PullsURL:      DefaultPullsURL,
			PerPage:       100,
			RateLimit:     10,
			RetryAttempts: 3,
			Timeout:       30 * time.Second,
			TokenFile:     DefaultTokenFile,
		},
		Cache: CacheConfig{
			// The working directory, like the token file
			Directory: ".",
			Backend:   "json",
			TTL:       time.Hour,
		},
		Ranking: RankingConfig{
			MaxFileConflicts: 0,
			Workers:          4,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".prhelper")
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".prhelper"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	cfg.Cache.Directory = expandPath(cfg.Cache.Directory)
	cfg.GitHub.TokenFile = expandPath(cfg.GitHub.TokenFile)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("project_id", cfg.ProjectID)

	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.pulls_url", cfg.GitHub.PullsURL)
	v.SetDefault("github.per_page", cfg.GitHub.PerPage)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("github.retry_attempts", cfg.GitHub.RetryAttempts)
	v.SetDefault("github.timeout", cfg.GitHub.Timeout)
	v.SetDefault("github.proxy", cfg.GitHub.Proxy)
	v.SetDefault("github.token_file", cfg.GitHub.TokenFile)

	v.SetDefault("cache.directory", cfg.Cache.Directory)
	v.SetDefault("cache.backend", cfg.Cache.Backend)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("ranking.max_file_conflicts", cfg.Ranking.MaxFileConflicts)
	v.SetDefault("ranking.workers", cfg.Ranking.Workers)

	v.SetDefault("output.format", cfg.Output.Format)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("log.file", cfg.Log.File)
}

// secondsToDurationHook reads unit-less durations as seconds, so
// "ttl: 3600" and PRHELPER_CACHE_TTL=3600 mean one hour like --cache-time-sec.
// Values with a unit ("90m") go on to the standard string hook.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from == durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		case reflect.String:
			str := strings.TrimSpace(reflect.ValueOf(data).String())
			if secs, err := strconv.ParseFloat(str, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
			return str, nil
		}
		return data, nil
	}
}

// loadEnvFiles loads .env files in order of precedence.
// godotenv never overrides variables that are already set.
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(homeDir, ".prhelper", ".env"))
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the unprefixed environment variables the tool
// has always honoured
func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("GITHUB_PULLS_URL"); url != "" {
		cfg.GitHub.PullsURL = url
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}
	if secs := os.Getenv("CACHE_TIME_SEC"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			cfg.Cache.TTL = time.Duration(n) * time.Second
		}
	}
	if dir := os.Getenv("CACHE_DIRECTORY"); dir != "" {
		cfg.Cache.Directory = dir
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
