package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/onepage/internal/cache"
	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/session"
	"github.com/starford/onepage/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Cache    CacheConfig       `yaml:"cache"`
	Auth     AuthConfig        `yaml:"auth"`
	Editor   EditorConfig      `yaml:"editor"`
	Projects ProjectsConfig    `yaml:"projects"`
	MCP      MCPConfig         `yaml:"mcp"`
	CORS     CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Storage, &c.Cache, &c.Auth, &c.Editor, &c.Projects, &c.MCP,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where documents are persisted.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	FSPath     string `yaml:"fs_path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(string(store.BackendSQLite), string(store.BackendFS))),
		validation.Field(&c.SQLitePath,
			validation.When(c.Backend == string(store.BackendSQLite), validation.Required)),
		validation.Field(&c.FSPath,
			validation.When(c.Backend == string(store.BackendFS), validation.Required)),
	)
}

// Options converts the section into store options.
func (c *StorageConfig) Options() store.Options {
	return store.Options{
		Backend:    store.Backend(c.Backend),
		SQLitePath: c.SQLitePath,
		FSPath:     c.FSPath,
	}
}

// CacheConfig configures the published page cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	// WarmLimit is how many recent projects are cached at startup. Zero
	// disables warming.
	WarmLimit int         `yaml:"warm_limit"`
	Redis     RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis connection used by the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(
			string(cache.BackendMemory), string(cache.BackendRedis), string(cache.BackendDisabled))),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxEntries, validation.Min(0)),
		validation.Field(&c.WarmLimit, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Backend == string(cache.BackendRedis) {
		return c.Redis.Validate()
	}
	return nil
}

// Validate validates the Redis connection settings.
func (c *RedisConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
	)
}

// Options converts the section into cache options.
func (c *CacheConfig) Options() cache.Options {
	return cache.Options{
		Backend:       cache.Backend(c.Backend),
		TTL:           c.TTL,
		MaxEntries:    c.MaxEntries,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as the local user, suitable for local dev.
//   - "token": Bearer token authentication; Tokens maps each token to a user id.
type AuthConfig struct {
	Mode   string            `yaml:"mode"`
	Tokens map[string]string `yaml:"tokens"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode != AuthModeToken {
		return nil
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("auth: mode is %q but no tokens are configured", AuthModeToken)
	}
	for token, user := range c.Tokens {
		if token == "" || user == "" {
			return fmt.Errorf("auth: token and user must both be non-empty")
		}
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EditorConfig tunes live editors.
type EditorConfig struct {
	AutosaveQuiet time.Duration `yaml:"autosave_quiet"`
	// SaveTimeout bounds each autosave write; zero keeps the default.
	SaveTimeout time.Duration `yaml:"save_timeout"`
	// HistoryLimit caps undo entries per editor; zero or negative keeps
	// every entry.
	HistoryLimit int                `yaml:"history_limit"`
	Drop         session.Thresholds `yaml:",inline"`
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.AutosaveQuiet, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.SaveTimeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if err := c.Drop.Validate(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}

// EditorOptions converts the section into editor settings.
func (c *EditorConfig) EditorOptions() editor.Config {
	return editor.Config{
		AutosaveQuiet: c.AutosaveQuiet,
		SaveTimeout:   c.SaveTimeout,
		HistoryLimit:  c.HistoryLimit,
		Thresholds:    c.Drop,
	}
}

// ProjectsConfig holds project service limits.
type ProjectsConfig struct {
	// MaxPerOwner caps how many projects one user may create; zero means
	// no cap.
	MaxPerOwner int `yaml:"max_per_owner"`
}

// Validate validates the projects configuration.
func (c *ProjectsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxPerOwner, validation.Min(0)),
	)
}

// MCPConfig configures the stdio MCP server.
type MCPConfig struct {
	// User is the identity every MCP tool call acts as.
	User string `yaml:"user"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.User, validation.Required),
	)
}

// CORSConfig lists origins allowed to call the API from a browser. An empty
// list allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend:    string(store.BackendSQLite),
			SQLitePath: "./onepage.db",
			FSPath:     "./pages",
		},
		Cache: CacheConfig{
			Backend:    string(cache.BackendMemory),
			TTL:        cache.DefaultTTL,
			MaxEntries: 1000,
			WarmLimit:  50,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Editor: EditorConfig{
			AutosaveQuiet: editor.DefaultConfig.AutosaveQuiet,
			SaveTimeout:   editor.DefaultConfig.SaveTimeout,
			HistoryLimit:  editor.DefaultConfig.HistoryLimit,
			Drop:          session.DefaultThresholds,
		},
		MCP: MCPConfig{
			User: "local",
		},
	}
}
