package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/strand-rt/strand/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "strand.json"

	// DefaultWorkers is the number of worker runners spawned at startup.
	DefaultWorkers = 2

	// DefaultInspectorPort is the default inspector listen port.
	DefaultInspectorPort = 6300

	// DefaultInspectorHost is the default inspector listen host.
	DefaultInspectorHost = "localhost"

	// DefaultSyncCallTimeout bounds blocking cross-thread calls.
	DefaultSyncCallTimeout = "100s"
)

// PlacementMain and PlacementWorker are the valid server placements.
const (
	PlacementMain   = "main"
	PlacementWorker = "worker"
)

// Config represents the complete strand.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Runtime contains executor and worker settings.
	Runtime RuntimeConfig `json:"runtime,omitempty"`

	// Servers contains per-server pacing and placement.
	Servers ServersConfig `json:"servers,omitempty"`

	// Inspector contains the debug inspector settings.
	Inspector InspectorConfig `json:"inspector,omitempty"`

	// Log contains logging settings.
	Log LogConfig `json:"log,omitempty"`

	// Metrics contains instrumentation settings.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains executor and worker settings.
type RuntimeConfig struct {
	// Workers is the number of worker runners spawned at startup.
	Workers int `json:"workers,omitempty"`

	// MainFrequency is the target rate of the controller loop in Hz.
	// Zero runs unthrottled.
	MainFrequency float64 `json:"mainFrequency,omitempty"`

	// SyncCallTimeout is the duration a blocking cross-thread call waits
	// before failing (e.g., "100s").
	SyncCallTimeout string `json:"syncCallTimeout,omitempty"`
}

// ServerConfig contains one server's pacing and initial placement.
type ServerConfig struct {
	// Frequency is the target cycle rate in Hz. Zero runs unthrottled.
	Frequency float64 `json:"frequency,omitempty"`

	// Placement is where the server starts: "main" or "worker".
	Placement string `json:"placement,omitempty"`
}

// ServersConfig contains the per-kind server settings.
type ServersConfig struct {
	// Audio is the audio server configuration.
	Audio ServerConfig `json:"audio,omitempty"`

	// Draw is the draw server configuration.
	Draw ServerConfig `json:"draw,omitempty"`

	// Update is the update server configuration.
	Update ServerConfig `json:"update,omitempty"`
}

// InspectorConfig contains the debug inspector settings.
type InspectorConfig struct {
	// Enabled controls whether the inspector HTTP server is started.
	Enabled bool `json:"enabled,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn" or "error".
	Level string `json:"level,omitempty"`

	// Format is the handler format: "text" or "json".
	Format string `json:"format,omitempty"`
}

// MetricsConfig contains instrumentation settings.
type MetricsConfig struct {
	// Enabled controls whether prometheus metrics are registered.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Runtime: RuntimeConfig{
			Workers:         DefaultWorkers,
			SyncCallTimeout: DefaultSyncCallTimeout,
		},
		Servers: ServersConfig{
			Audio:  ServerConfig{Placement: PlacementWorker},
			Draw:   ServerConfig{Frequency: 60, Placement: PlacementMain},
			Update: ServerConfig{Frequency: 120, Placement: PlacementWorker},
		},
		Inspector: InspectorConfig{
			Enabled: false,
			Host:    DefaultInspectorHost,
			Port:    DefaultInspectorPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "strand",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for strand.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E121").
				WithDetail("No strand.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'strand init' to create one, or pass --config")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse strand.json: " + err.Error()).
			WithSuggestion("Check that strand.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Runtime.Workers == 0 {
		c.Runtime.Workers = DefaultWorkers
	}
	if c.Runtime.SyncCallTimeout == "" {
		c.Runtime.SyncCallTimeout = DefaultSyncCallTimeout
	}

	for _, s := range []*ServerConfig{&c.Servers.Audio, &c.Servers.Draw, &c.Servers.Update} {
		if s.Placement == "" {
			s.Placement = PlacementWorker
		}
	}

	if c.Inspector.Host == "" {
		c.Inspector.Host = DefaultInspectorHost
	}
	if c.Inspector.Port == 0 {
		c.Inspector.Port = DefaultInspectorPort
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "strand"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Runtime.Workers < 0 {
		return errors.New("E122").
			WithDetail("runtime.workers must not be negative")
	}
	if c.Runtime.SyncCallTimeout != "" {
		if _, err := time.ParseDuration(c.Runtime.SyncCallTimeout); err != nil {
			return errors.New("E122").
				WithDetail("runtime.syncCallTimeout is not a valid duration: " + c.Runtime.SyncCallTimeout).
				WithSuggestion(`Use a Go duration string such as "100s" or "1m40s"`)
		}
	}

	for _, s := range []ServerConfig{c.Servers.Audio, c.Servers.Draw, c.Servers.Update} {
		if s.Frequency < 0 {
			return errors.New("E122").
				WithDetail("server frequencies must not be negative")
		}
		if s.Placement != PlacementMain && s.Placement != PlacementWorker {
			return errors.New("E122").
				WithDetail("server placement must be \"main\" or \"worker\", got " + s.Placement)
		}
	}

	if c.Inspector.Port < 0 || c.Inspector.Port > 65535 {
		return errors.New("E122").
			WithDetail("inspector.port must be between 0 and 65535")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E122").
			WithDetail("log.level must be one of debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.New("E122").
			WithDetail("log.format must be \"text\" or \"json\"")
	}

	return nil
}

// SyncCallTimeout returns the parsed blocking-call timeout.
func (c *Config) SyncCallTimeout() time.Duration {
	d, err := time.ParseDuration(c.Runtime.SyncCallTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultSyncCallTimeout)
	}
	return d
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InspectorAddress returns the address string for the inspector server.
func (c *Config) InspectorAddress() string {
	return c.Inspector.Host + ":" + itoa(c.Inspector.Port)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing strand.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E121").
				WithDetail("No strand.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'strand init' to create a new project")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

// itoa converts int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	// Reverse
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
