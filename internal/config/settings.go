package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"asnlookup/internal/rangeindex"
	"asnlookup/internal/support"
)

type Config struct {
	Server struct {
		BindingAddress string `json:"binding_address"`
	} `json:"server"`

	Dataset DatasetConfig `json:"dataset"`

	Index struct {
		Kind      string `json:"kind"`
		IndexBits int    `json:"index_bits"`
	} `json:"index"`

	Reload struct {
		Timer Timer `json:"timer"`
	} `json:"reload"`

	Cache struct {
		Enabled  bool   `json:"enabled"`
		Backend  string `json:"backend"`
		TTLTimer Timer  `json:"ttl_timer"`
	} `json:"cache"`

	Bulk struct {
		MaxIPs  int `json:"max_ips"`
		Workers int `json:"workers"`
	} `json:"bulk"`

	GeoLite struct {
		Enabled         bool   `json:"enabled"`
		ASNDatabasePath string `json:"asn_database_path"`
		LicenseKey      string `json:"license_key"`
		AutoUpdate      bool   `json:"auto_update"`
		UpdateTimer     Timer  `json:"update_timer"`
	} `json:"geolite"`

	DNS struct {
		Enabled bool   `json:"enabled"`
		Address string `json:"address"`
		Zone    string `json:"zone"`
	} `json:"dns"`
}

type DatasetConfig struct {
	Source    string `json:"source"`
	FilePath  string `json:"file_path"`
	BatchSize int    `json:"batch_size"`
}

type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

const (
	DatasetSourceFile     = "file"
	DatasetSourceDatabase = "database"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	defaultSettingsFilePath = "data/settings.json"
	defaultBindingAddress   = "0.0.0.0:8080"
	defaultBulkMaxIPs       = 1000
	defaultBulkWorkers      = 64
	defaultDNSZone          = "origin.asn.local."
)

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex

	ErrInvalidConfig = errors.New("config: invalid configuration")
)

func init() {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default settings: %v", err))
	}
	configValue.Store(cfg)
}

// SettingsFilePath is SETTINGS_FILE or data/settings.json.
func SettingsFilePath() string {
	return support.GetEnv("SETTINGS_FILE", defaultSettingsFilePath)
}

// ReadSettings loads the settings file, creating it from the embedded
// defaults when missing, applies environment overrides and publishes the
// result.
func ReadSettings() error {
	path := SettingsFilePath()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read settings file: %w", err)
		}
		log.Warn("Settings file not found, creating with default configuration", "path", path)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("config: create settings directory: %w", err)
		}
		if err := os.WriteFile(path, defaultConfig, 0o644); err != nil {
			return fmt.Errorf("config: write default settings: %w", err)
		}
		data = defaultConfig
	}

	var newConfig Config
	if err := json.Unmarshal(data, &newConfig); err != nil {
		return fmt.Errorf("config: parse settings file: %w", err)
	}

	applyEnvOverrides(&newConfig)
	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		return err
	}

	log.Debug("Settings file loaded successfully", "path", path)
	return nil
}

// SetConfig validates, publishes and persists a new configuration.
func SetConfig(newConfig Config) error {
	return applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, source: "local"})
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

// RequiresRestart reports whether current differs from previous in a
// setting that is only read at startup. Reload and bulk settings apply live.
func RequiresRestart(previous, current Config) bool {
	previous.Reload = current.Reload
	previous.Bulk = current.Bulk
	return previous != current
}

// Validate fills defaults for unset optional values and rejects values the
// service cannot run with.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.BindingAddress) == "" {
		cfg.Server.BindingAddress = defaultBindingAddress
	}

	cfg.Dataset.Source = strings.ToLower(strings.TrimSpace(cfg.Dataset.Source))
	switch cfg.Dataset.Source {
	case "":
		cfg.Dataset.Source = DatasetSourceFile
		fallthrough
	case DatasetSourceFile:
		if strings.TrimSpace(cfg.Dataset.FilePath) == "" {
			return fmt.Errorf("%w: dataset.file_path is required for the file source", ErrInvalidConfig)
		}
	case DatasetSourceDatabase:
	default:
		return fmt.Errorf("%w: unknown dataset.source %q", ErrInvalidConfig, cfg.Dataset.Source)
	}

	kind, err := rangeindex.ParseKind(cfg.Index.Kind)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Index.Kind = string(kind)
	if cfg.Index.IndexBits == 0 {
		cfg.Index.IndexBits = rangeindex.DefaultIndexBits
	}
	if kind == rangeindex.KindDirect && (cfg.Index.IndexBits < 1 || cfg.Index.IndexBits > 32) {
		return fmt.Errorf("%w: index.index_bits must be in 1..32, got %d", ErrInvalidConfig, cfg.Index.IndexBits)
	}

	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	switch cfg.Cache.Backend {
	case "":
		cfg.Cache.Backend = CacheBackendMemory
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("%w: unknown cache.backend %q", ErrInvalidConfig, cfg.Cache.Backend)
	}

	if cfg.Bulk.MaxIPs <= 0 {
		cfg.Bulk.MaxIPs = defaultBulkMaxIPs
	}
	if cfg.Bulk.Workers <= 0 {
		cfg.Bulk.Workers = defaultBulkWorkers
	}

	if cfg.DNS.Zone == "" {
		cfg.DNS.Zone = defaultDNSZone
	}
	if !strings.HasSuffix(cfg.DNS.Zone, ".") {
		cfg.DNS.Zone += "."
	}
	if cfg.DNS.Enabled && strings.TrimSpace(cfg.DNS.Address) == "" {
		return fmt.Errorf("%w: dns.address is required when dns is enabled", ErrInvalidConfig)
	}
	if cfg.GeoLite.Enabled && strings.TrimSpace(cfg.GeoLite.ASNDatabasePath) == "" {
		return fmt.Errorf("%w: geolite.asn_database_path is required when geolite is enabled", ErrInvalidConfig)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := support.GetEnv("BINDING_ADDRESS", ""); v != "" {
		cfg.Server.BindingAddress = v
	}
	if v := support.GetEnv("DATASET_SOURCE", ""); v != "" {
		cfg.Dataset.Source = v
	}
	if v := support.GetEnv("DATASET_FILE", ""); v != "" {
		cfg.Dataset.FilePath = v
	}
	if v := support.GetEnv("INDEX_KIND", ""); v != "" {
		cfg.Index.Kind = v
	}
	if v := support.GetEnv("MAXMIND_LICENSE_KEY", ""); v != "" {
		cfg.GeoLite.LicenseKey = v
	}
	if v := support.GetEnv("INDEX_BITS", ""); v != "" {
		bits, err := strconv.Atoi(v)
		if err != nil {
			log.Warn("invalid INDEX_BITS override", "value", v)
		} else {
			cfg.Index.IndexBits = bits
		}
	}
}

type configUpdateOptions struct {
	persistToFile bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	if err := Validate(&newConfig); err != nil {
		return err
	}

	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	SetBetweenTime()

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			return fmt.Errorf("config: marshal settings: %w", err)
		}
		if err := os.WriteFile(SettingsFilePath(), data, 0o644); err != nil {
			return fmt.Errorf("config: write settings: %w", err)
		}
	}

	log.Debug("Configuration applied", "source", opts.source)
	return nil
}
