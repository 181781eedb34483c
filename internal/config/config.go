package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	OSRM    OSRMConfig    `yaml:"osrm" mapstructure:"osrm"`
	Planner PlannerConfig `yaml:"planner" mapstructure:"planner"`
	Ranker  RankerConfig  `yaml:"ranker" mapstructure:"ranker"`
	Scorer  ScorerConfig  `yaml:"scorer" mapstructure:"scorer"`
	Risk    RiskConfig    `yaml:"risk" mapstructure:"risk"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OSRMConfig configures the routing provider client.
type OSRMConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the request timeout as a duration.
func (c OSRMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PlannerConfig configures the route pipeline.
type PlannerConfig struct {
	ExploreDetours      bool    `yaml:"explore_detours" mapstructure:"explore_detours"`
	DetourOffsetKM      float64 `yaml:"detour_offset_km" mapstructure:"detour_offset_km"`
	MaxConcurrentScores int     `yaml:"max_concurrent_scores" mapstructure:"max_concurrent_scores"`
}

// RankerConfig overrides the headline ranking constants; the finer
// constants keep their built-in defaults.
type RankerConfig struct {
	SafetyWeight   float64 `yaml:"safety_weight" mapstructure:"safety_weight"`
	DistanceWeight float64 `yaml:"distance_weight" mapstructure:"distance_weight"`
	MaxDistanceKM  float64 `yaml:"max_distance_km" mapstructure:"max_distance_km"`
}

// ScorerConfig configures the safety model.
type ScorerConfig struct {
	// WeightsProfile is an optional YAML file overriding the default
	// safety model weights.
	WeightsProfile string `yaml:"weights_profile" mapstructure:"weights_profile"`
}

// RiskConfig sets the spatial lookup radii, in degrees.
type RiskConfig struct {
	CrimeRadiusDeg      float64 `yaml:"crime_radius_deg" mapstructure:"crime_radius_deg"`
	LightingRadiusDeg   float64 `yaml:"lighting_radius_deg" mapstructure:"lighting_radius_deg"`
	PopulationRadiusDeg float64 `yaml:"population_radius_deg" mapstructure:"population_radius_deg"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SAFEROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "saferoute.db")
	v.SetDefault("osrm.base_url", "https://router.project-osrm.org")
	v.SetDefault("osrm.timeout_secs", 10)
	v.SetDefault("osrm.rate_per_sec", 1)
	v.SetDefault("osrm.burst", 2)
	v.SetDefault("osrm.user_agent", "saferoute-cli/1.0")
	v.SetDefault("planner.explore_detours", true)
	v.SetDefault("planner.detour_offset_km", 0.8)
	v.SetDefault("planner.max_concurrent_scores", 4)
	v.SetDefault("ranker.safety_weight", 0.7)
	v.SetDefault("ranker.distance_weight", 0.3)
	v.SetDefault("ranker.max_distance_km", 30)
	v.SetDefault("risk.crime_radius_deg", 0.003)
	v.SetDefault("risk.lighting_radius_deg", 0.005)
	v.SetDefault("risk.population_radius_deg", 0.005)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given run mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if c.OSRM.BaseURL == "" {
		problems = append(problems, "osrm.base_url is required")
	}
	if c.Planner.MaxConcurrentScores < 1 || c.Planner.MaxConcurrentScores > 32 {
		problems = append(problems, "planner.max_concurrent_scores must be between 1 and 32")
	}
	if c.Risk.CrimeRadiusDeg <= 0 || c.Risk.LightingRadiusDeg <= 0 || c.Risk.PopulationRadiusDeg <= 0 {
		problems = append(problems, "risk radii must be > 0")
	}

	switch mode {
	case "route", "datasets":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
