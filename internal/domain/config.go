package domain

// Config holds the complete NeuroAML configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Detector parameters
	Detector DetectorConfig `json:"detector"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Drift      DriftConfig      `json:"drift"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// DetectorConfig holds the tunable parameters of the behavioral outlier
// classifier. Fusion weights, the graph centrality threshold and the
// temporal escalation factor are fixed design constants, not config.
type DetectorConfig struct {
	// Contamination is the expected outlier fraction for the
	// behavioral classifier (0..1).
	Contamination float64 `json:"contamination"`

	// Seed fixes the classifier's randomness for reproducible runs.
	Seed int64 `json:"seed"`

	// Estimators is the number of isolation trees.
	Estimators int `json:"estimators"`

	// ForecastHorizon is the default number of future cycles projected.
	ForecastHorizon int `json:"forecastHorizon"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// DriftConfig holds configuration for the dynamic risk store.
type DriftConfig struct {
	// Type is the store type: "memory" or "redis"
	Type string

	// Step is the per-cycle drift increment below the escalation knee.
	Step float64

	// EscalatedStep applies once an account's live risk reaches 0.6.
	EscalatedStep float64

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Detector: DetectorConfig{
			Contamination:   0.2,
			Seed:            42,
			Estimators:      100,
			ForecastHorizon: 3,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./neuroaml.db",
		},
		Drift: DriftConfig{
			Type:          "memory",
			Step:          0.05,
			EscalatedStep: 0.1,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "neuroaml",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "neuroaml",
	}
	cfg.Drift = DriftConfig{
		Type:          "redis",
		Step:          0.05,
		EscalatedStep: 0.1,
		RedisAddr:     "localhost:6379",
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
