package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Integrity  IntegrityConfig  `mapstructure:"integrity"`
	Proctoring ProctoringConfig `mapstructure:"proctoring"`
	Evidence   EvidenceConfig   `mapstructure:"evidence"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// OracleConfig points at the external quantum simulator service.
type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// IntegrityConfig holds the tunable anti-cheat policy. The numeric defaults
// match the values the games were balanced against; deployments can tune them
// per environment and the config watcher picks changes up live.
type IntegrityConfig struct {
	MinTimeFraction       float64 `mapstructure:"min_time_fraction"`
	AbsoluteMinSeconds    int     `mapstructure:"absolute_min_seconds"`
	ScoreBonusTolerance   float64 `mapstructure:"score_bonus_tolerance"`
	SimilarityThreshold   float64 `mapstructure:"similarity_threshold"`
	MaxSimilarSolutions   int     `mapstructure:"max_similar_solutions"`
	DiversityPenalty      float64 `mapstructure:"diversity_penalty"`
	VerificationTolerance float64 `mapstructure:"verification_tolerance"`
	VerificationShots     int     `mapstructure:"verification_shots"`
	MasteryMinStars       int     `mapstructure:"mastery_min_stars"`
	MasteryMinGames       int     `mapstructure:"mastery_min_games"`
	SolutionCacheTTL      int     `mapstructure:"solution_cache_ttl_seconds"`
}

type ProctoringConfig struct {
	DefaultMaxDurationMinutes int `mapstructure:"default_max_duration_minutes"`
	HeartbeatIntervalSeconds  int `mapstructure:"heartbeat_interval_seconds"`
}

type EvidenceConfig struct {
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("QUANTUM_QUEST")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Quantum oracle
	viper.BindEnv("oracle.base_url", "ORACLE_BASE_URL")
	viper.BindEnv("oracle.timeout_seconds", "ORACLE_TIMEOUT_SECONDS")

	// Evidence storage
	viper.BindEnv("evidence.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("evidence.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("evidence.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("evidence.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("integrity.min_time_fraction", 0.10)
	viper.SetDefault("integrity.absolute_min_seconds", 5)
	viper.SetDefault("integrity.score_bonus_tolerance", 1.10)
	viper.SetDefault("integrity.similarity_threshold", 0.95)
	viper.SetDefault("integrity.max_similar_solutions", 2)
	viper.SetDefault("integrity.diversity_penalty", 0.25)
	viper.SetDefault("integrity.verification_tolerance", 0.15)
	viper.SetDefault("integrity.verification_shots", 4096)
	viper.SetDefault("integrity.mastery_min_stars", 2)
	viper.SetDefault("integrity.mastery_min_games", 1)
	viper.SetDefault("integrity.solution_cache_ttl_seconds", 60)
	viper.SetDefault("proctoring.default_max_duration_minutes", 60)
	viper.SetDefault("proctoring.heartbeat_interval_seconds", 30)
	viper.SetDefault("oracle.timeout_seconds", 10)
}

// DefaultIntegrity returns the built-in policy values, used when no config
// file is present (tests, one-off tools).
func DefaultIntegrity() IntegrityConfig {
	return IntegrityConfig{
		MinTimeFraction:       0.10,
		AbsoluteMinSeconds:    5,
		ScoreBonusTolerance:   1.10,
		SimilarityThreshold:   0.95,
		MaxSimilarSolutions:   2,
		DiversityPenalty:      0.25,
		VerificationTolerance: 0.15,
		VerificationShots:     4096,
		MasteryMinStars:       2,
		MasteryMinGames:       1,
		SolutionCacheTTL:      60,
	}
}
