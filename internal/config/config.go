package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the matching pipeline
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Database DatabaseConfig `mapstructure:"database"`
	Meili    MeiliConfig    `mapstructure:"meili"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Matching MatchingConfig `mapstructure:"matching"`
	Dict     DictConfig     `mapstructure:"dict"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// MeiliConfig holds Meilisearch export settings
type MeiliConfig struct {
	Host      string `mapstructure:"host"`
	APIKey    string `mapstructure:"api_key"`
	Index     string `mapstructure:"index"`
	BatchSize int    `mapstructure:"batch_size"`
}

// OracleConfig holds the embedding service settings
type OracleConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	BatchSize      int    `mapstructure:"batch_size"`
}

// MatchingConfig holds scoring floors, ceilings and tolerances.
// All tuning lives here so threshold changes never require code forks.
type MatchingConfig struct {
	FloorBranded      float64 `mapstructure:"floor_branded"`
	FloorGeneric      float64 `mapstructure:"floor_generic"`
	FloorTranslit     float64 `mapstructure:"floor_translit"`
	FloorEmbedding    float64 `mapstructure:"floor_embedding"`
	PriceRatioBranded float64 `mapstructure:"price_ratio_branded"`
	PriceRatioGeneric float64 `mapstructure:"price_ratio_generic"`
	QuantityTolerance float64 `mapstructure:"quantity_tolerance"`
	MinTokenLen       int     `mapstructure:"min_token_len"`
	Workers           int     `mapstructure:"workers"`
	MaxPrice          float64 `mapstructure:"max_price"`
}

// Brand is one dictionary entry. House brands carry the owning store.
type Brand struct {
	Name    string   `mapstructure:"name"`
	Aliases []string `mapstructure:"aliases"`
	Store   string   `mapstructure:"store"`
}

// TypePair names two mutually exclusive product type keyword sets.
type TypePair struct {
	A []string `mapstructure:"a"`
	B []string `mapstructure:"b"`
}

// DictConfig holds the language and domain dictionaries
type DictConfig struct {
	Brands            []Brand             `mapstructure:"brands"`
	GenericCategories []string            `mapstructure:"generic_categories"`
	CategoryKeywords  map[string][]string `mapstructure:"category_keywords"`
	PromoPhrases      []string            `mapstructure:"promo_phrases"`
	Stopwords         []string            `mapstructure:"stopwords"`
	Lexicon           map[string]string   `mapstructure:"lexicon"`
	IncompatibleTypes []TypePair          `mapstructure:"incompatible_types"`
}

// Load loads configuration from the yaml file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("matching")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/matcher/")

	v.SetEnvPrefix("MATCHER")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("meili.host", "http://localhost:7700")
	v.SetDefault("meili.index", "product_groups")
	v.SetDefault("meili.batch_size", 1000)

	v.SetDefault("oracle.base_url", "http://localhost:11434")
	v.SetDefault("oracle.model", "bge-m3")
	v.SetDefault("oracle.timeout_seconds", 60)
	v.SetDefault("oracle.batch_size", 64)

	v.SetDefault("matching.floor_branded", 0.55)
	v.SetDefault("matching.floor_generic", 0.50)
	v.SetDefault("matching.floor_translit", 0.45)
	v.SetDefault("matching.floor_embedding", 0.90)
	v.SetDefault("matching.price_ratio_branded", 2.5)
	v.SetDefault("matching.price_ratio_generic", 3.0)
	v.SetDefault("matching.quantity_tolerance", 0.25)
	v.SetDefault("matching.min_token_len", 2)
	v.SetDefault("matching.workers", 0) // 0 = NumCPU
	v.SetDefault("matching.max_price", 10000)
}

func validate(config *Config) error {
	m := config.Matching
	if m.FloorBranded <= 0 || m.FloorBranded > 1 {
		return fmt.Errorf("floor_branded must be in (0,1], got %v", m.FloorBranded)
	}
	if m.FloorGeneric <= 0 || m.FloorGeneric > 1 {
		return fmt.Errorf("floor_generic must be in (0,1], got %v", m.FloorGeneric)
	}
	if m.FloorEmbedding < m.FloorBranded {
		return fmt.Errorf("floor_embedding must not be below floor_branded")
	}
	if m.PriceRatioBranded < 1 || m.PriceRatioGeneric < 1 {
		return fmt.Errorf("price ratio ceilings must be >= 1")
	}
	if m.QuantityTolerance < 0 || m.QuantityTolerance >= 1 {
		return fmt.Errorf("quantity_tolerance must be in [0,1), got %v", m.QuantityTolerance)
	}
	return nil
}

// GenericSet returns the generic category names as a lookup set.
func (d *DictConfig) GenericSet() map[string]bool {
	set := make(map[string]bool, len(d.GenericCategories))
	for _, c := range d.GenericCategories {
		set[c] = true
	}
	return set
}
