package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	TaskRetention   time.Duration `yaml:"task_retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxResults      int           `yaml:"max_results"`
	StreamInterval  time.Duration `yaml:"stream_interval"`

	Scrape ScrapeConfig `yaml:"scrape"`
	Ranker RankerConfig `yaml:"ranker"`

	Redis  Redis  `yaml:"redis"`
	MinIO  MinIO  `yaml:"minio"`
	Adzuna Adzuna `yaml:"adzuna"`
	HH     HH     `yaml:"hh"`

	// Credentials come from the environment, never from the yaml file.
	DatabaseURL   string `yaml:"-"`
	MistralAPIKey string `yaml:"-"`
}

type ScrapeConfig struct {
	PerSourceLimit int           `yaml:"per_source_limit"`
	ListTimeout    time.Duration `yaml:"list_timeout"`
	DetailTimeout  time.Duration `yaml:"detail_timeout"`
	DetailDelay    time.Duration `yaml:"detail_delay"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

type RankerConfig struct {
	// Mode selects the ranking backend: "rules" or "mistral".
	Mode       string        `yaml:"mode"`
	Model      string        `yaml:"model"`
	BatchSize  int           `yaml:"batch_size"`
	BatchDelay time.Duration `yaml:"batch_delay"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
}

type Adzuna struct {
	Country string `yaml:"country"` // "fr", "gb", "us", …
	AppID   string `yaml:"-"`
	AppKey  string `yaml:"-"`
}

type HH struct {
	BaseURL string `yaml:"base_url"`
}

func MustLoad(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("config: cannot unmarshal yaml: %v", err)
	}

	if cfg.Addr == "" {
		log.Fatalf("config: addr is empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.TaskRetention <= 0 {
		cfg.TaskRetention = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 30 * time.Minute
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 5 * time.Second
	}

	if cfg.Scrape.PerSourceLimit <= 0 {
		cfg.Scrape.PerSourceLimit = 15
	}
	if cfg.Scrape.ListTimeout <= 0 {
		cfg.Scrape.ListTimeout = 30 * time.Second
	}
	if cfg.Scrape.DetailTimeout <= 0 {
		cfg.Scrape.DetailTimeout = 15 * time.Second
	}
	if cfg.Scrape.DetailDelay <= 0 {
		cfg.Scrape.DetailDelay = time.Second
	}
	if cfg.Scrape.CacheTTL <= 0 {
		cfg.Scrape.CacheTTL = 24 * time.Hour
	}

	if cfg.Ranker.Mode == "" {
		cfg.Ranker.Mode = "rules"
	}
	if cfg.Ranker.Mode != "rules" && cfg.Ranker.Mode != "mistral" {
		log.Fatalf("config: ranker.mode must be %q or %q, got %q", "rules", "mistral", cfg.Ranker.Mode)
	}
	if cfg.Ranker.Model == "" {
		cfg.Ranker.Model = "mistral-small-latest"
	}
	if cfg.Ranker.BatchSize <= 0 {
		cfg.Ranker.BatchSize = 5
	}
	if cfg.Ranker.BatchDelay <= 0 {
		cfg.Ranker.BatchDelay = 2 * time.Second
	}

	if cfg.Adzuna.Country == "" {
		cfg.Adzuna.Country = "fr"
	}
	if cfg.HH.BaseURL == "" {
		cfg.HH.BaseURL = "https://api.hh.ru"
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		log.Fatalf("config: DATABASE_URL is required")
	}

	cfg.MistralAPIKey = os.Getenv("MISTRAL_API_KEY")
	if cfg.Ranker.Mode == "mistral" && cfg.MistralAPIKey == "" {
		log.Fatalf("config: MISTRAL_API_KEY is required when ranker.mode is %q", "mistral")
	}

	cfg.Adzuna.AppID = os.Getenv("ADZUNA_APP_ID")
	cfg.Adzuna.AppKey = os.Getenv("ADZUNA_APP_KEY")

	return &cfg
}
