package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	PortalURL           string `yaml:"portal_url"`
	MaxPages            int    `yaml:"max_pages"`
	RequestDelaySeconds int    `yaml:"request_delay_seconds"`

	DiscoverySampleSize int `yaml:"discovery_sample_size"`
	MinCategories       int `yaml:"min_categories"`
	MaxCategories       int `yaml:"max_categories"`

	ClassifyBatchSize      int `yaml:"classify_batch_size"`
	ClassifyBatchThreshold int `yaml:"classify_batch_threshold"`

	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`
	AgentsDir string `yaml:"agents_dir"`

	DisableUsageTracking bool   `yaml:"disable_usage_tracking"`
	ShowUsageDetails     bool   `yaml:"show_usage_details"`
	UsageLogFile         string `yaml:"usage_log_file"`

	SlackBotToken       string `yaml:"slack_bot_token"`
	SlackChannelID      string `yaml:"slack_channel_id"`
	AutoCollectSchedule string `yaml:"auto_collect_schedule"`
}

func (c Config) ComplaintsFile() string {
	return filepath.Join(c.DataDir, "complaints_raw.json")
}

func (c Config) ProposedTaxonomyFile() string {
	return filepath.Join(c.OutputDir, "proposed_taxonomy.json")
}

func (c Config) CuratedTaxonomyFile() string {
	return filepath.Join(c.OutputDir, "curated_taxonomy.json")
}

func (c Config) ResultsFile() string {
	return filepath.Join(c.OutputDir, "classification_results.json")
}

func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds) * time.Second
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.PortalURL, "PORTAL_URL")
	envOverrideInt(&cfg.MaxPages, "MAX_PAGES")
	envOverrideInt(&cfg.RequestDelaySeconds, "REQUEST_DELAY_SECONDS")
	envOverrideInt(&cfg.DiscoverySampleSize, "DISCOVERY_SAMPLE_SIZE")
	envOverrideInt(&cfg.MinCategories, "MIN_CATEGORIES")
	envOverrideInt(&cfg.MaxCategories, "MAX_CATEGORIES")
	envOverrideInt(&cfg.ClassifyBatchSize, "CLASSIFY_BATCH_SIZE")
	envOverrideInt(&cfg.ClassifyBatchThreshold, "CLASSIFY_BATCH_THRESHOLD")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.AgentsDir, "AGENTS_DIR")
	envOverrideBool(&cfg.DisableUsageTracking, "DISABLE_USAGE_TRACKING")
	envOverrideBool(&cfg.ShowUsageDetails, "SHOW_USAGE_DETAILS")
	envOverride(&cfg.UsageLogFile, "USAGE_LOG_FILE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.AutoCollectSchedule, "AUTO_COLLECT_SCHEDULE")

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "openai"
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 20
	}
	if cfg.RequestDelaySeconds == 0 {
		cfg.RequestDelaySeconds = 2
	}
	if cfg.DiscoverySampleSize == 0 {
		cfg.DiscoverySampleSize = 200
	}
	if cfg.MinCategories == 0 {
		cfg.MinCategories = 6
	}
	if cfg.MaxCategories == 0 {
		cfg.MaxCategories = 10
	}
	if cfg.ClassifyBatchSize == 0 {
		cfg.ClassifyBatchSize = 10
	}
	if cfg.ClassifyBatchThreshold == 0 {
		cfg.ClassifyBatchThreshold = 20
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./raclassify.db"
	}
	if cfg.AgentsDir == "" {
		cfg.AgentsDir = "agents"
	}
	if cfg.UsageLogFile == "" {
		cfg.UsageLogFile = filepath.Join(cfg.OutputDir, "api_usage.json")
	}

	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if cfg.ClassifyBatchSize < 1 {
		log.Fatalf("invalid classify_batch_size '%d': must be >= 1", cfg.ClassifyBatchSize)
	}
	if cfg.ClassifyBatchThreshold < 0 {
		log.Fatalf("invalid classify_batch_threshold '%d': must be >= 0", cfg.ClassifyBatchThreshold)
	}
	if cfg.MinCategories > cfg.MaxCategories {
		log.Fatalf("min_categories (%d) must not exceed max_categories (%d)", cfg.MinCategories, cfg.MaxCategories)
	}

	return cfg
}

// requireLLMConfig validates the API key for the configured provider.
// Phases that never call the LLM (collection, usage viewer) skip this.
func requireLLMConfig(cfg Config) {
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	}
}

func requirePortalConfig(cfg Config) {
	if strings.TrimSpace(cfg.PortalURL) == "" {
		log.Fatalf("portal_url is required for collection (via config.yaml or PORTAL_URL)")
	}
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
