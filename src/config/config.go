package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tradesafe/tradeverify/src/data"
	"gorm.io/gorm"
)

// Config carries everything the verification service needs at runtime.
type Config struct {
	Port     string
	RedisURL string

	// Reference list files, loaded at process start.
	SDNListPath          string
	ConsolidatedListPath string
	TickersPath          string

	// External search fallback; empty key disables strategy 3.
	SearchAPIKey string

	// Per-source collection budgets.
	WebsiteTimeout   time.Duration
	RegistryTimeout  time.Duration
	SanctionsTimeout time.Duration
	OracleTimeout    time.Duration

	AI AI
}

// AI holds narrative oracle settings.
type AI struct {
	Provider     string
	Model        string
	SystemPrompt string
	OpenAIKey    string
	ClaudeKey    string
}

// Load builds config from the settings table with env fallbacks.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("config: load settings: %v (falling back to env)", err)
	}

	return Config{
		Port:                 get("port", "PORT", "8080"),
		RedisURL:             get("redis_url", "REDIS_URL", "redis://localhost:6379/0"),
		SDNListPath:          get("sdn_list_path", "SDN_LIST_PATH", "data/ofac/sdn_advanced.xml"),
		ConsolidatedListPath: get("consolidated_list_path", "CONSOLIDATED_LIST_PATH", "data/eu/eu_sanctions.xml"),
		TickersPath:          get("tickers_path", "TICKERS_PATH", "data/sec/company_tickers.json"),
		SearchAPIKey:         get("search_api_key", "TAVILY_API_KEY", ""),
		WebsiteTimeout:       seconds("website_timeout", "WEBSITE_TIMEOUT", 30),
		RegistryTimeout:      seconds("registry_timeout", "REGISTRY_TIMEOUT", 10),
		SanctionsTimeout:     seconds("sanctions_timeout", "SANCTIONS_TIMEOUT", 15),
		OracleTimeout:        seconds("oracle_timeout", "ORACLE_TIMEOUT", 60),
		AI:                   LoadAI(),
	}
}

// LoadAI reads oracle settings; settings table first, env fallback.
func LoadAI() AI {
	provider := get("ai_provider", "AI_PROVIDER", "openai")
	model := get("ai_model", "AI_MODEL", "")
	return AI{
		Provider:     provider,
		Model:        model,
		SystemPrompt: get("ai_system_prompt", "AI_SYSTEM_PROMPT", ""),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		ClaudeKey:    os.Getenv("CLAUDE_API_KEY"),
	}
}

// get retrieves a setting with env fallback
func get(name, envKey, defaultValue string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = defaultValue
	}
	return val
}

func seconds(name, envKey string, def int) time.Duration {
	raw := get(name, envKey, "")
	if raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(def) * time.Second
}
