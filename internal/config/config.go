package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// Config holds all application configuration
type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string

	// Knowledge base
	KnowledgeBasePath    string
	ChunkWords           int
	ChunkOverlap         int
	EmbedConcurrency     int
	KnowledgeWatch       bool
	KnowledgeRefreshCron string // empty disables the scheduled rebuild

	// Retrieval and generation
	TopK               int
	ContextTokenBudget int
	PromptsFile        string // empty uses the embedded prompt set
	ChatRenderHTML     bool

	// Providers (OpenAI-compatible endpoints)
	LLMBaseURL       string
	LLMAPIKey        string
	LLMModel         string
	LLMTimeout       time.Duration
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingTimeout time.Duration
	ProviderRPS      float64

	// ProviderHealthInterval is the probe period; 0 disables active probing
	ProviderHealthInterval time.Duration

	// Sessions
	SessionExpiry    time.Duration
	SessionSweepCron string
	SessionStore     string // memory, sqlite or mongo
	SQLitePath       string
	MongoDBURI       string
	RedisURL         string // optional, enables the cross-instance session lock

	// Local JWT auth; empty secret disables the auth routes
	JWTSecret string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	llmKey := getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY"))

	return &Config{
		Port:           getEnv("PORT", "5000"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		KnowledgeBasePath:    getEnv("KNOWLEDGE_BASE_PATH", "./data/knowledge-base.pdf"),
		ChunkWords:           getIntEnv("CHUNK_WORDS", 350),
		ChunkOverlap:         getIntEnv("CHUNK_OVERLAP", 50),
		EmbedConcurrency:     getIntEnv("EMBED_CONCURRENCY", 4),
		KnowledgeWatch:       getBoolEnv("KNOWLEDGE_WATCH", true),
		KnowledgeRefreshCron: getEnv("KNOWLEDGE_REFRESH_CRON", ""),

		TopK:               getIntEnv("TOP_K", 5),
		ContextTokenBudget: getIntEnv("CONTEXT_TOKEN_BUDGET", 2500),
		PromptsFile:        getEnv("PROMPTS_FILE", ""),
		ChatRenderHTML:     getBoolEnv("CHAT_RENDER_HTML", false),

		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMAPIKey:        llmKey,
		LLMModel:         getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeout:       getDurationEnv("LLM_TIMEOUT", 60*time.Second),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingTimeout: getDurationEnv("EMBEDDING_TIMEOUT", 20*time.Second),
		ProviderRPS:      getFloatEnv("PROVIDER_RPS", 5),

		ProviderHealthInterval: getDurationEnv("PROVIDER_HEALTH_INTERVAL", 10*time.Minute),

		SessionExpiry:    getDurationEnv("SESSION_EXPIRY", 30*time.Minute),
		SessionSweepCron: getEnv("SESSION_SWEEP_CRON", "*/5 * * * *"),
		SessionStore:     strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/healthify.db"),
		MongoDBURI:       getEnv("MONGODB_URI", ""),
		RedisURL:         getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// Validate reports configuration that would prevent the server from starting
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory, StoreSQLite:
	case StoreMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("SESSION_STORE=mongo requires MONGODB_URI")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q (want memory, sqlite or mongo)", c.SessionStore)
	}
	if c.ChunkWords <= 0 {
		return fmt.Errorf("CHUNK_WORDS must be positive, got %d", c.ChunkWords)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkWords {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_WORDS), got %d", c.ChunkOverlap)
	}
	if c.SessionExpiry <= 0 {
		return fmt.Errorf("SESSION_EXPIRY must be positive, got %s", c.SessionExpiry)
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("45s", "30m") or a bare number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
