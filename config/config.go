package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// OpenAI
	OpenAIAPIKey   string
	EmbeddingModel string
	EmbeddingDim   int

	// Embedding batch discipline (provider rate limits)
	EmbedBatchSize  int
	EmbedBatchDelay time.Duration

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	ContextMaxTokens        int
	HistoricalTopK          int
	HistoricalMinSimilarity float64

	// Classification
	DuplicateThreshold    float64
	DuplicateLookbackDays int
	FollowUpLookbackDays  int
	CandidateLimit        int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "leadserver"),
		RedisURL:    getEnv("REDIS_URL", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingDim:   getEnvInt("EMBEDDING_DIM", 1536),

		EmbedBatchSize:  getEnvInt("EMBED_BATCH_SIZE", 20),
		EmbedBatchDelay: time.Duration(getEnvInt("EMBED_BATCH_DELAY_MS", 500)) * time.Millisecond,

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),

		ContextMaxTokens:        getEnvInt("CONTEXT_MAX_TOKENS", 3000),
		HistoricalTopK:          getEnvInt("HISTORICAL_TOP_K", 3),
		HistoricalMinSimilarity: getEnvFloat("HISTORICAL_MIN_SIMILARITY", 0.6),

		DuplicateThreshold:    getEnvFloat("DUPLICATE_THRESHOLD", 0.85),
		DuplicateLookbackDays: getEnvInt("DUPLICATE_LOOKBACK_DAYS", 30),
		FollowUpLookbackDays:  getEnvInt("FOLLOWUP_LOOKBACK_DAYS", 90),
		CandidateLimit:        getEnvInt("DUPLICATE_CANDIDATE_LIMIT", 100),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
	}, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasEmbeddingCredentials reports whether the embedding provider is usable.
// Missing credentials put the engine in degraded mode (empty results), they
// never crash the pipeline.
func (c *Config) HasEmbeddingCredentials() bool {
	return c.OpenAIAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return fallback
}
