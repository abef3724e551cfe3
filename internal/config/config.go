package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment.
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	UploadsDir  string

	// LLM configuration
	LLMProvider    string // "openai", "groq", or "none"
	LLMModel       string // chat model used for JD parsing and reports
	EmbeddingModel string // embedding model, fixed per deployment
	LLMAPIKey      string

	// Ranking weights. They must sum to 1; components missing for a
	// candidate are dropped and the rest renormalized at scoring time.
	WeightVector        float64
	WeightLexical       float64
	WeightSkillCoverage float64
	WeightRecency       float64

	// Recall limits
	TopKLexical int
	TopKVector  int
	TopKFinal   int

	EmbeddingVersion int

	// Billing
	DefaultFreeQuota float64

	LogJSON  bool
	LogDebug bool
}

func Load() *Config {
	// Missing .env is fine in containers, the variables come from the
	// environment there.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        envOr("PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		UploadsDir:  envOr("UPLOADS_DIR", "./uploads"),

		LLMProvider:    envOr("LLM_PROVIDER", "openai"),
		LLMModel:       envOr("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-3-small"),

		WeightVector:        envFloat("WEIGHT_VECTOR_SIM", 0.5),
		WeightLexical:       envFloat("WEIGHT_LEXICAL", 0.25),
		WeightSkillCoverage: envFloat("WEIGHT_SKILL_COVERAGE", 0.15),
		WeightRecency:       envFloat("WEIGHT_RECENCY", 0.1),

		TopKLexical: envInt("TOPK_LEXICAL", 50),
		TopKVector:  envInt("TOPK_VECTOR", 50),
		TopKFinal:   envInt("TOPK_FINAL", 20),

		EmbeddingVersion: envInt("EMBEDDING_VERSION", 1),

		DefaultFreeQuota: envFloat("DEFAULT_FREE_QUOTA", 1.0),

		LogJSON:  os.Getenv("LOG_JSON") == "true",
		LogDebug: os.Getenv("LOG_DEBUG") == "true",
	}

	switch cfg.LLMProvider {
	case "groq":
		cfg.LLMAPIKey = os.Getenv("GROQ_API_KEY")
	default:
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
