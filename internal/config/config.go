package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable at startup.
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort string

	StoreBackend  string
	DatabaseURL   string // postgres backend
	MongoURI      string // mongo backend
	MongoDatabase string

	OpenAIAPIKey string
	OpenAIModel  string

	APIKey          string // shared secret expected in the x-api-key header
	JWTSecret       string
	TokenExpiration time.Duration

	KnowledgeDir   string
	KnowledgeFiles []string
}

// LoadConfig loads configuration from environment variables.
// It looks for a .env file first, then checks actual environment variables.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file (useful for development)
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Could not load .env file. Using environment variables only.", err)
		// Don't fail if .env is not present, might be in production
	}

	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "ngmc"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),
		APIKey:        getEnv("API_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "default-super-secret-key"), // CHANGE THIS IN PRODUCTION!
		KnowledgeDir:  getEnv("KNOWLEDGE_DIR", "."),
	}

	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			log.Fatal("FATAL: DATABASE_URL environment variable is not set.")
		}
	case StoreBackendMongo:
		if cfg.MongoURI == "" {
			log.Fatal("FATAL: MONGO_URI environment variable is not set.")
		}
	default:
		log.Fatalf("FATAL: Unknown STORE_BACKEND %q (expected %q or %q).", cfg.StoreBackend, StoreBackendPostgres, StoreBackendMongo)
	}

	if cfg.APIKey == "" {
		log.Fatal("FATAL: API_KEY environment variable is not set.")
	}
	if cfg.OpenAIAPIKey == "" {
		// Not fatal: the chat flow degrades to the fixed fallback reply.
		log.Println("Warning: OPENAI_API_KEY is not set; model calls will fail soft.")
	}

	tokenExpStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	tokenExpHours, err := strconv.Atoi(tokenExpStr)
	if err != nil {
		log.Printf("Warning: Invalid JWT_EXPIRATION_HOURS '%s', using default 24h. Error: %v", tokenExpStr, err)
		tokenExpHours = 24
	}
	cfg.TokenExpiration = time.Hour * time.Duration(tokenExpHours)

	for _, name := range strings.Split(getEnv("KNOWLEDGE_FILES", "staff.txt,links.txt"), ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.KnowledgeFiles = append(cfg.KnowledgeFiles, name)
		}
	}

	log.Printf("Loaded config: Port=%s, StoreBackend=%s, TokenExp=%s, KnowledgeFiles=%v",
		cfg.HTTPPort, cfg.StoreBackend, cfg.TokenExpiration, cfg.KnowledgeFiles)

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
