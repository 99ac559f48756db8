package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding configuration (OpenAI-compatible protocol or in-house model service)
	EmbeddingProvider   string // Provider identifier: openai, siliconflow, ollama, service
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Model service configuration (NER / intent / sentiment endpoints)
	ModelServiceURL string

	// Semantic memory configuration (optional, postgres + pgvector)
	MemoryDriver string
	MemoryDSN    string

	Mode        string
	Addr        string
	Data        string
	Driver      string
	DSN         string
	InstanceURL string
	Version     string
	Port        int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("AICO_EMBEDDING_PROVIDER", "service")
	p.EmbeddingModel = getEnvOrDefault("AICO_EMBEDDING_MODEL", "nomic-embed-text")
	p.EmbeddingAPIKey = getEnvOrDefault("AICO_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("AICO_EMBEDDING_BASE_URL", "http://localhost:11434")
	p.EmbeddingDimensions = getEnvOrDefaultInt("AICO_EMBEDDING_DIMENSION", 768)

	p.ModelServiceURL = getEnvOrDefault("AICO_MODEL_SERVICE_URL", "http://localhost:8200")

	p.MemoryDriver = getEnvOrDefault("AICO_MEMORY_DRIVER", "")
	p.MemoryDSN = getEnvOrDefault("AICO_MEMORY_DSN", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes and verifies the profile.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/aico"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			dbFile := fmt.Sprintf("aico_%s.db", p.Mode)
			p.DSN = filepath.Join(dataDir, dbFile)
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported working-store driver: %s", p.Driver)
	}

	if p.MemoryDriver != "" && p.MemoryDriver != "postgres" {
		return errors.Errorf("unsupported semantic-memory driver: %s", p.MemoryDriver)
	}
	if p.MemoryDriver == "postgres" && p.MemoryDSN == "" {
		return errors.New("memory dsn is required when semantic memory is enabled")
	}

	if p.EmbeddingDimensions <= 0 || p.EmbeddingDimensions > 4096 {
		return errors.Errorf("invalid embedding dimension: %d", p.EmbeddingDimensions)
	}

	return nil
}
