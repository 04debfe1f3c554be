package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the OCR service
type Config struct {
	Port string
	Env  string

	// Engine credentials and endpoints
	OpenAIKey         string
	OpenAIVisionModel string
	GoogleVisionKey   string
	NeuralOCRURL      string

	// Processing options
	Languages           []string // ordered language preference, ISO codes
	FusionPolicy        string   // "primary" or "best-of-n"
	ConfidenceThreshold float64
	MaxWorkers          int
	PrimaryTimeout      time.Duration
	SupplementalTimeout time.Duration

	// Result cache
	CacheEnabled bool
	CacheDir     string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  .env file not found, using system environment variables")
	}

	return Config{
		Port: os.Getenv("PORT"),
		Env:  os.Getenv("ENV"),

		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIVisionModel: os.Getenv("OPENAI_VISION_MODEL"),
		GoogleVisionKey:   os.Getenv("GOOGLE_VISION_API_KEY"),
		NeuralOCRURL:      os.Getenv("NEURAL_OCR_URL"),

		Languages:           getEnvList("OCR_LANGUAGES", []string{"ja", "en"}),
		FusionPolicy:        getEnv("OCR_FUSION_POLICY", "primary"),
		ConfidenceThreshold: getEnvFloat("OCR_CONFIDENCE_THRESHOLD", 0.8),
		MaxWorkers:          getEnvInt("OCR_MAX_WORKERS", 3),
		PrimaryTimeout:      getEnvDuration("OCR_PRIMARY_TIMEOUT", 60*time.Second),
		SupplementalTimeout: getEnvDuration("OCR_SUPPLEMENTAL_TIMEOUT", 30*time.Second),

		CacheEnabled: getEnvBool("OCR_CACHE_ENABLED", true),
		CacheDir:     getEnv("OCR_CACHE_DIR", "./ocr_cache"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("⚠️  invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("⚠️  invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		log.Printf("⚠️  invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("⚠️  invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return d
}
