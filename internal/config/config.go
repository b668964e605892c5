package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the application settings, loaded once at startup.
type Config struct {
	Port    string // HTTP listen port
	GinMode string // Gin mode (debug/release)

	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string

	AzureSubscriptionID string // Subscription holding the VM pool
	AzureResourceGroup  string // Resource group holding the VM pool
	AzureLocation       string // Region new VMs are created in

	JWTSecret string // Signing key for operator tokens

	LogLevel  string // debug/info/warn/error
	LogFormat string // json/console
}

// Load reads configuration from the environment, preferring a local .env
// file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "release"),

		DBName:     getEnv("DB_NAME", "postgres"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),

		AzureSubscriptionID: os.Getenv("AZURE_SUBSCRIPTION_ID"),
		AzureResourceGroup:  getEnv("AZURE_RESOURCE_GROUP", "cloud-gaming-rg"),
		AzureLocation:       getEnv("AZURE_LOCATION", "brazilsouth"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
