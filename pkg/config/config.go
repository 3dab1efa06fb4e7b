package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings read from the environment
type Config struct {
	Port            string
	GinMode         string
	DatabaseURL     string
	DataPath        string
	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string
	AdminPassword   string
	LogDir          string
	LogDebug        bool
	SeedFile        string
}

// LoadEnv reads the first .env found in the working directory or its parents.
// A missing file is not an error.
func LoadEnv() {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load loads .env files and then reads the process environment
func Load() Config {
	LoadEnv()
	return FromEnv()
}

// FromEnv reads the process environment, applying defaults
func FromEnv() Config {
	debug, _ := strconv.ParseBool(os.Getenv("LOG_DEBUG"))
	return Config{
		Port:            getenv("PORT", "8000"),
		GinMode:         os.Getenv("GIN_MODE"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DataPath:        getenv("DATA_PATH", "calendar.db"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		APIMasterSecret: os.Getenv("API_MASTER_SECRET"),
		AdminUsername:   getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getenv("ADMIN_PASSWORD", "admin123"),
		LogDir:          getenv("LOG_DIR", "logs"),
		LogDebug:        debug,
		SeedFile:        os.Getenv("SEED_FILE"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
