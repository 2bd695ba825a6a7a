package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "haggler"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from the config file in the
// user's config directory, then from a .env in the working directory.
// Errors are ignored since the files may not exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		configPath := filepath.Join(configBase, AppName, EnvFileName)
		_ = godotenv.Load(configPath)
	}
	_ = godotenv.Load()
}

// CheckRequiredConfig returns the names of required environment variables
// that are not set for the selected backend.
func CheckRequiredConfig() []string {
	var missing []string
	backend := os.Getenv("LLM_BACKEND")
	if backend == "gemini" {
		if os.Getenv("GEMINI_API_KEY") == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	} else {
		if os.Getenv("TOGETHER_API_KEY") == "" {
			missing = append(missing, "TOGETHER_API_KEY")
		}
	}
	return missing
}
