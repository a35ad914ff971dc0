package env

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from .env files.
// ENV_PATH, when set, replaces the default paths. Variables already present
// in the process environment win over file values.
// Missing files are an error only when env is "local" or empty.
func LoadDotEnv(env string, defaultPaths ...string) error {
	paths := defaultPaths
	if p := os.Getenv("ENV_PATH"); p != "" {
		paths = []string{p}
	} else {
		slog.Debug("ENV_PATH is not set, using default paths", "defaultPaths", defaultPaths)
	}

	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		if env == "local" || env == "" {
			slog.Warn("No .env file found", "paths", paths)
			return os.ErrNotExist
		}
		slog.Debug("Skipping .env ...")
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		slog.Error("Failed to load environment variables", "paths", existing, "error", err)
		return err
	}
	return nil
}
