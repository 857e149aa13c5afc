package cli

import (
	"log/slog"
	"os"

	"github.com/eshaffer321/church-reconciler/internal/infrastructure/config"
)

// LoadConfig loads configFile, or the first config.yaml/config.yml found in
// the working directory, falling back to environment variables.
func LoadConfig(configFile string, logger *slog.Logger) (*config.Config, error) {
	if configFile == "" {
		for _, candidate := range []string{"config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFile = candidate
				break
			}
		}
	}

	var cfg *config.Config
	if configFile == "" {
		logger.Debug("No config file found, using environment variables")
		cfg = config.LoadFromEnv()
	} else {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
