package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/anibalssilva/tech-challenge-books-api/internal/config"
	"github.com/anibalssilva/tech-challenge-books-api/internal/store"
)

// resolveDataDir returns the data directory from the --data-dir flag, the
// BOOKSAPI_DATA_DIR env var, the config file, or ~/.booksapi as fallback.
func resolveDataDir(cfg *config.Config) string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("BOOKSAPI_DATA_DIR"); envDir != "" {
		return envDir
	}
	if cfg != nil && cfg.DataDir != "" {
		return cfg.DataDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.booksapi"
}

// loadConfig reads the config file viper located (if any) and layers env and
// flag overrides on top of the file values.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if path := viper.ConfigFileUsed(); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := viper.GetString("auth.secret_key"); v != "" {
		cfg.Auth.SecretKey = v
	}
	if v := viper.GetInt("auth.token_ttl_minutes"); v != 0 {
		cfg.Auth.TokenTTLMinutes = v
	}
	if v := viper.GetString("books.csv_path"); v != "" {
		cfg.Books.CSVPath = v
	}
	if v := viper.GetString("log.file"); v != "" {
		cfg.Log.File = v
	}
	if v := viper.GetString("log.database_url"); v != "" {
		cfg.Log.DatabaseURL = v
	}
	return cfg, nil
}

// openStore opens the SQLite user store under the resolved data directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.NewStore(resolveDataDir(cfg))
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
