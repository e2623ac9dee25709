package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
	"github.com/anibalssilva/tech-challenge-books-api/internal/books"
	"github.com/anibalssilva/tech-challenge-books-api/internal/logsink"
	"github.com/anibalssilva/tech-challenge-books-api/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the books API server",
		Long:  "Start the HTTP server that exposes the catalog and authentication endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dev {
		cfg.Logging.Level = "debug"
	}
	if cfg.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is not set; configure it or export BOOKSAPI_AUTH_SECRET_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Logging.Level)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init user store: %w", err)
	}
	defer st.Close()
	logger.Info("user store initialized", "path", resolveDataDir(cfg))

	issuer, err := auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.TokenTTL())
	if err != nil {
		return fmt.Errorf("init token issuer: %w", err)
	}
	authSvc := auth.NewService(st, issuer)

	dataset, err := books.Load(cfg.Books.CSVPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("catalog loaded", "path", cfg.Books.CSVPath, "books", dataset.Len())

	sinks := []logsink.Sink{logsink.NewConsoleSink(os.Stdout)}
	if cfg.Log.File != "" {
		fileSink, err := logsink.NewFileSink(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("open log file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
		logger.Info("file sink enabled", "path", cfg.Log.File)
	}
	if cfg.Log.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pgSink, err := logsink.NewPostgresSink(ctx, cfg.Log.DatabaseURL, logger)
		cancel()
		if err != nil {
			// The database sink is best effort: the API stays up without it.
			logger.Warn("postgres sink unavailable", "error", err)
		} else {
			sinks = append(sinks, pgSink)
			logger.Info("postgres sink enabled")
		}
	}
	fanout := logsink.NewFanout(logger, sinks...)

	hasAdmin, err := st.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: booksapi user create --admin")
	}

	shutdownTimeout, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		shutdownTimeout = 30 * time.Second
	}
	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		ShutdownTimeout: shutdownTimeout,
		CORSOrigins:     cfg.Server.CORS.Origins,
		RateLimit:       cfg.Server.RateLimit,
	}

	srv := server.New(srvCfg, st, authSvc, dataset, fanout, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health:  http://%s:%d/api/v1/health\n", host, port)
	fmt.Printf("→ Catalog: %d books\n", dataset.Len())
	fmt.Println()

	return srv.ListenAndServe()
}
