package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/npezzotti/apex-protocol/internal/api"
	"github.com/npezzotti/apex-protocol/internal/auth"
	"github.com/npezzotti/apex-protocol/internal/config"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/feed"
	"github.com/npezzotti/apex-protocol/internal/logging"
	"github.com/npezzotti/apex-protocol/internal/stats"
	"github.com/sirupsen/logrus"
)

var envFile string

func main() {
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		logrus.Fatal("config: ", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatal("logging: ", err)
	}

	dbConn, err := database.NewPgApexRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("db close: ", err)
		}
	}()

	if cfg.RunMigrations {
		if err := dbConn.Migrate(context.Background(), logger); err != nil {
			logger.Fatal("migrate: ", err)
		}
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	hub := feed.NewHub(logger, statsUpdater)
	go hub.Run()

	authn := auth.NewJWTAuthenticator(cfg.SigningKey, cfg.TokenExpiry, cfg.TokenIssuer, cfg.TokenAudience)

	srv := api.NewApexApp(mux, logger, dbConn, authn, hub, statsUpdater, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Infof("received signal: %s", sig)
	case err := <-errCh:
		logger.Error("server: ", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Error("HTTP server shutdown: ", err)
	}

	logger.Info("shutting down feed hub...")
	hub.Shutdown()

	logger.Info("shutdown complete")
}
