// Command seed fills a development database with demo accounts and messages.
package main

import (
	"context"
	"flag"

	"github.com/npezzotti/apex-protocol/internal/config"
	"github.com/npezzotti/apex-protocol/internal/database"
	"github.com/npezzotti/apex-protocol/internal/logging"
	"github.com/sirupsen/logrus"
)

const demoPassword = "password123"

var (
	envFile string
	reset   bool
	migrate bool
)

func main() {
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	flag.BoolVar(&reset, "reset", false, "truncate users and messages before seeding")
	flag.BoolVar(&migrate, "migrate", true, "apply migrations before seeding")
	flag.Parse()

	logger, err := logging.New("info", "text")
	if err != nil {
		logrus.Fatal(err)
	}

	dsn, err := config.DatabaseDSN(envFile)
	if err != nil {
		logger.Fatal("config: ", err)
	}

	db, err := database.NewPgApexRepository(dsn)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	if migrate {
		if err := db.Migrate(ctx, logger); err != nil {
			logger.Fatal("migrate: ", err)
		}
	}

	if err := run(ctx, db, logger, reset); err != nil {
		logger.Fatal(err)
	}

	logger.Info("seeding complete")
}
