package main

import (
	"context"
	"flag"
	"log"
	"package-tracking-service/internal/adapters/repositories"
	"package-tracking-service/internal/config"
	"package-tracking-service/internal/platform/logger"
	"time"

	"github.com/joho/godotenv"
)

// dbtool initializes the schema and loads demo packages for a chosen driver.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	driver := flag.String("driver", config.Get("STORAGE_DRIVER", config.DriverSQLite), "storage driver: sqlite or postgres")
	dbPath := flag.String("db", config.Get("DB_PATH", "data/app.db"), "sqlite database path")
	seedPath := flag.String("seed", config.Get("SEED_PATH", "data/seeds/packages.json"), "seed file; empty skips seeding")
	flag.Parse()

	if *driver == config.DriverMemory {
		log.Fatal("dbtool: the memory driver has nothing to initialize")
	}

	lg, err := logger.New(config.Get("LOG_MODE", "dev"))
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	store, err := repositories.OpenStore(*driver, *dbPath, config.Get("DATABASE_URL", ""), lg)
	if err != nil {
		lg.Fatal("open store failed", "driver", *driver, "err", err)
	}
	defer store.Close()

	ctx := context.Background()

	lg.Info("Initializing database schema...", "driver", *driver)
	if err := store.Repo.Initialize(ctx); err != nil {
		lg.Fatal("schema initialization failed", "err", err)
	}
	lg.Info("Schema ready.")

	if *seedPath == "" {
		return
	}

	lg.Info("Seeding database...", "path", *seedPath)
	n, err := repositories.SeedFromJSON(ctx, store.Repo, *seedPath, time.Now())
	if err != nil {
		lg.Fatal("seeding failed", "err", err)
	}
	lg.Info("Seeding complete.", "created", n)
}
