package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"pix_checkout/api"
	"pix_checkout/config"
)

func main() {
	cfg := config.Load()

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var pool *pgxpool.Pool
	if cfg.DatabaseDSN != "" {
		if *migrateFlag {
			if err := runMigrations(cfg.DatabaseDSN); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
		}

		var err error
		pool, err = pgxpool.New(context.Background(), cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
	} else {
		logger.Warn("no DATABASE_DSN configured, using in-memory storage")
	}

	r := gin.Default()
	api.InitRoutes(r, cfg, api.NewDeps(pool), logger)

	if err := r.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		panic(fmt.Errorf("error trying to start server: %v", err))
	}
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	log.Println("Running database migrations...")
	return goose.Up(db, "migrations")
}
