package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory containing the seed CSV files",
		Value:   "./data/seeds",
		EnvVars: []string{"SEED_DATA_DIR"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Load planning data from CSV files",
		Commands: []*cli.Command{
			{
				Name:   "master",
				Usage:  "Seed products",
				Flags:  []cli.Flag{newDBURLFlag(), newDataDirFlag()},
				Action: withTx(seedMaster),
			},
			{
				Name:   "history",
				Usage:  "Seed sales transactions, stock on hand and marketing events",
				Flags:  []cli.Flag{newDBURLFlag(), newDataDirFlag()},
				Action: withTx(seedHistory),
			},
			{
				Name:  "all",
				Usage: "Seed master data then history",
				Flags: []cli.Flag{newDBURLFlag(), newDataDirFlag()},
				Action: withTx(func(ctx context.Context, tx *sql.Tx, dataDir string) error {
					if err := seedMaster(ctx, tx, dataDir); err != nil {
						return fmt.Errorf("error running master seed: %w", err)
					}
					if err := seedHistory(ctx, tx, dataDir); err != nil {
						return fmt.Errorf("error running history seed: %w", err)
					}
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type seedFunc func(ctx context.Context, tx *sql.Tx, dataDir string) error

// withTx runs fn in a single transaction so a bad file leaves the database untouched.
func withTx(fn seedFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := sql.Open("pgx", c.String("db-url"))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		ctx := c.Context
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		log.Println("Starting database seeding...")
		if err := fn(ctx, tx, c.String("data-dir")); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		log.Println("Database seeding completed successfully!")
		return nil
	}
}
