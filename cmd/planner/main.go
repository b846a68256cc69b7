package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/velorize/backend-go/internal/cache"
	"github.com/andresuchdata/velorize/backend-go/internal/config"
	"github.com/andresuchdata/velorize/backend-go/internal/metrics"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline/classification"
	"github.com/andresuchdata/velorize/backend-go/internal/pipeline/forecast"
	"github.com/andresuchdata/velorize/backend-go/internal/repository"
	"github.com/andresuchdata/velorize/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/velorize/backend-go/internal/storage"
	"github.com/andresuchdata/velorize/backend-go/pkg/logger"
)

const dateLayout = "2006-01-02"

// planner holds the wiring shared by every command.
type planner struct {
	db           *postgres.DB
	orchestrator *pipeline.Orchestrator
	pipelines    map[string]pipeline.Pipeline
}

func main() {
	var p planner

	app := &cli.App{
		Name:  "planner",
		Usage: "Run demand planning batch jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-url",
				Usage:   "Database connection string",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:  "as-of",
				Usage: "Planning date (YYYY-MM-DD), defaults to today",
			},
			&cli.StringFlag{
				Name:  "products",
				Usage: "Comma separated product ids; all active products when empty",
			},
			&cli.BoolFlag{
				Name:    "archive",
				Usage:   "Save run reports to object storage",
				EnvVars: []string{"PLANNER_ARCHIVE"},
			},
		},
		Before: p.setup,
		After:  p.close,
		Commands: []*cli.Command{
			{
				Name:   "forecast",
				Usage:  "Forecast monthly demand for the coming periods",
				Action: p.runAction(forecast.Name),
			},
			{
				Name:   "classify",
				Usage:  "Write an ABC-XYZ classification snapshot",
				Action: p.runAction(classification.Name),
			},
			{
				Name:   "all",
				Usage:  "Run classification then forecasting",
				Action: p.runAction(classification.Name, forecast.Name),
			},
			{
				Name:   "retry-failed",
				Usage:  "Reprocess failed items of earlier runs",
				Action: p.retryFailed,
			},
			{
				Name:  "runs",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pipeline", Usage: "Only runs of this pipeline"},
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of runs"},
				},
				Action: p.listRuns,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("planner failed")
	}
}

func (p *planner) setup(c *cli.Context) error {
	cfg := config.Load()
	if err := config.Validate(cfg); err != nil {
		return err
	}
	logger.Configure(cfg.Log, "velorize-planner")

	dsn := c.String("db-url")
	if dsn == "" {
		dsn = cfg.Database.DSN()
	}
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.PingContext(c.Context); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	p.db = postgres.Wrap(sqlx.NewDb(sqlDB, "pgx"))

	planningCache, err := cache.NewPlanningCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("planning cache unavailable, snapshots will not invalidate it")
		planningCache = cache.NewNoopPlanningCache()
	}

	rec := metrics.Default()
	demand := repository.NewDemandRepository(p.db.DB)

	forecastCfg, err := forecast.ConfigFrom(cfg)
	if err != nil {
		return err
	}
	p.pipelines = map[string]pipeline.Pipeline{
		forecast.Name: forecast.NewForecastPipeline(
			forecastCfg,
			repository.NewProductRepository(p.db.DB),
			demand,
			repository.NewMarketingRepository(p.db.DB),
			postgres.NewForecastRepository(p.db),
			rec,
		),
		classification.Name: classification.NewClassificationPipeline(
			cfg.Planning.AnalysisDays,
			demand,
			postgres.NewClassificationRepository(p.db),
			planningCache,
		),
	}

	p.orchestrator = pipeline.NewOrchestrator(pipeline.NewRepository(sqlDB), pipeline.ConfigFrom("planner", cfg.Pipeline), rec)

	if c.Bool("archive") {
		s3, err := storage.NewS3Client(c.Context, cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize report archive: %w", err)
		}
		p.orchestrator.WithArchive(storage.NewReportArchive(s3))
	}
	return nil
}

func (p *planner) close(c *cli.Context) error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *planner) runAction(names ...string) cli.ActionFunc {
	return func(c *cli.Context) error {
		asOf, err := parseAsOf(c.String("as-of"), time.Now())
		if err != nil {
			return err
		}
		ids, err := parseProductIDs(c.String("products"))
		if err != nil {
			return err
		}

		selected := make([]pipeline.Pipeline, 0, len(names))
		for _, name := range names {
			selected = append(selected, p.pipelines[name])
		}

		reports, err := p.orchestrator.RunItems(c.Context, asOf, ids, selected...)
		if printErr := printJSON(reports); printErr != nil {
			return printErr
		}
		if err != nil {
			return err
		}
		return exitStatus(reports)
	}
}

func (p *planner) retryFailed(c *cli.Context) error {
	reports, err := p.orchestrator.RetryFailed(c.Context, p.pipelines[classification.Name], p.pipelines[forecast.Name])
	if printErr := printJSON(reports); printErr != nil {
		return printErr
	}
	if err != nil {
		return err
	}
	return exitStatus(reports)
}

func (p *planner) listRuns(c *cli.Context) error {
	runs, err := p.orchestrator.Runs(c.Context, c.String("pipeline"), c.Int("limit"))
	if err != nil {
		return err
	}
	return printJSON(runs)
}

// parseAsOf reads a YYYY-MM-DD date, defaulting to now's UTC day.
func parseAsOf(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q: expected %s", raw, dateLayout)
	}
	return t, nil
}

func parseProductIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// exitStatus turns a failed run into a non-zero exit. Runs that only lost some
// items still exit 0; their failures are retried by retry-failed.
func exitStatus(reports []*pipeline.RunReport) error {
	for _, r := range reports {
		if r != nil && r.Status == pipeline.StatusFailed {
			return cli.Exit(fmt.Sprintf("pipeline %s failed: %s", r.Pipeline, r.Error), 1)
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
