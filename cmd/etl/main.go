package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/clickhouse"
	"github.com/selivandex/etf-signals/internal/adapters/config"
	"github.com/selivandex/etf-signals/internal/adapters/database"
	"github.com/selivandex/etf-signals/internal/adapters/events"
	"github.com/selivandex/etf-signals/internal/adapters/macro"
	"github.com/selivandex/etf-signals/internal/adapters/prices"
	"github.com/selivandex/etf-signals/internal/adapters/redis"
	"github.com/selivandex/etf-signals/internal/adapters/telegram"
	"github.com/selivandex/etf-signals/internal/features"
	"github.com/selivandex/etf-signals/internal/labels"
	"github.com/selivandex/etf-signals/internal/pipeline"
	"github.com/selivandex/etf-signals/pkg/logger"
	"github.com/selivandex/etf-signals/pkg/models"
	"github.com/selivandex/etf-signals/pkg/worker"
)

// Exit codes: 0 = clean run, 1 = fatal (config, benchmark, frozen-label
// conflict), 2 = partial (some assets failed, the rest persisted)
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	os.Exit(run(ctx))
}

func run(ctx context.Context) int {
	var (
		modeFlag     = flag.String("mode", "incremental", "run mode: backfill or incremental")
		startFlag    = flag.String("start", "", "backfill start date (YYYY-MM-DD)")
		endFlag      = flag.String("end", "", "backfill end date (YYYY-MM-DD), defaults to today")
		daemonFlag   = flag.Bool("daemon", false, "keep running, re-executing incremental runs on an interval")
		intervalFlag = flag.Duration("interval", 6*time.Hour, "daemon re-run interval")
		validateFlag = flag.Bool("validate", true, "run the data-quality summary after the batch")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return exitFatal
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		return exitFatal
	}
	defer logger.Sync()

	mode := models.RunMode(*modeFlag)
	if mode != models.ModeBackfill && mode != models.ModeIncremental {
		logger.Error("unknown mode", zap.String("mode", *modeFlag))
		return exitFatal
	}

	start, end, err := parseWindow(mode, *startFlag, *endFlag)
	if err != nil {
		logger.Error("invalid date window", zap.Error(err))
		return exitFatal
	}

	logger.Info("ETL starting",
		zap.String("mode", string(mode)),
		zap.Strings("universe", cfg.Universe.Symbols),
		zap.String("benchmark", cfg.Universe.Benchmark),
	)

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Error("database init failed", zap.Error(err))
		return exitFatal
	}
	defer db.Close()

	if err := database.RunMigrations(db.Conn(), cfg.Pipeline.MigrationsPath); err != nil {
		logger.Error("migrations failed", zap.Error(err))
		return exitFatal
	}

	deps := pipeline.Deps{
		BarProvider:   prices.NewStooqProvider(),
		MacroProvider: macro.NewFredProvider(cfg.Macro.FredAPIKey),
		BarsRepo:      prices.NewRepository(db),
		MacroRepo:     macro.NewRepository(db),
		EventsRepo:    events.NewRepository(db),
		FeaturesRepo:  features.NewRepository(db),
		LabelsRepo:    labels.NewRepository(db),
	}

	if cfg.Archive.Enabled {
		archive, err := clickhouse.NewArchive(&cfg.Archive)
		if err != nil {
			logger.Error("clickhouse archive init failed", zap.Error(err))
			return exitFatal
		}
		defer archive.Close()
		deps.Archive = archive
	}

	var notifier *telegram.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier, err = telegram.NewNotifier(&cfg.Telegram)
		if err != nil {
			logger.Error("telegram notifier init failed", zap.Error(err))
			return exitFatal
		}
	}

	runner := pipeline.NewRunner(cfg, deps)
	validator := pipeline.NewValidator(deps.BarsRepo, deps.MacroRepo, deps.FeaturesRepo, deps.LabelsRepo)

	job := &etlJob{
		cfg:       cfg,
		runner:    runner,
		validator: validator,
		notifier:  notifier,
		mode:      mode,
		start:     start,
		end:       end,
		validate:  *validateFlag,
	}

	if *daemonFlag {
		if mode != models.ModeIncremental {
			logger.Error("daemon mode only supports incremental runs")
			return exitFatal
		}
		pw := worker.NewPeriodicWorker(job, *intervalFlag)
		pw.Start(ctx)
		<-ctx.Done()
		logger.Info("shutting down gracefully...")
		pw.Stop(30 * time.Second)
		return exitOK
	}

	return job.runOnce(ctx)
}

// etlJob binds one configured run so it can execute directly or under the
// periodic worker
type etlJob struct {
	cfg       *config.Config
	runner    *pipeline.Runner
	validator *pipeline.Validator
	notifier  *telegram.Notifier
	mode      models.RunMode
	start     time.Time
	end       time.Time
	validate  bool
}

func (j *etlJob) Name() string { return "etl" }

// Run satisfies the worker interface for daemon mode
func (j *etlJob) Run(ctx context.Context) error {
	if code := j.runOnce(ctx); code == exitFatal {
		return fmt.Errorf("etl run failed")
	}
	return nil
}

func (j *etlJob) runOnce(ctx context.Context) int {
	lock, release, ok := j.acquireLock(ctx)
	if !ok {
		return exitOK
	}
	if lock != nil {
		defer release()
	}

	report, err := j.runner.Run(ctx, j.mode, j.start, j.end)
	if err != nil {
		if errors.Is(err, pipeline.ErrNothingToProcess) {
			logger.Info("nothing to process, stores are current")
			return exitOK
		}
		logger.Error("pipeline run failed", zap.Error(err))
		j.notify(report)
		return exitFatal
	}

	if j.validate {
		if _, err := j.validator.Validate(ctx); err != nil {
			logger.Error("validation failed", zap.Error(err))
		}
	}

	j.notify(report)

	if len(report.Failed()) > 0 {
		return exitPartial
	}
	return exitOK
}

// acquireLock takes the distributed run lock when Redis is configured.
// Returns ok=false when another run already holds it.
func (j *etlJob) acquireLock(ctx context.Context) (*redis.RunLock, func(), bool) {
	if len(j.cfg.Redis.Addrs) == 0 {
		return nil, nil, true
	}

	lock, err := redis.NewRunLock(ctx, &j.cfg.Redis)
	if err != nil {
		logger.Error("run lock init failed", zap.Error(err))
		return nil, nil, false
	}

	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		logger.Error("run lock acquisition failed", zap.Error(err))
		return nil, nil, false
	}
	if !acquired {
		logger.Info("another run holds the lock, skipping")
		return nil, nil, false
	}

	return lock, func() { lock.Release(context.Background()) }, true
}

func (j *etlJob) notify(report *pipeline.Report) {
	if j.notifier == nil || report == nil {
		return
	}
	j.notifier.SendRunSummary(telegram.RunSummary{
		Mode:        string(report.Mode),
		Start:       report.Start,
		End:         report.End,
		Duration:    report.Duration,
		AssetsOK:    report.Succeeded(),
		AssetsFail:  report.Failed(),
		FeatureRows: sumFeatureRows(report),
		LabelRows:   sumLabelRows(report),
	})
}

func sumFeatureRows(r *pipeline.Report) int {
	n := 0
	for _, a := range r.Assets {
		n += a.FeatureRows
	}
	return n
}

func sumLabelRows(r *pipeline.Report) int {
	n := 0
	for _, a := range r.Assets {
		n += a.LabelRows
	}
	return n
}

func parseWindow(mode models.RunMode, startStr, endStr string) (time.Time, time.Time, error) {
	if mode == models.ModeIncremental {
		return time.Time{}, time.Time{}, nil
	}

	if startStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("backfill mode requires -start")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -start: %w", err)
	}

	end := models.DateOf(time.Now())
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid -end: %w", err)
		}
	}

	return models.DateOf(start), models.DateOf(end), nil
}
