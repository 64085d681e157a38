package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/config"
	"github.com/selivandex/etf-signals/internal/adapters/events"
	"github.com/selivandex/etf-signals/internal/adapters/macro"
	"github.com/selivandex/etf-signals/internal/adapters/prices"
	"github.com/selivandex/etf-signals/internal/features"
	"github.com/selivandex/etf-signals/internal/labels"
	"github.com/selivandex/etf-signals/internal/macroalign"
	"github.com/selivandex/etf-signals/pkg/logger"
	"github.com/selivandex/etf-signals/pkg/models"
	"github.com/selivandex/etf-signals/pkg/retry"
)

// ErrNothingToProcess means incremental mode found no new trading days
var ErrNothingToProcess = errors.New("nothing to process")

// Five trading days of label horizon can span two weekends plus holidays;
// this much calendar lookback always covers it.
const labelLookbackDays = 14

// Archiver mirrors rows into the analytical store. Optional; mirror
// failures are logged, never fatal.
type Archiver interface {
	SaveFeatures(ctx context.Context, rows []models.FeatureRow) error
	SaveLabels(ctx context.Context, rows []models.LabelRow) error
}

// AssetResult is the per-asset outcome of a run
type AssetResult struct {
	Symbol      string
	FeatureRows int
	LabelRows   int
	Err         error
}

// Report summarizes one pipeline run
type Report struct {
	Mode     models.RunMode
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Assets   []AssetResult
	// Fatal is set when the run hit a stop-everything condition (frozen
	// label conflict, benchmark ingestion failure)
	Fatal error
}

// Failed returns the symbols that did not complete
func (r *Report) Failed() map[string]string {
	out := make(map[string]string)
	for _, a := range r.Assets {
		if a.Err != nil {
			out[a.Symbol] = a.Err.Error()
		}
	}
	return out
}

// Succeeded returns the symbols that completed
func (r *Report) Succeeded() []string {
	var out []string
	for _, a := range r.Assets {
		if a.Err == nil {
			out = append(out, a.Symbol)
		}
	}
	return out
}

// Runner orchestrates one batch: ingest bars and macro series, build the
// shared context, then compute and persist features and labels per asset.
type Runner struct {
	cfg *config.Config

	barProvider   prices.BarProvider
	macroProvider macro.SeriesProvider

	barsRepo   *prices.Repository
	macroRepo  *macro.Repository
	eventsRepo *events.Repository
	featRepo   *features.Repository
	labelRepo  *labels.Repository

	labelEngine *labels.Engine
	archive     Archiver
}

// Deps carries the runner's collaborators
type Deps struct {
	BarProvider   prices.BarProvider
	MacroProvider macro.SeriesProvider
	BarsRepo      *prices.Repository
	MacroRepo     *macro.Repository
	EventsRepo    *events.Repository
	FeaturesRepo  *features.Repository
	LabelsRepo    *labels.Repository
	// Archive is optional
	Archive Archiver
}

// NewRunner creates the pipeline runner
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	return &Runner{
		cfg:           cfg,
		barProvider:   deps.BarProvider,
		macroProvider: deps.MacroProvider,
		barsRepo:      deps.BarsRepo,
		macroRepo:     deps.MacroRepo,
		eventsRepo:    deps.EventsRepo,
		featRepo:      deps.FeaturesRepo,
		labelRepo:     deps.LabelsRepo,
		labelEngine: labels.New(
			cfg.Labels.LabelPolicy(),
			cfg.Labels.Threshold,
			cfg.Labels.ClipSigma,
		),
		archive: deps.Archive,
	}
}

// Run executes one batch over [start, end]. In incremental mode the window
// is derived from what is already persisted and the arguments are ignored.
func (r *Runner) Run(ctx context.Context, mode models.RunMode, start, end time.Time) (*Report, error) {
	began := time.Now()

	start, end, err := r.resolveWindow(ctx, mode, start, end)
	if err != nil {
		return nil, err
	}

	report := &Report{Mode: mode, Start: start, End: end}

	logger.Info("pipeline run starting",
		zap.String("mode", string(mode)),
		zap.String("start", start.Format("2006-01-02")),
		zap.String("end", end.Format("2006-01-02")),
	)

	// History fetched before the window start so the longest rolling windows
	// are warm on the first processed day. Trading days -> calendar days.
	fetchStart := start.AddDate(0, 0, -(r.cfg.Pipeline.WarmupTradingDays*7/5 + 14))

	assetIDs, barErrs := r.ingestBars(ctx, fetchStart, end)
	benchmark := r.cfg.Universe.Benchmark
	if err, failed := barErrs[benchmark]; failed {
		report.Fatal = fmt.Errorf("benchmark %s ingestion failed: %w", benchmark, err)
		return report, report.Fatal
	}

	calendar, err := r.benchmarkCalendar(ctx, assetIDs[benchmark], fetchStart, end)
	if err != nil {
		report.Fatal = err
		return report, err
	}

	engine, err := r.buildEngine(ctx, assetIDs, calendar, fetchStart, end)
	if err != nil {
		report.Fatal = err
		return report, err
	}

	report.Assets = r.processAssets(ctx, engine, assetIDs, barErrs, fetchStart, start, end)
	report.Duration = time.Since(began)

	for _, a := range report.Assets {
		if a.Err != nil && errors.Is(a.Err, labels.ErrFrozenLabelConflict) {
			report.Fatal = a.Err
			return report, a.Err
		}
	}

	logger.Info("pipeline run finished",
		zap.String("mode", string(mode)),
		zap.Duration("duration", report.Duration),
		zap.Int("assets_ok", len(report.Succeeded())),
		zap.Int("assets_failed", len(report.Failed())),
	)

	return report, nil
}

func (r *Runner) resolveWindow(ctx context.Context, mode models.RunMode, start, end time.Time) (time.Time, time.Time, error) {
	if mode == models.ModeBackfill {
		if start.IsZero() || end.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("backfill mode requires explicit start and end dates")
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, fmt.Errorf("end %s precedes start %s",
				end.Format("2006-01-02"), start.Format("2006-01-02"))
		}
		return models.DateOf(start), models.DateOf(end), nil
	}

	// Incremental: resume after the oldest persisted frontier so a symbol
	// that fell behind catches up with the rest
	today := models.DateOf(time.Now())
	var frontier time.Time
	for _, symbol := range r.cfg.Universe.Symbols {
		asset, err := r.barsRepo.GetAsset(ctx, symbol)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("incremental mode needs a prior backfill: %w", err)
		}
		latest, err := r.featRepo.LatestDate(ctx, asset.ID)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if latest.IsZero() {
			return time.Time{}, time.Time{}, fmt.Errorf("asset %s has no feature history, run a backfill first", symbol)
		}
		if frontier.IsZero() || latest.Before(frontier) {
			frontier = latest
		}
	}

	start = frontier.AddDate(0, 0, 1)
	if start.After(today) {
		return time.Time{}, time.Time{}, ErrNothingToProcess
	}
	return start, today, nil
}

// ingestBars fetches and persists bars for every universe symbol and proxy.
// Returns asset ids by symbol and per-symbol fetch errors; one symbol
// failing never stops the others.
func (r *Runner) ingestBars(ctx context.Context, from, to time.Time) (map[string]int64, map[string]error) {
	symbols := append([]string{}, r.cfg.Universe.Symbols...)
	symbols = append(symbols, r.cfg.Universe.Proxies...)

	ids := make(map[string]int64, len(symbols))
	errs := make(map[string]error)

	retryCfg := retry.Config{
		Attempts: r.cfg.Pipeline.FetchAttempts,
		Base:     r.cfg.Pipeline.FetchBackoff,
		Max:      10 * time.Second,
	}

	for _, symbol := range symbols {
		assetType := models.AssetETF
		if strings.HasPrefix(symbol, "^") {
			assetType = models.AssetIndex
		}

		id, err := r.barsRepo.UpsertAsset(ctx, models.Asset{
			Symbol:   symbol,
			Name:     symbol,
			Type:     assetType,
			Exchange: "NYSE/NASDAQ",
			Currency: "USD",
			Timezone: "America/New_York",
		})
		if err != nil {
			errs[symbol] = err
			continue
		}
		ids[symbol] = id

		var bars []models.Bar
		err = retry.Do(ctx, retryCfg, "fetch bars "+symbol, func(ctx context.Context) error {
			var fetchErr error
			bars, fetchErr = r.barProvider.GetDailyBars(ctx, symbol, from, to)
			return fetchErr
		})
		if err != nil {
			logger.Error("bar ingestion failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			errs[symbol] = err
			continue
		}

		if err := r.barsRepo.UpsertBars(ctx, id, bars); err != nil {
			errs[symbol] = err
			continue
		}

		logger.Debug("bars ingested",
			zap.String("symbol", symbol),
			zap.Int("count", len(bars)),
		)
	}

	return ids, errs
}

// benchmarkCalendar loads the benchmark's persisted trading dates; they
// define the alignment calendar for every shared series
func (r *Runner) benchmarkCalendar(ctx context.Context, benchmarkID int64, from, to time.Time) ([]time.Time, error) {
	bars, err := r.barsRepo.GetBars(ctx, benchmarkID, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("benchmark has no bars in window")
	}

	calendar := make([]time.Time, len(bars))
	for i, b := range bars {
		calendar[i] = models.DateOf(b.Date)
	}
	return calendar, nil
}

// buildEngine ingests macro series and events, computes the shared context
// on the benchmark calendar, and returns the assembled feature engine
func (r *Runner) buildEngine(ctx context.Context, assetIDs map[string]int64, calendar []time.Time, from, to time.Time) (*features.Engine, error) {
	aligner := macroalign.New(r.cfg.Macro.MaxGapDays)

	retryCfg := retry.Config{
		Attempts: r.cfg.Pipeline.FetchAttempts,
		Base:     r.cfg.Pipeline.FetchBackoff,
		Max:      10 * time.Second,
	}

	macroValues := make(map[string][]float64, len(r.cfg.Macro.Series))
	for _, key := range r.cfg.Macro.Series {
		var obs []macroalign.Observation
		err := retry.Do(ctx, retryCfg, "fetch macro "+key, func(ctx context.Context) error {
			var fetchErr error
			obs, fetchErr = r.macroProvider.GetObservations(ctx, key, from, to)
			return fetchErr
		})
		if err != nil {
			// Features reading this series degrade to absent for the window
			logger.Error("macro series ingestion failed, features will be absent",
				zap.String("series", key),
				zap.Error(err),
			)
			continue
		}
		macroalign.SortObservations(obs)

		seriesID, err := r.macroRepo.UpsertSeries(ctx, key, key)
		if err != nil {
			return nil, err
		}
		points := aligner.Align(calendar, obs)
		for i := range points {
			points[i].SeriesID = seriesID
		}
		if err := r.macroRepo.UpsertPoints(ctx, points); err != nil {
			return nil, err
		}

		macroValues[key] = aligner.Values(calendar, obs)
	}

	proxyValues := make(map[string][]float64, len(r.cfg.Universe.Proxies))
	for _, symbol := range r.cfg.Universe.Proxies {
		id, ok := assetIDs[symbol]
		if !ok {
			continue
		}
		closes, err := r.denseCloses(ctx, id, calendar, from, to)
		if err != nil {
			return nil, err
		}
		proxyValues[symbol] = closes
	}

	etfValues := make(map[string][]float64)
	for _, symbol := range r.cfg.Universe.Symbols {
		id, ok := assetIDs[symbol]
		if !ok {
			continue
		}
		closes, err := r.denseCloses(ctx, id, calendar, from, to)
		if err != nil {
			return nil, err
		}
		etfValues[symbol] = closes
	}

	if err := r.eventsRepo.Upsert(ctx, events.KnownEvents(from, to)); err != nil {
		return nil, err
	}
	eventList, err := r.eventsRepo.GetRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	contextVectors := features.ComputeContext(features.ContextInput{
		Calendar:  calendar,
		Proxies:   proxyValues,
		Macro:     macroValues,
		ETFs:      etfValues,
		Benchmark: r.cfg.Universe.Benchmark,
	})

	return features.NewEngine(calendar, contextVectors, eventList), nil
}

// denseCloses aligns an asset's closes onto the benchmark calendar, NaN
// where the asset did not trade
func (r *Runner) denseCloses(ctx context.Context, assetID int64, calendar []time.Time, from, to time.Time) ([]float64, error) {
	bars, err := r.barsRepo.GetBars(ctx, assetID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		c, _ := b.Close.Float64()
		byDate[models.DateOf(b.Date)] = c
	}

	out := make([]float64, len(calendar))
	for i, d := range calendar {
		if c, ok := byDate[d]; ok {
			out[i] = c
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// processAssets runs the per-asset compute/persist stage on a bounded worker
// pool. Each asset is independent; a failure is recorded and isolated.
func (r *Runner) processAssets(ctx context.Context, engine *features.Engine, assetIDs map[string]int64, barErrs map[string]error, fetchStart, start, end time.Time) []AssetResult {
	results := make([]AssetResult, len(r.cfg.Universe.Symbols))

	sem := make(chan struct{}, r.cfg.Pipeline.Concurrency)
	var wg sync.WaitGroup

	for i, symbol := range r.cfg.Universe.Symbols {
		if err, failed := barErrs[symbol]; failed {
			results[i] = AssetResult{Symbol: symbol, Err: err}
			continue
		}

		wg.Add(1)
		go func(i int, symbol string, assetID int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = r.processAsset(ctx, engine, symbol, assetID, fetchStart, start, end)
		}(i, symbol, assetIDs[symbol])
	}

	wg.Wait()
	return results
}

// processAsset computes and persists features then labels for one asset,
// chronologically over its own bars
func (r *Runner) processAsset(ctx context.Context, engine *features.Engine, symbol string, assetID int64, fetchStart, start, end time.Time) AssetResult {
	res := AssetResult{Symbol: symbol}

	bars, err := r.barsRepo.GetBars(ctx, assetID, fetchStart, end)
	if err != nil {
		res.Err = err
		return res
	}
	if len(bars) == 0 {
		res.Err = fmt.Errorf("no bars persisted for %s", symbol)
		return res
	}

	featureRows := engine.Compute(assetID, bars)

	// Labels scale by the same vol_20 the feature rows carry
	vol20 := make([]float64, len(featureRows))
	for i, row := range featureRows {
		if v, ok := row.Features[features.Vol20]; ok {
			vol20[i] = v
		} else {
			vol20[i] = math.NaN()
		}
	}
	labelRows := r.labelEngine.Compute(assetID, bars, vol20)

	// The warm-up region exists only to feed the windows; persist the
	// requested window only. Label rows keep a lookback behind the start:
	// the tail of the previous run was persisted with NULL forward returns,
	// and the fill-null upsert completes those rows here.
	featureRows = filterFeatureRows(featureRows, start)
	labelRows = filterLabelRows(labelRows, start.AddDate(0, 0, -labelLookbackDays))

	if err := r.featRepo.Upsert(ctx, featureRows); err != nil {
		res.Err = err
		return res
	}
	if err := r.labelRepo.Upsert(ctx, labelRows); err != nil {
		res.Err = err
		return res
	}

	if _, err := r.barsRepo.FillOutcomePrices(ctx, assetID); err != nil {
		res.Err = err
		return res
	}

	if r.archive != nil {
		if err := r.archive.SaveFeatures(ctx, featureRows); err != nil {
			logger.Warn("feature archive mirror failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
		if err := r.archive.SaveLabels(ctx, labelRows); err != nil {
			logger.Warn("label archive mirror failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		}
	}

	res.FeatureRows = len(featureRows)
	res.LabelRows = len(labelRows)

	logger.Info("asset processed",
		zap.String("symbol", symbol),
		zap.Int("feature_rows", res.FeatureRows),
		zap.Int("label_rows", res.LabelRows),
	)
	return res
}

func filterFeatureRows(rows []models.FeatureRow, start time.Time) []models.FeatureRow {
	out := rows[:0]
	for _, row := range rows {
		if !row.Date.Before(start) {
			out = append(out, row)
		}
	}
	return out
}

func filterLabelRows(rows []models.LabelRow, start time.Time) []models.LabelRow {
	out := rows[:0]
	for _, row := range rows {
		if !row.Date.Before(start) {
			out = append(out, row)
		}
	}
	return out
}
