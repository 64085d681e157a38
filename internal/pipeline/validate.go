package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/etf-signals/internal/adapters/macro"
	"github.com/selivandex/etf-signals/internal/adapters/prices"
	"github.com/selivandex/etf-signals/internal/features"
	"github.com/selivandex/etf-signals/internal/labels"
	"github.com/selivandex/etf-signals/pkg/logger"
)

// Validator produces a post-run data-quality summary: row counts, duplicate
// detection, macro staleness distribution, and incomplete-label counts.
type Validator struct {
	barsRepo  *prices.Repository
	macroRepo *macro.Repository
	featRepo  *features.Repository
	labelRepo *labels.Repository
}

// NewValidator creates a validator over the persisted stores
func NewValidator(bars *prices.Repository, macroRepo *macro.Repository, feats *features.Repository, labs *labels.Repository) *Validator {
	return &Validator{barsRepo: bars, macroRepo: macroRepo, featRepo: feats, labelRepo: labs}
}

// Summary is the validation result. Problems lists human-readable findings;
// an empty list means the stores look healthy.
type Summary struct {
	FeatureRowsByAsset map[int64]int
	FeatureNullRate    float64
	DuplicateBars      int
	StalenessBuckets   map[int]int
	IncompleteLabels   int
	Problems           []string
}

// A feature row legitimately misses some values (warm-up, stale macro), but
// losing more than half the manifest on average means an upstream series is
// broken
const maxHealthyNullRate = 0.5

// Validate inspects the persisted stores after a run
func (v *Validator) Validate(ctx context.Context) (*Summary, error) {
	s := &Summary{}

	var err error
	s.FeatureRowsByAsset, err = v.featRepo.CountByAsset(ctx)
	if err != nil {
		return nil, err
	}

	s.FeatureNullRate, err = v.featRepo.AvgNullRate(ctx, len(features.Manifest()))
	if err != nil {
		return nil, err
	}
	if s.FeatureNullRate > maxHealthyNullRate {
		s.Problems = append(s.Problems,
			fmt.Sprintf("average feature null rate %.2f exceeds %.2f", s.FeatureNullRate, maxHealthyNullRate))
	}

	s.DuplicateBars, err = v.barsRepo.DuplicateDates(ctx)
	if err != nil {
		return nil, err
	}
	if s.DuplicateBars > 0 {
		s.Problems = append(s.Problems,
			fmt.Sprintf("%d duplicate (asset, date) bar rows", s.DuplicateBars))
	}

	s.StalenessBuckets, err = v.macroRepo.StalenessBuckets(ctx)
	if err != nil {
		return nil, err
	}

	s.IncompleteLabels, err = v.labelRepo.IncompleteCount(ctx)
	if err != nil {
		return nil, err
	}

	logger.Info("validation summary",
		zap.Int("assets_with_features", len(s.FeatureRowsByAsset)),
		zap.Float64("feature_null_rate", s.FeatureNullRate),
		zap.Int("duplicate_bars", s.DuplicateBars),
		zap.Int("incomplete_labels", s.IncompleteLabels),
		zap.Int("problems", len(s.Problems)),
	)
	if len(s.Problems) > 0 {
		logger.Warn("validation problems found",
			zap.String("problems", strings.Join(s.Problems, "; ")),
		)
	}

	return s, nil
}

// Healthy reports whether the stores passed every check
func (s *Summary) Healthy() bool {
	return len(s.Problems) == 0
}
