package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketCast/internal/domain/models"
	domrepo "MarketCast/internal/domain/repository"
	"MarketCast/internal/evaluation"
	"MarketCast/internal/services/features"
	"MarketCast/internal/services/forecast"
	pkgcache "MarketCast/pkg/cache"
	"MarketCast/pkg/config"
	applogger "MarketCast/pkg/logger"
)

// EvaluationUseCase runs leakage-safe walk-forward evaluations over
// stored candles and persists the resulting reports.
type EvaluationUseCase struct {
	store     domrepo.CandleStore
	results   domrepo.ResultStore
	metrics   domrepo.Metrics
	extractor *features.Extractor
	cfg       *config.Config
	cache     pkgcache.Service
	l         *applogger.Logger
}

func NewEvaluationUseCase(store domrepo.CandleStore, results domrepo.ResultStore, metrics domrepo.Metrics, cfg *config.Config) *EvaluationUseCase {
	return &EvaluationUseCase{
		store:     store,
		results:   results,
		metrics:   metrics,
		extractor: features.NewExtractor(),
		cfg:       cfg,
	}
}

// SetLogger injects a structured logger.
func (uc *EvaluationUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// SetCache enables caching of latest summaries.
func (uc *EvaluationUseCase) SetCache(c pkgcache.Service) { uc.cache = c }

// RunEvaluation executes the full pipeline for one symbol: load
// candles, derive features, verify causality, walk forward, persist.
// A nil summary with nil error means the data was too thin to report.
func (uc *EvaluationUseCase) RunEvaluation(ctx context.Context, req models.EvaluateRequest) (*models.EvaluationSummary, error) {
	start := time.Now()

	frame, err := uc.loadFrame(ctx, req.Symbol, req.N, req.TF)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, nil
	}

	// The extractor must survive the synthetic mutation probe before
	// any of its output reaches training.
	if err := evaluation.RunSyntheticGuard(uc.extractor.Compute); err != nil {
		uc.metrics.RecordError("lookahead_guard")
		return nil, err
	}

	factory, err := forecast.FactoryFor(req.Model, uc.cfg)
	if err != nil {
		return nil, err
	}

	labeler := evaluation.NewLabeler(uc.cfg.Labeling.Multiplier, uc.labelVolColumn())
	if uc.cfg.Labeling.VolWindow > 0 {
		labeler.VolWindow = uc.cfg.Labeling.VolWindow
	}

	evaluator := evaluation.NewEvaluator(uc.evaluatorConfig(), labeler)
	evaluator.SetLogger(uc.l)

	summary, err := evaluator.Evaluate(ctx, frame, uc.extractor.FeatureColumns(), factory, req.Horizon)
	if err != nil {
		uc.metrics.RecordError("evaluate")
		return nil, err
	}
	if summary == nil {
		if uc.l != nil {
			uc.l.Info("evaluation produced no result",
				applogger.String("symbol", req.Symbol),
				applogger.Int("horizon", req.Horizon),
				applogger.Int("rows", frame.Len()),
			)
		}
		return nil, nil
	}
	summary.Symbol = req.Symbol

	uc.metrics.RecordWindows(req.Symbol, req.Model, summary.WindowCount-summary.SkippedWindows, summary.SkippedWindows)
	uc.metrics.RecordLatency("evaluation", time.Since(start).Seconds())

	if uc.results != nil {
		if err := uc.results.StoreSummary(ctx, req.Symbol, req.Model, req.Horizon, summary); err != nil {
			uc.metrics.RecordError("store_summary")
			if uc.l != nil {
				uc.l.Error("persist evaluation summary failed",
					applogger.String("symbol", req.Symbol),
					applogger.Error(err),
				)
			}
		}
	}
	if uc.cache != nil {
		// Cached copy carries no per-window detail.
		cached := *summary
		cached.Windows = nil
		_ = uc.cache.Set(ctx, latestSummaryKey(req.Symbol, req.Model, req.Horizon), &cached, time.Minute)
	}

	if !req.Detail {
		summary.Windows = nil
	}
	return summary, nil
}

// LatestSummary returns the most recent persisted report, if any.
func (uc *EvaluationUseCase) LatestSummary(ctx context.Context, symbol, model string, horizon int) (*models.EvaluationSummary, error) {
	if uc.results == nil {
		return nil, fmt.Errorf("result store not configured")
	}
	key := latestSummaryKey(symbol, model, horizon)
	if uc.cache != nil {
		var cached models.EvaluationSummary
		if err := uc.cache.Get(ctx, key, &cached); err == nil && cached.Symbol != "" {
			return &cached, nil
		}
	}
	summary, err := uc.results.LatestSummary(ctx, symbol, model, horizon)
	if err != nil || summary == nil {
		return summary, err
	}
	if uc.cache != nil {
		_ = uc.cache.Set(ctx, key, summary, time.Minute)
	}
	return summary, nil
}

func latestSummaryKey(symbol, model string, horizon int) string {
	return fmt.Sprintf("summary:latest:%s:%s:%d", symbol, model, horizon)
}

// loadFrame fetches candles and attaches the feature columns. Returns
// nil when the store holds fewer rows than one train/test window.
func (uc *EvaluationUseCase) loadFrame(ctx context.Context, symbol string, n int, tf string) (*models.Frame, error) {
	candles, err := uc.store.GetLatestNCandles(ctx, symbol, n, domrepo.NormalizeTimeframe(tf))
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) < uc.cfg.Evaluation.TrainSize+uc.cfg.Evaluation.TestSize {
		return nil, nil
	}

	frame := models.FrameFromCandles(candles)
	feats, err := uc.extractor.Compute(frame)
	if err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}
	for _, name := range uc.extractor.FeatureColumns() {
		vs, err := feats.Col(name)
		if err != nil {
			return nil, err
		}
		frame.SetCol(name, vs)
	}
	return frame, nil
}

func (uc *EvaluationUseCase) evaluatorConfig() evaluation.EvaluatorConfig {
	ec := uc.cfg.Evaluation
	return evaluation.EvaluatorConfig{
		TrainSize:       ec.TrainSize,
		TestSize:        ec.TestSize,
		StepSize:        ec.StepSize,
		EmbargoFraction: ec.EmbargoFraction,
		MinWindows:      ec.MinWindows,
		MinTrainSize:    ec.MinTrainSize,
		MaxSkipRatio:    ec.MaxSkipRatio,
	}
}

func (uc *EvaluationUseCase) labelVolColumn() string {
	if uc.cfg.Labeling.VolColumn != "" {
		return uc.cfg.Labeling.VolColumn
	}
	return features.ColRollStd
}
