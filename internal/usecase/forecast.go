package usecase

import (
	"context"
	"fmt"

	"MarketCast/internal/domain/models"
	domrepo "MarketCast/internal/domain/repository"
	"MarketCast/internal/evaluation"
	"MarketCast/internal/services/features"
	"MarketCast/internal/services/forecast"
	"MarketCast/pkg/config"
	applogger "MarketCast/pkg/logger"
)

// ForecastUseCase produces a point price forecast with a conformally
// calibrated interval for the latest bar of a symbol.
type ForecastUseCase struct {
	store     domrepo.CandleStore
	metrics   domrepo.Metrics
	extractor *features.Extractor
	cfg       *config.Config
	l         *applogger.Logger
}

func NewForecastUseCase(store domrepo.CandleStore, metrics domrepo.Metrics, cfg *config.Config) *ForecastUseCase {
	return &ForecastUseCase{
		store:     store,
		metrics:   metrics,
		extractor: features.NewExtractor(),
		cfg:       cfg,
	}
}

// SetLogger injects a structured logger.
func (uc *ForecastUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// RunForecast trains the requested model on the available history and
// forecasts the direction and price band at the requested horizon.
func (uc *ForecastUseCase) RunForecast(ctx context.Context, req models.ForecastRequest) (*models.Forecast, error) {
	candles, err := uc.store.GetLatestNCandles(ctx, req.Symbol, req.N, domrepo.NormalizeTimeframe(req.TF))
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(candles) < req.Horizon+2 {
		return nil, fmt.Errorf("not enough history for %s: %d bars", req.Symbol, len(candles))
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

	if err := evaluation.RunSyntheticGuard(uc.extractor.Compute); err != nil {
		uc.metrics.RecordError("lookahead_guard")
		return nil, err
	}

	labeler := evaluation.NewLabeler(uc.cfg.Labeling.Multiplier, uc.labelVolColumn())
	if uc.cfg.Labeling.VolWindow > 0 {
		labeler.VolWindow = uc.cfg.Labeling.VolWindow
	}
	trainSet, err := labeler.Label(frame, req.Horizon)
	if err != nil {
		return nil, err
	}
	if len(trainSet.Labels) == 0 {
		return nil, fmt.Errorf("no labelable rows for %s", req.Symbol)
	}

	factory, err := forecast.FactoryFor(req.Model, uc.cfg)
	if err != nil {
		return nil, err
	}
	xTrain, err := frame.Slice(0, len(trainSet.Labels)).Select(uc.extractor.FeatureColumns())
	if err != nil {
		return nil, err
	}
	fc := factory()
	if err := fc.Train(ctx, xTrain, trainSet.Labels); err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	xLast, err := frame.Slice(frame.Len()-1, frame.Len()).Select(uc.extractor.FeatureColumns())
	if err != nil {
		return nil, err
	}
	preds, err := fc.Predict(ctx, xLast)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(preds) != 1 {
		return nil, fmt.Errorf("predict returned %d labels for 1 row", len(preds))
	}

	closes, err := frame.Col(models.ColClose)
	if err != nil {
		return nil, err
	}
	lastClose := closes[len(closes)-1]

	// Point forecast: the last close shifted to the labeled band edge
	// in the predicted direction.
	point := lastClose
	switch preds[0] {
	case models.Bullish:
		point = lastClose * (1 + trainSet.BullThreshold)
	case models.Bearish:
		point = lastClose * (1 + trainSet.BearThreshold)
	}

	calibrator := uc.calibrator()
	result := calibrator.Fit(persistenceHistory(candles, req.Horizon), uc.cfg.Conformal.Coverage)
	lower, upper := evaluation.Bounds(point, result.Quantile)

	out := &models.Forecast{
		Symbol:    req.Symbol,
		Timestamp: candles[len(candles)-1].Bucket,
		Horizon:   req.Horizon,
		Label:     preds[0].String(),
		Price:     point,
		Lower:     lower,
		Upper:     upper,
		Conformal: result,
	}
	uc.metrics.RecordForecast(req.Symbol, fmt.Sprintf("%d", req.Horizon), point)
	if uc.l != nil {
		uc.l.Info("forecast produced",
			applogger.String("symbol", req.Symbol),
			applogger.Int("horizon", req.Horizon),
			applogger.String("label", out.Label),
			applogger.Bool("conformal_enabled", result.Enabled),
		)
	}
	return out, nil
}

func (uc *ForecastUseCase) calibrator() evaluation.Calibrator {
	c := evaluation.NewCalibrator()
	if uc.cfg.Conformal.MinSamples > 0 {
		c.MinSamples = uc.cfg.Conformal.MinSamples
	}
	if uc.cfg.Conformal.MaxAbsLogResidual > 0 {
		c.MaxAbsLogResidual = uc.cfg.Conformal.MaxAbsLogResidual
	}
	if uc.cfg.Conformal.FallbackQuantile > 0 {
		c.FallbackQuantile = uc.cfg.Conformal.FallbackQuantile
	}
	return c
}

func (uc *ForecastUseCase) labelVolColumn() string {
	if uc.cfg.Labeling.VolColumn != "" {
		return uc.cfg.Labeling.VolColumn
	}
	return features.ColRollStd
}

// persistenceHistory builds the residual history for calibration from
// persistence forecasts: price at t predicts price at t+h. The model's
// own historical predictions are not available without re-running the
// walk-forward loop, and the persistence residual is a conservative
// stand-in with the same horizon scaling.
func persistenceHistory(candles []models.Candle, horizon int) []models.PredictionRecord {
	if horizon <= 0 || len(candles) <= horizon {
		return nil
	}
	out := make([]models.PredictionRecord, 0, len(candles)-horizon)
	for i := 0; i+horizon < len(candles); i++ {
		out = append(out, models.PredictionRecord{
			Symbol:    candles[i].Symbol,
			Timestamp: candles[i+horizon].Bucket,
			Predicted: candles[i].Close,
			Realized:  candles[i+horizon].Close,
		})
	}
	return out
}
