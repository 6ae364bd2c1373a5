package evaluation

import (
	"context"
	"math"
	"time"

	"MarketCast/internal/domain/models"
	"MarketCast/internal/domain/service"
	applogger "MarketCast/pkg/logger"
)

// EvaluatorConfig holds walk-forward evaluation parameters. It is
// built once from the process configuration and passed in explicitly;
// the core keeps no ambient state.
type EvaluatorConfig struct {
	TrainSize       int
	TestSize        int
	StepSize        int
	EmbargoFraction float64

	// MinWindows is the minimum number of completed windows for a
	// result to be reported at all.
	MinWindows int
	// MinTrainSize is the minimum sample count in the smallest
	// training window.
	MinTrainSize int
	// MaxSkipRatio is the skipped-window fraction above which the run
	// is escalated as a systemic failure instead of reported.
	MaxSkipRatio float64
}

// Normalize fills gate defaults without touching window sizes.
func (c EvaluatorConfig) Normalize() EvaluatorConfig {
	if c.MinWindows <= 0 {
		c.MinWindows = 2
	}
	if c.MaxSkipRatio <= 0 {
		c.MaxSkipRatio = 0.5
	}
	return c
}

// Evaluator orchestrates walk-forward evaluation: window generation,
// leakage-safe labeling, per-window training via a fresh forecaster,
// and metric aggregation. Windows are processed strictly sequentially
// in time order.
type Evaluator struct {
	cfg     EvaluatorConfig
	labeler Labeler
	l       *applogger.Logger
}

// NewEvaluator builds an evaluator from explicit configuration.
func NewEvaluator(cfg EvaluatorConfig, labeler Labeler) *Evaluator {
	return &Evaluator{cfg: cfg.Normalize(), labeler: labeler}
}

// SetLogger injects a structured logger.
func (e *Evaluator) SetLogger(l *applogger.Logger) { e.l = l }

// pooled accumulates out-of-sample observations across windows in
// time order.
type pooled struct {
	preds   []models.Label
	actuals []models.Label
	returns []float64
}

// Evaluate runs the full walk-forward loop over a candle-backed frame
// whose feature columns are already attached. featureCols selects the
// training matrix; columns tagged as future-indexed abort the run
// before any window is evaluated.
//
// A nil summary with a nil error means "ran and found too little
// data": fewer than MinWindows completed windows or an undersized
// training window. That is distinct from an error, which means the
// run itself is invalid.
//
// A window whose training or prediction step fails is skipped and
// counted, never aborting the run; if the skip ratio exceeds
// MaxSkipRatio the whole run is escalated as a SystemicSkipError.
func (e *Evaluator) Evaluate(ctx context.Context, frame *models.Frame, featureCols []string, factory service.ForecasterFactory, horizon int) (*models.EvaluationSummary, error) {
	if factory == nil {
		return nil, configErrorf("forecaster factory is required")
	}
	if err := CheckColumnNames(featureCols); err != nil {
		return nil, err
	}
	for _, name := range featureCols {
		if !frame.HasCol(name) {
			return nil, configErrorf("feature column %q not found on frame", name)
		}
	}

	windows, err := Split(frame.Len(), e.cfg.TrainSize, e.cfg.TestSize, e.cfg.StepSize, e.cfg.EmbargoFraction)
	if err != nil {
		return nil, err
	}
	if len(windows) < e.cfg.MinWindows {
		return nil, nil
	}

	var (
		pool          pooled
		windowMetrics []models.WindowMetrics
		skipped       int
		minTrainRows  = math.MaxInt
	)

	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wm, obs, err := e.evaluateWindow(ctx, frame, featureCols, factory, horizon, i, w)
		if err != nil {
			skipped++
			if e.l != nil {
				e.l.Warn("walk-forward window skipped",
					applogger.Int("window", i),
					applogger.Error(err),
				)
			}
			continue
		}
		if wm.TrainRows < minTrainRows {
			minTrainRows = wm.TrainRows
		}
		windowMetrics = append(windowMetrics, wm)
		pool.preds = append(pool.preds, obs.preds...)
		pool.actuals = append(pool.actuals, obs.actuals...)
		pool.returns = append(pool.returns, obs.returns...)
	}

	if float64(skipped) > e.cfg.MaxSkipRatio*float64(len(windows)) {
		return nil, &SystemicSkipError{Skipped: skipped, Total: len(windows)}
	}
	completed := len(windowMetrics)
	if completed < e.cfg.MinWindows {
		return nil, nil
	}
	if e.cfg.MinTrainSize > 0 && minTrainRows < e.cfg.MinTrainSize {
		return nil, nil
	}

	summary := e.aggregate(windowMetrics, pool, horizon, skipped, len(windows))
	if e.l != nil {
		e.l.Info("walk-forward evaluation complete",
			applogger.Int("windows", len(windows)),
			applogger.Int("completed", completed),
			applogger.Int("skipped", skipped),
			applogger.Int("pooled_samples", summary.PooledSamples),
		)
	}
	return summary, nil
}

// evaluateWindow runs a single train/test window. Thresholds are
// computed from the training slice only and frozen for test labeling,
// so no distributional information from the test period reaches the
// decision boundary.
func (e *Evaluator) evaluateWindow(ctx context.Context, frame *models.Frame, featureCols []string, factory service.ForecasterFactory, horizon, idx int, w Window) (models.WindowMetrics, pooled, error) {
	trainFrame := frame.Slice(w.TrainStart, w.TrainEnd)
	trainSet, err := e.labeler.Label(trainFrame, horizon)
	if err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}
	if len(trainSet.Labels) == 0 {
		return models.WindowMetrics{}, pooled{}, configErrorf("window %d: no labelable training rows", idx)
	}

	xTrain, err := trainFrame.Slice(0, len(trainSet.Labels)).Select(featureCols)
	if err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}

	// Test rows whose forward return would run off the end of the
	// series are dropped, not labeled.
	testStop := w.TestEnd
	if testStop > frame.Len()-horizon {
		testStop = frame.Len() - horizon
	}
	if testStop <= w.TestStart {
		return models.WindowMetrics{}, pooled{}, configErrorf("window %d: no labelable test rows", idx)
	}
	testExt := frame.Slice(w.TestStart, min(w.TestEnd+horizon, frame.Len()))
	testSet, err := e.labeler.LabelWithThresholds(testExt, horizon, trainSet.BearThreshold, trainSet.BullThreshold)
	if err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}
	nTest := testStop - w.TestStart
	if nTest > len(testSet.Labels) {
		nTest = len(testSet.Labels)
	}
	actuals := testSet.Labels[:nTest]
	rets := testSet.Returns[:nTest]

	xTest, err := frame.Slice(w.TestStart, w.TestStart+nTest).Select(featureCols)
	if err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}

	// A fresh forecaster per window; no state bleeds across windows.
	fc := factory()
	if err := fc.Train(ctx, xTrain, trainSet.Labels); err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}
	preds, err := fc.Predict(ctx, xTest)
	if err != nil {
		return models.WindowMetrics{}, pooled{}, err
	}
	if len(preds) != nTest {
		return models.WindowMetrics{}, pooled{}, configErrorf("window %d: forecaster returned %d predictions for %d rows", idx, len(preds), nTest)
	}

	wm := models.WindowMetrics{
		Window:              idx,
		TrainStart:          frame.Times[w.TrainStart],
		TestStart:           frame.Times[w.TestStart],
		TestEnd:             frame.Times[w.TestEnd-1],
		TrainRows:           len(trainSet.Labels),
		TestRows:            nTest,
		Accuracy:            accuracy(preds, actuals),
		DirectionalAccuracy: directionalAccuracy(preds, rets),
		PerClass:            perClassStats(preds, actuals),
		BearThreshold:       trainSet.BearThreshold,
		BullThreshold:       trainSet.BullThreshold,
	}
	return wm, pooled{preds: preds, actuals: actuals, returns: rets}, nil
}

// aggregate pools observations across windows and combines them with
// per-window metrics into the exposed summary.
func (e *Evaluator) aggregate(windows []models.WindowMetrics, pool pooled, horizon, skipped, total int) *models.EvaluationSummary {
	perClass := perClassStats(pool.preds, pool.actuals)

	var macroP, macroR, macroF float64
	if len(perClass) > 0 {
		for _, cs := range perClass {
			macroP += cs.Precision
			macroR += cs.Recall
			macroF += cs.F1
		}
		n := float64(len(perClass))
		macroP /= n
		macroR /= n
		macroF /= n
	}

	accs := make([]float64, len(windows))
	for i, wm := range windows {
		accs[i] = wm.Accuracy
	}

	return &models.EvaluationSummary{
		Horizon:             horizon,
		GeneratedAt:         time.Now().UTC(),
		WindowCount:         total,
		SkippedWindows:      skipped,
		PooledSamples:       len(pool.preds),
		Accuracy:            accuracy(pool.preds, pool.actuals),
		DirectionalAccuracy: directionalAccuracy(pool.preds, pool.returns),
		MacroPrecision:      macroP,
		MacroRecall:         macroR,
		MacroF1:             macroF,
		PerClass:            perClass,
		Trade:               tradeStats(pool.preds, pool.returns),
		WindowAccuracy:      accs,
		WindowAccuracyStd:   stddev(accs),
		Windows:             windows,
	}
}

func accuracy(preds, actuals []models.Label) float64 {
	if len(preds) == 0 || len(preds) != len(actuals) {
		return 0
	}
	hits := 0
	for i := range preds {
		if preds[i] == actuals[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(preds))
}

// directionalAccuracy compares the sign of non-neutral predictions
// against the sign of the realized forward return.
func directionalAccuracy(preds []models.Label, returns []float64) float64 {
	hits, total := 0, 0
	for i := range preds {
		if preds[i] == models.Neutral {
			continue
		}
		total++
		if (preds[i] == models.Bullish && returns[i] > 0) ||
			(preds[i] == models.Bearish && returns[i] < 0) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func perClassStats(preds, actuals []models.Label) map[string]models.ClassStats {
	out := make(map[string]models.ClassStats, 3)
	for _, class := range models.Classes() {
		tp, fp, fn := 0, 0, 0
		for i := range preds {
			switch {
			case preds[i] == class && actuals[i] == class:
				tp++
			case preds[i] == class && actuals[i] != class:
				fp++
			case preds[i] != class && actuals[i] == class:
				fn++
			}
		}
		var precision, recall, f1 float64
		if tp+fp > 0 {
			precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			recall = float64(tp) / float64(tp+fn)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		out[class.String()] = models.ClassStats{
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   tp + fn,
		}
	}
	return out
}

// tradeStats treats each non-neutral prediction as a one-bar trade in
// the predicted direction and scores the pooled return stream.
func tradeStats(preds []models.Label, returns []float64) models.TradeStats {
	var pnls []float64
	for i := range preds {
		switch preds[i] {
		case models.Bullish:
			pnls = append(pnls, returns[i])
		case models.Bearish:
			pnls = append(pnls, -returns[i])
		}
	}
	if len(pnls) == 0 {
		return models.TradeStats{}
	}

	wins, losses := 0, 0
	grossWin, grossLoss := 0.0, 0.0
	mean := 0.0
	for _, p := range pnls {
		mean += p
		if p > 0 {
			wins++
			grossWin += p
		} else if p < 0 {
			losses++
			grossLoss += -p
		}
	}
	mean /= float64(len(pnls))

	sharpe := 0.0
	if sd := stddev(pnls); sd > 0 {
		sharpe = mean / sd
	}
	// Capped so a loss-free sample stays JSON-encodable.
	profitFactor := 0.0
	if grossLoss > 0 {
		profitFactor = grossWin / grossLoss
		if profitFactor > 1000 {
			profitFactor = 1000
		}
	} else if grossWin > 0 {
		profitFactor = 1000
	}
	winRate := float64(wins) / float64(len(pnls))

	// Compounded equity walk for max drawdown.
	equity, peak, maxDD := 1.0, 1.0, 0.0
	for _, p := range pnls {
		equity *= 1.0 + p
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}

	return models.TradeStats{
		Sharpe:       sharpe,
		MaxDrawdown:  maxDD,
		WinRate:      winRate,
		ProfitFactor: profitFactor,
		TotalTrades:  len(pnls),
		WinTrades:    wins,
		LossTrades:   losses,
	}
}
