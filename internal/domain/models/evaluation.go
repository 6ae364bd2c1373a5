package models

import "time"

// ClassStats holds precision/recall for a single label class.
type ClassStats struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// TradeStats holds trade-style metrics computed from directional
// predictions applied to realized forward returns.
type TradeStats struct {
	Sharpe       float64 `json:"sharpe"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
	TotalTrades  int     `json:"total_trades"`
	WinTrades    int     `json:"win_trades"`
	LossTrades   int     `json:"loss_trades"`
}

// WindowMetrics holds per-window out-of-sample results.
type WindowMetrics struct {
	Window              int                   `json:"window"`
	TrainStart          time.Time             `json:"train_start"`
	TestStart           time.Time             `json:"test_start"`
	TestEnd             time.Time             `json:"test_end"`
	TrainRows           int                   `json:"train_rows"`
	TestRows            int                   `json:"test_rows"`
	Accuracy            float64               `json:"accuracy"`
	DirectionalAccuracy float64               `json:"directional_accuracy"`
	PerClass            map[string]ClassStats `json:"per_class"`
	BearThreshold       float64               `json:"bear_threshold"`
	BullThreshold       float64               `json:"bull_threshold"`
}

// EvaluationSummary is the aggregated walk-forward report exposed to
// dashboards and APIs. Window counts, skip counts and sample sizes are
// always reported alongside metrics so a caller can judge statistical
// reliability.
type EvaluationSummary struct {
	Symbol              string                `json:"symbol"`
	Horizon             int                   `json:"horizon"`
	GeneratedAt         time.Time             `json:"generated_at"`
	WindowCount         int                   `json:"window_count"`
	SkippedWindows      int                   `json:"skipped_windows"`
	PooledSamples       int                   `json:"pooled_samples"`
	Accuracy            float64               `json:"accuracy"`
	DirectionalAccuracy float64               `json:"directional_accuracy"`
	MacroPrecision      float64               `json:"macro_precision"`
	MacroRecall         float64               `json:"macro_recall"`
	MacroF1             float64               `json:"macro_f1"`
	PerClass            map[string]ClassStats `json:"per_class"`
	Trade               TradeStats            `json:"trade"`
	WindowAccuracy      []float64             `json:"window_accuracy"`
	WindowAccuracyStd   float64               `json:"window_accuracy_std"`
	Windows             []WindowMetrics       `json:"windows,omitempty"`
}

// ConformalResult is an immutable record of one calibration pass.
type ConformalResult struct {
	Enabled        bool    `json:"enabled"`
	Method         string  `json:"method"`
	Samples        int     `json:"samples"`
	TargetCoverage float64 `json:"target_coverage"`
	Quantile       float64 `json:"quantile"`
}

// PredictionRecord pairs a point forecast with its realized price, the
// residual history unit consumed by conformal calibration.
type PredictionRecord struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Predicted float64   `json:"predicted"`
	Realized  float64   `json:"realized"`
}

// Forecast is a point price forecast with calibrated interval bounds.
type Forecast struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Horizon   int             `json:"horizon"`
	Label     string          `json:"label"`
	Price     float64         `json:"price"`
	Lower     float64         `json:"lower"`
	Upper     float64         `json:"upper"`
	Conformal ConformalResult `json:"conformal"`
}
