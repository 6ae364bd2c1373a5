package features

import (
	"math"

	"MarketCast/internal/domain/models"
)

// Feature column names produced by the extractor. All are causal:
// values at row i depend only on rows <= i, which the lookahead guard
// verifies before any training run.
const (
	ColLagRet1  = "lag_ret_1"
	ColLagRet5  = "lag_ret_5"
	ColMom5     = "mom_5"
	ColRollMean = "roll_mean_10"
	ColRollStd  = "roll_std_20"
	ColATR      = "atr_14"
	ColVolumeZ  = "vol_z_20"
)

// Extractor derives technical features from OHLCV frames.
type Extractor struct {
	// StdWindow is the rolling window of the return stddev column,
	// which doubles as the labeler's volatility source.
	StdWindow int
	// ATRWindow is the Wilder smoothing window of the ATR column.
	ATRWindow int
}

// NewExtractor applies daily-bar defaults.
func NewExtractor() *Extractor {
	return &Extractor{StdWindow: 20, ATRWindow: 14}
}

// FeatureColumns lists the columns Compute emits, in order.
func (e *Extractor) FeatureColumns() []string {
	return []string{ColLagRet1, ColLagRet5, ColMom5, ColRollMean, ColRollStd, ColATR, ColVolumeZ}
}

// Compute builds the feature frame for an OHLCV frame. Leading rows
// without enough history carry zeros rather than NaN so downstream
// matrices stay dense.
func (e *Extractor) Compute(f *models.Frame) (*models.Frame, error) {
	closes, err := f.Col(models.ColClose)
	if err != nil {
		return nil, err
	}
	high, err := f.Col(models.ColHigh)
	if err != nil {
		return nil, err
	}
	low, err := f.Col(models.ColLow)
	if err != nil {
		return nil, err
	}
	volume, err := f.Col(models.ColVolume)
	if err != nil {
		return nil, err
	}

	out := models.NewFrame(f.Times)
	out.SetCol(ColLagRet1, lagReturn(closes, 1))
	out.SetCol(ColLagRet5, lagReturn(closes, 5))
	out.SetCol(ColMom5, upRatio(closes, 5))
	out.SetCol(ColRollMean, rollingMeanRatio(closes, 10))
	out.SetCol(ColRollStd, RollingStd(closes, e.StdWindow))
	out.SetCol(ColATR, atr(high, low, closes, e.ATRWindow))
	out.SetCol(ColVolumeZ, zscore(volume, 20))
	return out, nil
}

// lagReturn computes close[i]/close[i-lag] - 1, zero where history is
// short.
func lagReturn(closes []float64, lag int) []float64 {
	out := make([]float64, len(closes))
	for i := lag; i < len(closes); i++ {
		if closes[i-lag] > 0 {
			out[i] = closes[i]/closes[i-lag] - 1
		}
	}
	return out
}

// upRatio measures direction persistence: the fraction of up bars in
// the trailing window, centered on zero.
func upRatio(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		lo := i - window + 1
		if lo < 1 {
			lo = 1
		}
		ups, w := 0, 0
		for j := lo; j <= i; j++ {
			w++
			if closes[j] > closes[j-1] {
				ups++
			}
		}
		if w > 0 {
			out[i] = float64(ups)/float64(w) - 0.5
		}
	}
	return out
}

// rollingMeanRatio relates the rolling mean of close to the current
// close.
func rollingMeanRatio(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	sum := 0.0
	for i, c := range closes {
		sum += c
		if i >= window {
			sum -= closes[i-window]
		}
		w := window
		if i+1 < window {
			w = i + 1
		}
		mean := sum / float64(w)
		if c > 0 {
			out[i] = mean/c - 1
		}
	}
	return out
}

// RollingStd computes the rolling standard deviation of one-bar
// returns. Exported because the labeler consumes it as its volatility
// column.
func RollingStd(closes []float64, window int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	rets := make([]float64, n)
	for i := 1; i < n; i++ {
		if closes[i-1] > 0 {
			rets[i] = closes[i]/closes[i-1] - 1
		}
	}
	for i := 1; i < n; i++ {
		lo := i - window + 1
		if lo < 1 {
			lo = 1
		}
		w := i - lo + 1
		if w < 2 {
			continue
		}
		mean := 0.0
		for j := lo; j <= i; j++ {
			mean += rets[j]
		}
		mean /= float64(w)
		variance := 0.0
		for j := lo; j <= i; j++ {
			variance += (rets[j] - mean) * (rets[j] - mean)
		}
		out[i] = math.Sqrt(variance / float64(w-1))
	}
	return out
}

// atr computes the Wilder-smoothed average true range, using the
// prior close for gap moves.
func atr(high, low, closes []float64, window int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	smooth := tr[0]
	out[0] = smooth
	k := float64(window)
	for i := 1; i < n; i++ {
		smooth = (smooth*(k-1) + tr[i]) / k
		out[i] = smooth
	}
	return out
}

// zscore standardizes a series against its rolling window.
func zscore(xs []float64, window int) []float64 {
	n := len(xs)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		w := i - lo + 1
		if w < 2 {
			continue
		}
		mean := 0.0
		for j := lo; j <= i; j++ {
			mean += xs[j]
		}
		mean /= float64(w)
		variance := 0.0
		for j := lo; j <= i; j++ {
			variance += (xs[j] - mean) * (xs[j] - mean)
		}
		sd := math.Sqrt(variance / float64(w-1))
		if sd > 0 {
			out[i] = (xs[i] - mean) / sd
		}
	}
	return out
}

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient
// data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}
