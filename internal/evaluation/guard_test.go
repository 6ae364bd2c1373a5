package evaluation

import (
	"errors"
	"testing"

	"MarketCast/internal/domain/models"
)

// causalFeatures computes a lagged return and a rolling mean, both of
// which depend only on the current and earlier rows.
func causalFeatures(f *models.Frame) (*models.Frame, error) {
	closes, err := f.Col(models.ColClose)
	if err != nil {
		return nil, err
	}
	n := len(closes)
	lagRet := make([]float64, n)
	rollMean := make([]float64, n)
	for i := 0; i < n; i++ {
		if i > 0 && closes[i-1] > 0 {
			lagRet[i] = closes[i]/closes[i-1] - 1
		}
		window := 10
		if i+1 < window {
			window = i + 1
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += closes[j]
		}
		rollMean[i] = sum / float64(window)
	}
	out := models.NewFrame(f.Times)
	out.SetCol("lag_ret_1", lagRet)
	out.SetCol("roll_mean_10", rollMean)
	return out, nil
}

// leakyFeatures copies the next row's close into the current row.
func leakyFeatures(f *models.Frame) (*models.Frame, error) {
	closes, err := f.Col(models.ColClose)
	if err != nil {
		return nil, err
	}
	n := len(closes)
	lead := make([]float64, n)
	for i := 0; i < n; i++ {
		if i+1 < n {
			lead[i] = closes[i+1]
		} else {
			lead[i] = closes[i]
		}
	}
	out := models.NewFrame(f.Times)
	out.SetCol("lead_close", lead)
	return out, nil
}

func TestSyntheticGuardPassesCausalFeatures(t *testing.T) {
	if err := RunSyntheticGuard(causalFeatures); err != nil {
		t.Fatalf("causal features flagged: %v", err)
	}
}

func TestSyntheticGuardCatchesLeak(t *testing.T) {
	err := RunSyntheticGuard(leakyFeatures)
	var viol *LookaheadViolation
	if !errors.As(err, &viol) {
		t.Fatalf("expected LookaheadViolation, got %v", err)
	}
	if len(viol.Columns) != 1 || viol.Columns[0] != "lead_close" {
		t.Fatalf("expected offending column lead_close, got %v", viol.Columns)
	}
	if len(viol.Rows) == 0 {
		t.Fatalf("violation should name offending rows")
	}
	// The leak sits exactly one row before the mutated suffix.
	if viol.Rows[0] != guardSeriesLen-guardMutateLen-1 {
		t.Fatalf("unexpected first offending row %d", viol.Rows[0])
	}
}

func TestCheckColumnNamesRejectsFutureTags(t *testing.T) {
	err := CheckColumnNames([]string{"lag_ret_1", "close[t]", "ret+1", "sentiment_future"})
	var viol *LookaheadViolation
	if !errors.As(err, &viol) {
		t.Fatalf("expected LookaheadViolation, got %v", err)
	}
	if len(viol.Columns) != 3 {
		t.Fatalf("expected 3 offending columns, got %v", viol.Columns)
	}
}

func TestCheckColumnNamesAcceptsLagged(t *testing.T) {
	if err := CheckColumnNames([]string{"lag_ret_1", "roll_mean_10", "atr_14"}); err != nil {
		t.Fatalf("lagged columns rejected: %v", err)
	}
}
