package evaluation

import (
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"MarketCast/internal/domain/models"
)

// FeatureFunc computes a feature frame from an OHLCV frame. It is the
// unit under test of the lookahead guard.
type FeatureFunc func(f *models.Frame) (*models.Frame, error)

const (
	guardSeriesLen = 256
	guardMutateLen = 32
	guardSeed      = 1712
)

// futureTagSuffixes mark columns whose values are indexed at
// prediction time rather than lagged history. Such columns must never
// enter a training matrix.
var futureTagSuffixes = []string{"[t]", "+1", "_future", "_fwd"}

// RunSyntheticGuard verifies that a feature function never reads the
// future. It computes features over a synthetic monotonic series,
// mutates only the last rows, recomputes, and requires the unmutated
// prefix to be numerically identical. Any divergence is a
// LookaheadViolation naming the offending columns and rows.
func RunSyntheticGuard(fn FeatureFunc) error {
	base := syntheticFrame(guardSeriesLen)
	full, err := fn(base.Clone())
	if err != nil {
		return err
	}

	mutated := base.Clone()
	scrambleTail(mutated, guardMutateLen)
	recomputed, err := fn(mutated)
	if err != nil {
		return err
	}

	prefix := guardSeriesLen - guardMutateLen
	cols := map[string]bool{}
	rows := map[int]bool{}
	for _, name := range full.Names() {
		a, err := full.Col(name)
		if err != nil {
			return err
		}
		b, err := recomputed.Col(name)
		if err != nil {
			return &LookaheadViolation{Columns: []string{name}, Reason: "column missing after suffix mutation"}
		}
		limit := prefix
		if len(a) < limit {
			limit = len(a)
		}
		if len(b) < limit {
			limit = len(b)
		}
		for i := 0; i < limit; i++ {
			if !sameValue(a[i], b[i]) {
				cols[name] = true
				rows[i] = true
			}
		}
	}
	if len(cols) > 0 {
		return &LookaheadViolation{
			Columns: sortedKeys(cols),
			Rows:    sortedRows(rows),
			Reason:  "feature values in the unmutated prefix changed when only future rows were altered",
		}
	}
	return nil
}

// CheckColumnNames rejects, before any training matrix is built,
// columns whose names mark them as future-indexed. This static check
// is independent of the numeric guard: it catches features computed
// from the very row being predicted rather than lagged history.
func CheckColumnNames(names []string) error {
	var bad []string
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, suffix := range futureTagSuffixes {
			if strings.HasSuffix(lower, suffix) {
				bad = append(bad, name)
				break
			}
		}
	}
	if len(bad) > 0 {
		return &LookaheadViolation{
			Columns: bad,
			Reason:  "future-indexed columns must not enter a training matrix",
		}
	}
	return nil
}

// syntheticFrame builds a deterministic monotonic OHLCV series long
// enough to exercise typical rolling-window features.
func syntheticFrame(n int) *models.Frame {
	times := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	vol := make([]float64, n)
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		price := 100.0 + float64(i)*0.25
		times[i] = t0.AddDate(0, 0, i)
		open[i] = price - 0.1
		high[i] = price + 0.2
		low[i] = price - 0.2
		closes[i] = price
		vol[i] = 1000 + float64(i)
	}
	f := models.NewFrame(times)
	f.SetCol(models.ColOpen, open)
	f.SetCol(models.ColHigh, high)
	f.SetCol(models.ColLow, low)
	f.SetCol(models.ColClose, closes)
	f.SetCol(models.ColVolume, vol)
	return f
}

// scrambleTail randomizes the last k rows of every column in place.
func scrambleTail(f *models.Frame, k int) {
	rng := rand.New(rand.NewSource(guardSeed))
	n := f.Len()
	for _, name := range f.Names() {
		vs, _ := f.Col(name)
		for i := n - k; i < n; i++ {
			vs[i] = vs[i] * (0.5 + rng.Float64())
		}
	}
}

func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedRows(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
