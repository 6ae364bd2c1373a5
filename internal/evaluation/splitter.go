package evaluation

// Window is a pair of half-open index ranges over a time-ordered
// series. Train precedes test; with an embargo active, rows between a
// window's test end and the next window's train start belong to
// neither split.
type Window struct {
	TrainStart int // inclusive
	TrainEnd   int // exclusive
	TestStart  int // inclusive
	TestEnd    int // exclusive
}

// TrainRows returns the number of training rows.
func (w Window) TrainRows() int { return w.TrainEnd - w.TrainStart }

// TestRows returns the number of test rows.
func (w Window) TestRows() int { return w.TestEnd - w.TestStart }

// EmbargoRows converts an embargo fraction of the test size into a
// whole row count.
func EmbargoRows(testSize int, embargoFraction float64) int {
	if embargoFraction <= 0 {
		return 0
	}
	return int(float64(testSize) * embargoFraction)
}

// Split produces ordered walk-forward windows over nRows rows. It is a
// pure, deterministic function of its inputs: callers may re-invoke it
// to restart iteration. Window starts strictly increase; the loop
// terminates once a full train+test window no longer fits.
//
// With a positive embargo fraction, the next window's train start is
// pushed past the previous test end plus the embargo, so labels with
// forward-looking horizons computed inside a completed test window can
// never bleed into a later training set.
//
// Invalid sizes produce a ConfigError. Too few rows produce zero
// windows, not an error.
func Split(nRows, trainSize, testSize, stepSize int, embargoFraction float64) ([]Window, error) {
	if trainSize <= 0 || testSize <= 0 || stepSize <= 0 {
		return nil, configErrorf("window sizes must be positive: train=%d test=%d step=%d", trainSize, testSize, stepSize)
	}
	if embargoFraction < 0 || embargoFraction >= 1 {
		return nil, configErrorf("embargo fraction must be in [0, 1): %g", embargoFraction)
	}

	embargo := EmbargoRows(testSize, embargoFraction)
	var windows []Window
	for start := 0; start+trainSize+testSize <= nRows; {
		trainEnd := start + trainSize
		testEnd := trainEnd + testSize
		windows = append(windows, Window{
			TrainStart: start,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
		})

		next := start + stepSize
		if embargo > 0 && testEnd+embargo > next {
			next = testEnd + embargo
		}
		start = next
	}
	return windows, nil
}
