package evaluation

import (
	"errors"
	"testing"
)

func TestSplitWindowShapes(t *testing.T) {
	windows, err := Split(300, 100, 20, 20, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(windows) != 10 {
		t.Fatalf("expected 10 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if w.TrainRows() != 100 {
			t.Fatalf("window %d train rows = %d", i, w.TrainRows())
		}
		if w.TestRows() != 20 {
			t.Fatalf("window %d test rows = %d", i, w.TestRows())
		}
		if w.TrainEnd != w.TestStart {
			t.Fatalf("window %d train end %d != test start %d", i, w.TrainEnd, w.TestStart)
		}
		if w.TestEnd > 300 {
			t.Fatalf("window %d overruns series: test end %d", i, w.TestEnd)
		}
	}
}

func TestSplitStartStrictlyIncreases(t *testing.T) {
	windows, err := Split(500, 120, 30, 15, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].TrainStart <= windows[i-1].TrainStart {
			t.Fatalf("train start not strictly increasing at window %d: %d <= %d",
				i, windows[i].TrainStart, windows[i-1].TrainStart)
		}
	}
}

func TestSplitEmbargoGap(t *testing.T) {
	windows, err := Split(1000, 100, 20, 10, 0.1)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(windows) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		gap := windows[i].TrainStart - windows[i-1].TestEnd
		if gap < 2 {
			t.Fatalf("embargo gap %d < 2 between windows %d and %d", gap, i-1, i)
		}
	}
}

func TestSplitInsufficientRows(t *testing.T) {
	windows, err := Split(100, 100, 20, 20, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected zero windows, got %d", len(windows))
	}
}

func TestSplitInvalidSizes(t *testing.T) {
	cases := [][3]int{
		{0, 20, 20},
		{100, 0, 20},
		{100, 20, 0},
	}
	for _, c := range cases {
		_, err := Split(300, c[0], c[1], c[2], 0)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("sizes %v: expected ConfigError, got %v", c, err)
		}
	}
	if _, err := Split(300, 100, 20, 20, 1.5); err == nil {
		t.Fatalf("expected error for embargo fraction out of range")
	}
}

func TestSplitDeterministic(t *testing.T) {
	a, _ := Split(700, 90, 25, 25, 0.08)
	b, _ := Split(700, 90, 25, 25, 0.08)
	if len(a) != len(b) {
		t.Fatalf("window counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("window %d differs across runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}
