package models

import (
	"fmt"
	"time"
)

// Column names every candle-backed frame carries.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// Frame is a column-oriented, time-indexed numeric table. Rows are
// ordered by strictly increasing timestamp; columns are named float64
// series of equal length. Slicing is index-based, so row counts of any
// sub-range are known without recomputing features.
type Frame struct {
	Times []time.Time
	names []string
	cols  map[string][]float64
}

// NewFrame builds an empty frame over the given timestamps.
func NewFrame(times []time.Time) *Frame {
	return &Frame{
		Times: times,
		cols:  make(map[string][]float64),
	}
}

// FrameFromCandles converts an ordered candle slice into a frame with
// the five OHLCV columns.
func FrameFromCandles(candles []Candle) *Frame {
	n := len(candles)
	times := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	vol := make([]float64, n)
	for i, c := range candles {
		times[i] = c.Bucket
		open[i] = c.Open
		high[i] = c.High
		low[i] = c.Low
		closes[i] = c.Close
		vol[i] = c.Volume
	}
	f := NewFrame(times)
	f.SetCol(ColOpen, open)
	f.SetCol(ColHigh, high)
	f.SetCol(ColLow, low)
	f.SetCol(ColClose, closes)
	f.SetCol(ColVolume, vol)
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Times) }

// Names returns column names in insertion order.
func (f *Frame) Names() []string { return f.names }

// HasCol reports whether the named column exists.
func (f *Frame) HasCol(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Col returns the named column, or an error if absent.
func (f *Frame) Col(name string) ([]float64, error) {
	vs, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return vs, nil
}

// SetCol inserts or replaces a column. The values slice must match the
// frame length.
func (f *Frame) SetCol(name string, values []float64) {
	if _, exists := f.cols[name]; !exists {
		f.names = append(f.names, name)
	}
	f.cols[name] = values
}

// Slice returns a view over rows [i0, i1). Bounds are clamped to the
// frame; column slices share backing arrays with the parent.
func (f *Frame) Slice(i0, i1 int) *Frame {
	if i0 < 0 {
		i0 = 0
	}
	if i1 > f.Len() {
		i1 = f.Len()
	}
	if i0 >= i1 {
		return NewFrame(nil)
	}
	out := NewFrame(f.Times[i0:i1])
	for _, name := range f.names {
		out.SetCol(name, f.cols[name][i0:i1])
	}
	return out
}

// Clone deep-copies the frame so mutations do not propagate.
func (f *Frame) Clone() *Frame {
	times := make([]time.Time, len(f.Times))
	copy(times, f.Times)
	out := NewFrame(times)
	for _, name := range f.names {
		vs := make([]float64, len(f.cols[name]))
		copy(vs, f.cols[name])
		out.SetCol(name, vs)
	}
	return out
}

// Select returns a frame restricted to the given columns, sharing
// backing arrays. Missing columns produce an error.
func (f *Frame) Select(names []string) (*Frame, error) {
	out := NewFrame(f.Times)
	for _, name := range names {
		vs, ok := f.cols[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		out.SetCol(name, vs)
	}
	return out, nil
}

// Validate checks the frame invariants: equal column lengths and
// strictly increasing timestamps.
func (f *Frame) Validate() error {
	for _, name := range f.names {
		if len(f.cols[name]) != f.Len() {
			return fmt.Errorf("column %q length %d != %d rows", name, len(f.cols[name]), f.Len())
		}
	}
	for i := 1; i < len(f.Times); i++ {
		if !f.Times[i].After(f.Times[i-1]) {
			return fmt.Errorf("timestamps not strictly increasing at row %d", i)
		}
	}
	return nil
}
