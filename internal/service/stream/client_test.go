package stream

import (
	"testing"
	"time"

	"MarketCast/internal/domain/models"
)

func newTestClient(interval time.Duration) *Client {
	return &Client{barInterval: interval, bars: make(map[string]*models.Candle)}
}

func tick(sym string, price, vol float64, at time.Time) wsTick {
	return wsTick{S: sym, P: price, V: vol, T: at.UnixMilli()}
}

func TestApplyTickOpensBarWithoutEmitting(t *testing.T) {
	c := newTestClient(time.Minute)
	at := time.Date(2026, 1, 2, 10, 0, 15, 0, time.UTC)

	if closed := c.applyTick(tick("BTCUSDT", 100, 2, at)); closed != nil {
		t.Fatalf("first tick emitted a bar: %+v", closed)
	}
	cur := c.bars["BTCUSDT"]
	if cur == nil {
		t.Fatal("no open bar after first tick")
	}
	if cur.Open != 100 || cur.High != 100 || cur.Low != 100 || cur.Close != 100 {
		t.Fatalf("open bar not seeded from tick: %+v", cur)
	}
	if !cur.Bucket.Equal(at.Truncate(time.Minute)) {
		t.Fatalf("bucket = %v, want %v", cur.Bucket, at.Truncate(time.Minute))
	}
}

func TestApplyTickAggregatesWithinBucket(t *testing.T) {
	c := newTestClient(time.Minute)
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	c.applyTick(tick("BTCUSDT", 100, 1, at))
	c.applyTick(tick("BTCUSDT", 105, 2, at.Add(10*time.Second)))
	c.applyTick(tick("BTCUSDT", 98, 3, at.Add(30*time.Second)))
	c.applyTick(tick("BTCUSDT", 101, 4, at.Add(50*time.Second)))

	cur := c.bars["BTCUSDT"]
	if cur.Open != 100 {
		t.Fatalf("open = %v, want 100", cur.Open)
	}
	if cur.High != 105 || cur.Low != 98 {
		t.Fatalf("high/low = %v/%v, want 105/98", cur.High, cur.Low)
	}
	if cur.Close != 101 {
		t.Fatalf("close = %v, want 101", cur.Close)
	}
	if cur.Volume != 10 {
		t.Fatalf("volume = %v, want 10", cur.Volume)
	}
}

func TestApplyTickEmitsOnBucketRollover(t *testing.T) {
	c := newTestClient(time.Minute)
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	c.applyTick(tick("BTCUSDT", 100, 1, at))
	c.applyTick(tick("BTCUSDT", 102, 1, at.Add(40*time.Second)))

	closed := c.applyTick(tick("BTCUSDT", 103, 5, at.Add(time.Minute)))
	if closed == nil {
		t.Fatal("rollover tick did not emit the previous bar")
	}
	if closed.Close != 102 || closed.Volume != 2 {
		t.Fatalf("closed bar = %+v, want close=102 volume=2", closed)
	}

	cur := c.bars["BTCUSDT"]
	if cur.Open != 103 || cur.Volume != 5 {
		t.Fatalf("new open bar = %+v, want open=103 volume=5", cur)
	}
}

func TestApplyTickKeepsSymbolsIsolated(t *testing.T) {
	c := newTestClient(time.Minute)
	at := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	c.applyTick(tick("BTCUSDT", 100, 1, at))
	c.applyTick(tick("ETHUSDT", 10, 1, at))

	// BTC rolls over, ETH stays open.
	closed := c.applyTick(tick("BTCUSDT", 101, 1, at.Add(time.Minute)))
	if closed == nil || closed.Symbol != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT bar, got %+v", closed)
	}
	if eth := c.bars["ETHUSDT"]; eth.Close != 10 {
		t.Fatalf("eth bar mutated: %+v", eth)
	}
}
