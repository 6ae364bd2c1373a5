package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"MarketCast/internal/domain/models"
	drepo "MarketCast/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by a tick WebSocket feed.
// Incoming ticks are rolled into fixed-interval OHLCV bars; a bar is
// emitted when its bucket closes.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	barInterval    time.Duration
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool

	bars map[string]*models.Candle
}

// New creates a new websocket MarketStream.
func New(apiKey, websocketURL string, symbols []string, barInterval, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	if barInterval <= 0 {
		barInterval = time.Minute
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		barInterval:    barInterval,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		bars:           make(map[string]*models.Candle),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("stream: connected")
	return nil
}

// Subscribe subscribes to configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("stream not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		log.Printf("stream: subscribed %s", s)
	}
	return nil
}

type wsTick struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string   `json:"type"`
	Data []wsTick `json:"data"`
}

// Read streams closed bars and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Candle, <-chan error) {
	candles := make(chan *models.Candle, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-tick frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					if closed := c.applyTick(d); closed != nil {
						select {
						case candles <- closed:
						default:
							// drop on backpressure
						}
					}
				}
			}
		}
	}()

	return candles, errs
}

// applyTick folds a tick into the open bar for its symbol and returns
// the previous bar when the tick opens a new bucket.
func (c *Client) applyTick(t wsTick) *models.Candle {
	ts := time.UnixMilli(t.T)
	bucket := ts.Truncate(c.barInterval)

	cur, ok := c.bars[t.S]
	if !ok {
		c.bars[t.S] = &models.Candle{
			Bucket: bucket,
			Symbol: t.S,
			Open:   t.P,
			High:   t.P,
			Low:    t.P,
			Close:  t.P,
			Volume: t.V,
		}
		return nil
	}

	if bucket.After(cur.Bucket) {
		closed := cur
		c.bars[t.S] = &models.Candle{
			Bucket: bucket,
			Symbol: t.S,
			Open:   t.P,
			High:   t.P,
			Low:    t.P,
			Close:  t.P,
			Volume: t.V,
		}
		return closed
	}

	if t.P > cur.High {
		cur.High = t.P
	}
	if t.P < cur.Low {
		cur.Low = t.P
	}
	cur.Close = t.P
	cur.Volume += t.V
	return nil
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
