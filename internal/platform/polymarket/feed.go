package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// MarketFeed subscribes to the CLOB market WebSocket channel for a set of
// token IDs and emits a signal whenever a trade prints on one of them. The
// ingestion monitor uses the signal to poll the target's activity ahead of
// its regular schedule, which shortens copy latency on busy markets.
type MarketFeed struct {
	wsURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	stop   chan struct{} // closed to retire the current connection's ping loop
	closed bool

	// writeMu serializes frame writes; the connection allows one writer.
	writeMu sync.Mutex

	// assetIDs to (re)subscribe with on every connect.
	assetIDs []string

	// trades carries a signal per last_trade_price frame. Buffered; drops
	// when the consumer is behind, which is fine for a wake-up hint.
	trades chan struct{}

	// done is closed when the feed is shut down.
	done chan struct{}
}

// NewMarketFeed creates a feed for the given WebSocket URL, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewMarketFeed(wsURL string) *MarketFeed {
	return &MarketFeed{
		wsURL:  wsURL,
		trades: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Trades returns the wake-up channel. One receive per trade print, collapsed
// while the consumer is busy.
func (f *MarketFeed) Trades() <-chan struct{} {
	return f.trades
}

// Watch replaces the set of token IDs the feed subscribes to. Takes effect
// on the next (re)connect.
func (f *MarketFeed) Watch(assetIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetIDs = append([]string(nil), assetIDs...)
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. A previous connection and its ping loop are retired first, so a
// reconnect never leaves a stale keepalive writing to the new socket.
// Reconnection after a drop is automatic.
func (f *MarketFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("polymarket/feed: feed is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/feed: connect: %w", err)
	}

	if f.stop != nil {
		close(f.stop)
	}
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.conn = conn
	f.stop = make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go f.readLoop(conn)
	go f.pingLoop(conn, f.stop)

	if len(f.assetIDs) > 0 {
		if err := f.subscribe(conn); err != nil {
			return fmt.Errorf("polymarket/feed: subscribe: %w", err)
		}
	}
	return nil
}

// Close shuts down the connection and stops the loops.
func (f *MarketFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)
	if f.stop != nil {
		close(f.stop)
	}

	if f.conn != nil {
		_ = f.writeMessage(f.conn, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return f.conn.Close()
	}
	return nil
}

// subscribe sends the market-channel subscription. Caller holds f.mu.
func (f *MarketFeed) subscribe(conn *websocket.Conn) error {
	data, err := json.Marshal(wsSubscribe{
		Type:     "market",
		AssetIDs: f.assetIDs,
	})
	if err != nil {
		return fmt.Errorf("marshal subscription: %w", err)
	}
	return f.writeMessage(conn, websocket.TextMessage, data)
}

// writeMessage is the single path for outbound frames. Pings, subscriptions,
// and the close frame all funnel through here so no two goroutines write to
// the connection concurrently.
func (f *MarketFeed) writeMessage(conn *websocket.Conn, messageType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(messageType, data)
}

// readLoop reads frames from one connection and signals on last_trade_price.
// On disconnect it reconnects with exponential backoff, unless its connection
// has already been replaced.
func (f *MarketFeed) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			stale := f.conn != conn
			f.mu.Unlock()
			if stale {
				return // a newer connection owns reconnection now
			}
			select {
			case <-f.done:
				return
			default:
			}
			f.reconnect()
			return // a fresh readLoop starts from reconnect -> Connect
		}

		f.handleMessage(message)
	}
}

// pingLoop keeps one connection alive with periodic pings. It exits when the
// connection is retired, a write fails, or the feed shuts down.
func (f *MarketFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := f.writeMessage(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage signals the wake-up channel for every trade print. Frames
// arrive either as single events or as arrays of events.
func (f *MarketFeed) handleMessage(raw []byte) {
	var events []wsEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single wsEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return // drop unparseable frames
		}
		events = []wsEvent{single}
	}

	for i := range events {
		if events[i].EventType != "last_trade_price" {
			continue
		}
		select {
		case f.trades <- struct{}{}:
		default:
		}
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the feed is closed.
func (f *MarketFeed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-f.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := f.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
