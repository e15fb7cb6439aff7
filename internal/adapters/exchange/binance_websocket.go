package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minhvo/marketpulse/pkg/logger"
)

// PriceUpdate is a realtime last-price observation from the ticker stream
type PriceUpdate struct {
	Symbol string
	Price  float64
	At     time.Time
}

// BinanceWebSocket streams mini-ticker updates for a set of symbols. It
// feeds the crash monitor; candle history comes over REST.
type BinanceWebSocket struct {
	conn           *websocket.Conn
	url            string
	symbols        []string
	priceChan      chan PriceUpdate
	errorChan      chan error
	mu             sync.Mutex
	reconnectDelay time.Duration
	ctx            context.Context
	cancel         context.CancelFunc
}

type miniTickerMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Close     string `json:"c"`
	} `json:"data"`
}

// NewBinanceWebSocket creates a mini-ticker stream for the given symbols
func NewBinanceWebSocket(baseURL string, symbols []string) *BinanceWebSocket {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@miniTicker"
	}
	// Combined-stream endpoint wraps payloads with the stream name
	url := strings.Replace(baseURL, "/ws", "/stream", 1) + "?streams=" + strings.Join(streams, "/")

	ctx, cancel := context.WithCancel(context.Background())

	return &BinanceWebSocket{
		url:            url,
		symbols:        symbols,
		priceChan:      make(chan PriceUpdate, 1000),
		errorChan:      make(chan error, 10),
		reconnectDelay: 5 * time.Second,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Connect establishes the WebSocket connection
func (bw *BinanceWebSocket) Connect() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(bw.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Binance WebSocket: %w", err)
	}

	bw.conn = conn

	go bw.readMessages()
	go bw.pingHandler()

	logger.Info("Binance WebSocket connected",
		zap.String("url", bw.url),
		zap.Strings("symbols", bw.symbols),
	)

	return nil
}

// readMessages reads messages from the WebSocket
func (bw *BinanceWebSocket) readMessages() {
	defer func() {
		bw.mu.Lock()
		if bw.conn != nil {
			bw.conn.Close()
		}
		bw.mu.Unlock()

		if bw.ctx.Err() == nil {
			logger.Info("attempting to reconnect Binance WebSocket...")
			time.Sleep(bw.reconnectDelay)
			if err := bw.Connect(); err != nil {
				logger.Error("failed to reconnect", zap.Error(err))
			}
		}
	}()

	for {
		select {
		case <-bw.ctx.Done():
			return
		default:
		}

		_, message, err := bw.conn.ReadMessage()
		if err != nil {
			logger.Error("WebSocket read error", zap.Error(err))
			bw.errorChan <- err
			return
		}

		var msg miniTickerMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("failed to parse WebSocket message", zap.Error(err))
			continue
		}
		if msg.Data.Symbol == "" {
			continue
		}

		price, err := strconv.ParseFloat(msg.Data.Close, 64)
		if err != nil {
			logger.Warn("invalid price in ticker message",
				zap.String("symbol", msg.Data.Symbol),
				zap.String("price", msg.Data.Close),
			)
			continue
		}

		update := PriceUpdate{
			Symbol: msg.Data.Symbol,
			Price:  price,
			At:     time.UnixMilli(msg.Data.EventTime),
		}

		select {
		case bw.priceChan <- update:
		default:
			logger.Warn("price channel full, dropping update")
		}
	}
}

// pingHandler keeps the connection alive
func (bw *BinanceWebSocket) pingHandler() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-ticker.C:
			bw.mu.Lock()
			if bw.conn != nil {
				if err := bw.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					logger.Warn("failed to send ping", zap.Error(err))
				}
			}
			bw.mu.Unlock()
		}
	}
}

// Prices returns the realtime price update channel
func (bw *BinanceWebSocket) Prices() <-chan PriceUpdate {
	return bw.priceChan
}

// Errors returns the connection error channel
func (bw *BinanceWebSocket) Errors() <-chan error {
	return bw.errorChan
}

// Close shuts the stream down
func (bw *BinanceWebSocket) Close() {
	bw.cancel()

	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.conn != nil {
		bw.conn.Close()
	}
}
