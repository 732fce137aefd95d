package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const DefaultStreamURL = "wss://stream.binance.com:9443/stream"

// Tick is one price observation off the websocket stream.
type Tick struct {
	Symbol string
	Price  decimal.Decimal
	At     time.Time
}

type StreamOptions struct {
	URL        string
	Symbols    []string
	BackoffMin time.Duration
	BackoffMax time.Duration
	Logger     *zap.Logger
}

// Stream consumes the combined miniTicker websocket feed and reconnects with
// jittered exponential backoff on any failure.
type Stream struct {
	opts      StreamOptions
	seenFirst bool
}

func NewStream(opts StreamOptions) *Stream {
	if opts.URL == "" {
		opts.URL = DefaultStreamURL
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &Stream{opts: opts}
}

type combinedEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type miniTickerEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Close     string `json:"c"`
}

func (s *Stream) Run(ctx context.Context, onTick func(Tick)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	streamURL, err := s.streamURL()
	if err != nil {
		return err
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, _, err := websocket.Dial(ctx, streamURL, nil)
		if err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("price ws connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		conn.SetReadLimit(1 << 20)
		if s.opts.Logger != nil {
			s.opts.Logger.Info("price ws connected", zap.Int("symbols", len(s.opts.Symbols)))
		}
		backoff = s.opts.BackoffMin

		err = s.consume(ctx, conn, onTick)
		_ = conn.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Warn("price ws read failed", zap.Error(err))
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *Stream) consume(ctx context.Context, conn *websocket.Conn, onTick func(Tick)) error {
	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var env combinedEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		var ev miniTickerEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			continue
		}
		if ev.EventType != "24hrMiniTicker" || ev.Symbol == "" {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(ev.Close))
		if err != nil || !price.IsPositive() {
			continue
		}
		at := time.Now().UTC()
		if ev.EventTime > 0 {
			at = time.UnixMilli(ev.EventTime).UTC()
		}
		if s.opts.Logger != nil && !s.seenFirst {
			s.seenFirst = true
			s.opts.Logger.Info("price ws first tick", zap.String("symbol", ev.Symbol))
		}
		if onTick != nil {
			onTick(Tick{Symbol: ev.Symbol, Price: price, At: at})
		}
	}
}

func (s *Stream) streamURL() (string, error) {
	parts := make([]string, 0, len(s.opts.Symbols))
	for _, sym := range s.opts.Symbols {
		sym = strings.ToLower(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		parts = append(parts, sym+"@miniTicker")
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no symbols to stream")
	}
	return strings.TrimRight(s.opts.URL, "/") + "?streams=" + strings.Join(parts, "/"), nil
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base / 2)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
