// Package stream delivers finalized blocks from the node state observer.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/hyle-oof/oofprover/internal/models"
)

// DefaultReconnectDelay is the pause between reconnection attempts.
const DefaultReconnectDelay = time.Second

// NodeStateEvent is the envelope pushed by the node for every new block.
type NodeStateEvent struct {
	NewBlock *models.Block `json:"NewBlock,omitempty"`
}

// WebsocketSource subscribes to the node state event stream over a websocket.
type WebsocketSource struct {
	URL            string
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// NewWebsocketSource creates a source for the given ws:// or wss:// URL.
func NewWebsocketSource(url string, reconnectDelay time.Duration) *WebsocketSource {
	if reconnectDelay <= 0 {
		reconnectDelay = DefaultReconnectDelay
	}
	return &WebsocketSource{URL: url, ReconnectDelay: reconnectDelay, Dialer: websocket.DefaultDialer}
}

// Run pushes every received block to out, in the order received, until ctx is
// cancelled. Dropped connections are re-established after ReconnectDelay.
func (s *WebsocketSource) Run(ctx context.Context, out chan<- *models.Block) error {
	for {
		err := s.consume(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Block stream disconnected", "url", s.URL, "error", err, "retryIn", s.ReconnectDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.ReconnectDelay):
		}
	}
}

func (s *WebsocketSource) consume(ctx context.Context, out chan<- *models.Block) error {
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return errors.WithMessage(err, "failed to connect websocket")
	}
	defer conn.Close()
	slog.Info("Connected to block stream", "url", s.URL)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.WithMessage(err, "failed to read message")
		}
		block, err := DecodeEvent(msg)
		if err != nil {
			slog.Warn("Failed to parse node state event", "error", err)
			continue
		}
		if block == nil {
			continue
		}
		select {
		case out <- block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DecodeEvent extracts the block from a node state event. Events of other
// kinds decode to a nil block.
func DecodeEvent(msg []byte) (*models.Block, error) {
	var ev NodeStateEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, errors.WithMessage(err, "error parsing node state event")
	}
	return ev.NewBlock, nil
}
