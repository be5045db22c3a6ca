package ws

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gestia/gestia/internal/audit"
	redisstore "github.com/gestia/gestia/internal/store/redis"
)

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	feed *redisstore.Feed
}

// NewHub creates a new WebSocket hub.
func NewHub(feed *redisstore.Feed) *Hub {
	return &Hub{feed: feed}
}

// ServeActivity handles WebSocket connections for the live change feed.
// Subscribes to the global activity channel and streams change record
// events to connected clients as they are announced.
func (h *Hub) ServeActivity(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.feed.Subscribe(ctx, audit.ActivityChannel)
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
