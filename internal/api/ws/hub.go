package ws

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/waxseal/waxseal/internal/domain"
	redisstore "github.com/waxseal/waxseal/internal/store/redis"
)

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub *redisstore.PubSub
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub *redisstore.PubSub) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeTail handles WebSocket connections for the live audit feed.
// Subscribes to the entries channel and streams each appended entry to the
// client as JSON. ?severity=CRITICAL narrows the stream to one severity.
// The feed is presentation only: entries are already durable before they
// are published.
func (h *Hub) ServeTail(w http.ResponseWriter, r *http.Request) {
	var severity domain.Severity
	if v := r.URL.Query().Get("severity"); v != "" {
		severity = domain.Severity(v)
		if !severity.Valid() {
			http.Error(w, "invalid severity", http.StatusBadRequest)
			return
		}
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	messages, cleanup, err := h.pubsub.Subscribe(ctx, redisstore.EntriesChannel())
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
			if severity != "" && !matchesSeverity(msg, severity) {
				continue
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}

// matchesSeverity peeks at a published entry's severity without decoding the
// whole payload shape.
func matchesSeverity(payload []byte, severity domain.Severity) bool {
	var probe struct {
		Severity domain.Severity `json:"severity"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Severity == severity
}
