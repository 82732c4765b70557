package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/bikelegs/internal/adapters/nats"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "all" | "legs" | "stations" (default: all)
	TripID  string `json:"trip_id"` // legs channel only; "" = every trip
}

// subjectFor maps a client channel request to a NATS subject.
func subjectFor(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "all":
		return natsadapter.SubjectAll, true
	case "legs":
		if m.TripID != "" {
			return natsadapter.LegsSubject(m.TripID), true
		}
		return natsadapter.SubjectLegsPrefix + ">", true
	case "stations":
		return natsadapter.SubjectStationsRefreshed, true
	default:
		return "", false
	}
}

// WebSocketHandler relays bike-share NATS events to connected clients. Every
// client starts subscribed to all events and may narrow or widen that with
// {"action":"unsubscribe","channel":"all"} and
// {"action":"subscribe","channel":"legs","trip_id":"..."}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		logger := slog.With("remote_addr", remoteAddr)
		logger.Info("ws client connected")

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(wsEvent{Subject: msg.Subject, Data: json.RawMessage(msg.Data)})
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "event stream not available"})
			return
		}

		sub, err := nc.Subscribe(natsadapter.SubjectAll, relay)
		if err != nil {
			logger.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[natsadapter.SubjectAll] = sub

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := subjectFor(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}

// wsEvent wraps a relayed message with its subject so clients can tell
// leg and station events apart.
type wsEvent struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}
