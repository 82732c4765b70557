package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

const (
	// StreamName holds every bike-share event.
	StreamName = "BIKESHARE"
	// SubjectAll matches every bike-share subject.
	SubjectAll = "bikeshare.>"
	// SubjectLegsPrefix is followed by the trip ID.
	SubjectLegsPrefix = "bikeshare.legs."
	// SubjectStationsRefreshed announces a completed station refresh.
	SubjectStationsRefreshed = "bikeshare.stations.refreshed"
)

// StationsRefreshed is the payload published on SubjectStationsRefreshed.
type StationsRefreshed struct {
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, so try an update.
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// LegsSubject returns the subject a trip's legs are published on.
func LegsSubject(tripID string) string {
	return SubjectLegsPrefix + tripID
}

func (p *Publisher) PublishLegsBuilt(ctx context.Context, route *domain.TripRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(LegsSubject(route.TripID), data, nats.Context(ctx))
	return err
}

func (p *Publisher) PublishStationsRefreshed(ctx context.Context, count int, at time.Time) error {
	data, err := json.Marshal(StationsRefreshed{Count: count, At: at.UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectStationsRefreshed, data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
