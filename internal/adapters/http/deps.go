package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/bikelegs/internal/adapters/postgres"
	"github.com/samirrijal/bikelegs/internal/adapters/valkey"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Legs     *usecases.LegService
	Stations *usecases.StationService
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
