package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/bikelegs/internal/adapters/csvexport"
	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/polyline"
)

// TripLegsHandler returns the stored legs of a trip.
func TripLegsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return errBadRequest(c, "trip id is required")
		}

		route, err := deps.Legs.Route(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}

// ConvertTripHandler fetches directions for a trip now and replaces its legs.
func ConvertTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return errBadRequest(c, "trip id is required")
		}

		route, err := deps.Legs.ConvertTrip(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	}
}

// ListStationsHandler returns every stored station ordered by ID.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Stations.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stations)
	}
}

// StationsCSVHandler serves the stored stations in the export CSV layout.
func StationsCSVHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Stations.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="stations.csv"`)
		return csvexport.WriteCSV(c.Response().BodyWriter(), stations)
	}
}

type decodeRequest struct {
	Points         string `json:"points"`
	Precision      *int   `json:"precision"`
	StartStationID string `json:"start_station_id"`
	EndStationID   string `json:"end_station_id"`
}

// DecodePolylineHandler decodes an encoded polyline into legs.
func DecodePolylineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req decodeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		precision := polyline.DefaultPrecision
		if req.Precision != nil {
			precision = *req.Precision
		}
		if precision < 0 || precision > 9 {
			return errBadRequest(c, "precision must be between 0 and 9")
		}

		route, err := deps.Legs.DecodeRoute(req.Points, precision, domain.TripEndpoints{
			StartStationID: req.StartStationID,
			EndStationID:   req.EndStationID,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(route)
	}
}
