package domain

import (
	"time"
)

// Station is a bike-share dock location.
type Station struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Location  Coordinate `json:"location"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Trip is a single ride between two stations. Both stations are resolved
// by the data-access layer before the trip reaches a use case.
type Trip struct {
	ID           string    `json:"id"`
	StartStation Station   `json:"start_station"`
	EndStation   Station   `json:"end_station"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	EndedAt      time.Time `json:"ended_at,omitempty"`

	// LegsBuiltAt is when the trip was last converted; zero means never.
	LegsBuiltAt time.Time `json:"legs_built_at,omitempty"`
}

// Endpoints returns the station identifiers carried by every leg of the trip.
func (t Trip) Endpoints() TripEndpoints {
	return TripEndpoints{StartStationID: t.StartStation.ID, EndStationID: t.EndStation.ID}
}

// TripEndpoints identifies where a trip starts and ends.
type TripEndpoints struct {
	StartStationID string `json:"start_station_id"`
	EndStationID   string `json:"end_station_id"`
}

// Leg is one directed segment between two consecutive route coordinates.
type Leg struct {
	Number         int        `json:"number"`
	StartStationID string     `json:"start_station_id"`
	EndStationID   string     `json:"end_station_id"`
	Start          Coordinate `json:"start"`
	End            Coordinate `json:"end"`
}

// TripRoute is the outcome of converting a trip's directions into legs.
type TripRoute struct {
	TripID         string  `json:"trip_id,omitempty"`
	Legs           []Leg   `json:"legs"`
	DistanceMeters float64 `json:"distance_meters"`
	Bounds         *Bounds `json:"bounds,omitempty"`
}
