package telemetry

// Span and attribute names shared by instrumented packages.
const (
	SpanConvertTrip     = "legs.convert_trip"
	SpanFetchDirections = "directions.fetch"
	SpanRefreshStations = "stations.refresh"
	SpanFetchSupply     = "supply.fetch"

	AttrTripID       = "bikelegs.trip_id"
	AttrLegCount     = "bikelegs.leg_count"
	AttrStepCount    = "bikelegs.step_count"
	AttrStationCount = "bikelegs.station_count"
)
