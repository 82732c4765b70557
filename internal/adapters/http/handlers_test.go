package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/bikelegs/internal/adapters/http"
	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
)

const samplePolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

// ---- Mock ports ----

type mockTripRepo struct {
	trips map[string]*domain.Trip
}

func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if t, ok := m.trips[id]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockTripRepo) ListPending(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

type mockLegRepo struct {
	legs map[string][]domain.Leg
}

func (m *mockLegRepo) ReplaceForTrip(ctx context.Context, tripID string, legs []domain.Leg) error {
	if m.legs == nil {
		m.legs = make(map[string][]domain.Leg)
	}
	m.legs[tripID] = legs
	return nil
}

func (m *mockLegRepo) ListByTrip(ctx context.Context, tripID string) ([]domain.Leg, error) {
	return m.legs[tripID], nil
}

type mockDirections struct {
	steps []string
	err   error
}

func (m *mockDirections) StepPolylines(ctx context.Context, origin, destination domain.Coordinate) ([]string, error) {
	return m.steps, m.err
}

func (m *mockDirections) Mode() string { return "bicycling" }

type mockStationRepo struct {
	stations []domain.Station
}

func (m *mockStationRepo) UpsertBatch(ctx context.Context, stations []domain.Station) error {
	m.stations = stations
	return nil
}

func (m *mockStationRepo) List(ctx context.Context) ([]domain.Station, error) {
	return m.stations, nil
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func sampleTrip() *domain.Trip {
	return &domain.Trip{
		ID:           "t1",
		StartStation: domain.Station{ID: "5788.10", Name: "Front St & Jay St", Location: domain.Coordinate{Lat: 40.7024, Lon: -73.9867}},
		EndStation:   domain.Station{ID: "4357.01", Name: "Carlton Ave & Park Ave", Location: domain.Coordinate{Lat: 40.6959, Lon: -73.9732}},
	}
}

type fixture struct {
	trips      *mockTripRepo
	legs       *mockLegRepo
	directions *mockDirections
	stations   *mockStationRepo
}

func newFixture() *fixture {
	return &fixture{
		trips:      &mockTripRepo{trips: map[string]*domain.Trip{"t1": sampleTrip()}},
		legs:       &mockLegRepo{},
		directions: &mockDirections{steps: []string{samplePolyline}},
		stations:   &mockStationRepo{},
	}
}

func (f *fixture) deps() *handler.Dependencies {
	return &handler.Dependencies{
		Legs:     usecases.NewLegService(f.trips, f.legs, f.directions, nil, nil, 0),
		Stations: usecases.NewStationService(nil, nil, f.stations, nil),
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) *httpResponse {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

type httpResponse struct {
	status int
	header func(string) string
	body   []byte
}

func do(t *testing.T, app *fiber.App, req *http.Request) *httpResponse {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return &httpResponse{status: resp.StatusCode, header: resp.Header.Get, body: b}
}

func get(t *testing.T, app *fiber.App, path string) *httpResponse {
	t.Helper()
	return do(t, app, httptest.NewRequest("GET", path, nil))
}

type apiError struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
	Offset *int   `json:"offset"`
}

func decodeError(t *testing.T, body []byte) apiError {
	t.Helper()
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return e
}

// ---- Trip legs ----

func TestTripLegs_Success(t *testing.T) {
	f := newFixture()
	f.legs.legs = map[string][]domain.Leg{"t1": {
		{Number: 1, StartStationID: "5788.10", EndStationID: "4357.01", Start: domain.Coordinate{Lat: 38.5, Lon: -120.2}, End: domain.Coordinate{Lat: 40.7, Lon: -120.95}},
	}}
	app := setupApp(f.deps())

	resp := get(t, app, "/v1/trips/t1/legs")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}

	var route domain.TripRoute
	if err := json.Unmarshal(resp.body, &route); err != nil {
		t.Fatal(err)
	}
	if route.TripID != "t1" || len(route.Legs) != 1 {
		t.Errorf("unexpected route %+v", route)
	}
	if got := resp.header("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("expected legs cache header, got %q", got)
	}
}

func TestTripLegs_NotFound(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := get(t, app, "/v1/trips/nope/legs")
	if resp.status != 404 {
		t.Fatalf("expected 404, got %d", resp.status)
	}
	if e := decodeError(t, resp.body); e.Code != "not_found" {
		t.Errorf("expected not_found, got %s", e.Code)
	}
}

func TestConvertTrip_Success(t *testing.T) {
	f := newFixture()
	app := setupApp(f.deps())

	resp := do(t, app, httptest.NewRequest("POST", "/v1/trips/t1/legs", nil))
	if resp.status != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.status, resp.body)
	}

	var route domain.TripRoute
	if err := json.Unmarshal(resp.body, &route); err != nil {
		t.Fatal(err)
	}
	if len(route.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(route.Legs))
	}
	if route.Legs[0].StartStationID != "5788.10" || route.Legs[1].EndStationID != "4357.01" {
		t.Errorf("legs not tied to trip stations: %+v", route.Legs)
	}
	if len(f.legs.legs["t1"]) != 2 {
		t.Errorf("expected legs to be stored, got %d", len(f.legs.legs["t1"]))
	}
}

func TestConvertTrip_MalformedStep(t *testing.T) {
	f := newFixture()
	f.directions.steps = []string{"_p~iF"}
	app := setupApp(f.deps())

	resp := do(t, app, httptest.NewRequest("POST", "/v1/trips/t1/legs", nil))
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
	e := decodeError(t, resp.body)
	if e.Code != "malformed_encoding" {
		t.Errorf("expected malformed_encoding, got %s", e.Code)
	}
	if e.Offset == nil {
		t.Error("expected byte offset in error")
	}
	if len(f.legs.legs["t1"]) != 0 {
		t.Error("no legs should be stored for a malformed step")
	}
}

func TestConvertTrip_DirectionsFailure(t *testing.T) {
	f := newFixture()
	f.directions.err = fmt.Errorf("%w: status 503", domain.ErrRetrievalFailure)
	app := setupApp(f.deps())

	resp := do(t, app, httptest.NewRequest("POST", "/v1/trips/t1/legs", nil))
	if resp.status != 502 {
		t.Fatalf("expected 502, got %d", resp.status)
	}
	if e := decodeError(t, resp.body); e.Code != "bad_gateway" {
		t.Errorf("expected bad_gateway, got %s", e.Code)
	}
}

// ---- Polyline decode ----

func TestDecodePolyline_Success(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := postJSON(t, app, "/v1/polyline/decode", map[string]interface{}{
		"points":           samplePolyline,
		"start_station_id": "a",
		"end_station_id":   "b",
	})
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.status, resp.body)
	}

	var route domain.TripRoute
	if err := json.Unmarshal(resp.body, &route); err != nil {
		t.Fatal(err)
	}
	if len(route.Legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(route.Legs))
	}
	first := route.Legs[0]
	if first.Number != 1 || first.Start != (domain.Coordinate{Lat: 38.5, Lon: -120.2}) || first.StartStationID != "a" {
		t.Errorf("unexpected first leg %+v", first)
	}
	if route.Bounds == nil {
		t.Error("expected bounds")
	}
}

func TestDecodePolyline_Empty(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := postJSON(t, app, "/v1/polyline/decode", map[string]string{"points": ""})
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if !strings.Contains(string(resp.body), `"legs":[]`) {
		t.Errorf("expected empty legs array, got %s", resp.body)
	}
}

func TestDecodePolyline_Malformed(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := postJSON(t, app, "/v1/polyline/decode", map[string]string{"points": "_p~iF~ps|U_"})
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
	if e := decodeError(t, resp.body); e.Code != "malformed_encoding" || e.Offset == nil {
		t.Errorf("unexpected error %+v", e)
	}
}

func TestDecodePolyline_BadPrecision(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := postJSON(t, app, "/v1/polyline/decode", map[string]interface{}{"points": samplePolyline, "precision": 12})
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
	if e := decodeError(t, resp.body); e.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", e.Code)
	}
}

func TestDecodePolyline_InvalidBody(t *testing.T) {
	app := setupApp(newFixture().deps())

	req := httptest.NewRequest("POST", "/v1/polyline/decode", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := do(t, app, req)
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
}

// ---- Stations ----

func TestListStations(t *testing.T) {
	f := newFixture()
	f.stations.stations = []domain.Station{
		{ID: "4357.01", Name: "Carlton Ave & Park Ave", Location: domain.Coordinate{Lat: 40.6959, Lon: -73.9732}},
		{ID: "5788.10", Name: "Front St & Jay St", Location: domain.Coordinate{Lat: 40.7024, Lon: -73.9867}},
	}
	app := setupApp(f.deps())

	resp := get(t, app, "/v1/stations")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}

	var stations []domain.Station
	if err := json.Unmarshal(resp.body, &stations); err != nil {
		t.Fatal(err)
	}
	if len(stations) != 2 || stations[1].ID != "5788.10" {
		t.Errorf("unexpected stations %+v", stations)
	}
	if got := resp.header("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("expected stations cache header, got %q", got)
	}
}

func TestStationsCSV(t *testing.T) {
	f := newFixture()
	f.stations.stations = []domain.Station{
		{ID: "5788.10", Name: "Front St & Jay St", Location: domain.Coordinate{Lat: 40.7024, Lon: -73.9867}},
	}
	app := setupApp(f.deps())

	resp := get(t, app, "/v1/stations.csv")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	want := "id,name,latitude,longitude\n5788.10,Front St & Jay St,40.7024,-73.9867\n"
	if string(resp.body) != want {
		t.Errorf("unexpected csv:\n%s", resp.body)
	}
	if ct := resp.header("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
}

// ---- GraphQL ----

func graphQL(t *testing.T, app *fiber.App, query string) map[string]interface{} {
	t.Helper()
	resp := postJSON(t, app, "/graphql", map[string]string{"query": query})
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	var result struct {
		Data   map[string]interface{} `json:"data"`
		Errors []interface{}          `json:"errors"`
	}
	if err := json.Unmarshal(resp.body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("graphql errors: %v", result.Errors)
	}
	return result.Data
}

func TestGraphQL_DecodePolyline(t *testing.T) {
	app := setupApp(newFixture().deps())

	data := graphQL(t, app, `{ decodePolyline(points: "_p~iF~ps|U_ulLnnqC_mqNvxq`+"`"+`@") { legs { number start { lat lon } } } }`)

	route := data["decodePolyline"].(map[string]interface{})
	legs := route["legs"].([]interface{})
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	start := legs[0].(map[string]interface{})["start"].(map[string]interface{})
	if start["lat"].(float64) != 38.5 {
		t.Errorf("expected lat 38.5, got %v", start["lat"])
	}
}

func TestGraphQL_ConvertAndQueryLegs(t *testing.T) {
	app := setupApp(newFixture().deps())

	graphQL(t, app, `mutation { convertTrip(tripId: "t1") { trip_id } }`)
	data := graphQL(t, app, `{ legs(tripId: "t1") { trip_id legs { number start_station_id } } }`)

	route := data["legs"].(map[string]interface{})
	if route["trip_id"] != "t1" {
		t.Errorf("expected trip t1, got %v", route["trip_id"])
	}
	if legs := route["legs"].([]interface{}); len(legs) != 2 {
		t.Errorf("expected 2 legs, got %d", len(legs))
	}
}

func TestGraphQL_MissingQuery(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := postJSON(t, app, "/graphql", map[string]string{})
	if resp.status != 400 {
		t.Fatalf("expected 400, got %d", resp.status)
	}
}

// ---- Health & middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := get(t, app, "/v1/health")
	if resp.status != 200 {
		t.Fatalf("expected 200, got %d", resp.status)
	}
	if !strings.Contains(string(resp.body), `"healthy"`) {
		t.Errorf("unexpected body %s", resp.body)
	}
}

func TestReady_NoDB(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := get(t, app, "/v1/ready")
	if resp.status != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.status)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(newFixture().deps())

	resp := get(t, app, "/v1/health")
	if v := resp.header("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
	if resp.header("X-Request-ID") == "" {
		t.Error("expected a request ID header")
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.RequestContextMiddleware())
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		if handler.LoggerFromCtx(c.UserContext()) == nil {
			t.Error("expected a request logger")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	resp := get(t, app, "/test")
	if resp.status != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.status)
	}
	if !strings.Contains(string(resp.body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", resp.body)
	}
}
