package citibike_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/bikelegs/internal/adapters/citibike"
	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
)

const stationsBody = `{
  "data": {
    "supply": {
      "stations": [
        {
          "stationId": "66db2fd0-0aca-11e7-82f6-3863bb44ef7c",
          "stationName": "Henry St & Atlantic Ave",
          "siteId": "4531.05",
          "location": {"lat": 40.69089272, "lng": -73.99612349, "__typename": "Location"},
          "lastUpdatedMs": 1700000000000
        },
        {
          "stationId": "c7b1a4d4",
          "stationName": "Clinton St & Joralemon St",
          "siteId": "4605.4",
          "location": {"lat": 40.69239502, "lng": -73.99337909}
        }
      ],
      "requestErrors": []
    }
  }
}`

func testConfig(url string) config.SupplyConfig {
	return config.SupplyConfig{URL: url, RegionCode: "BKN", PageLimit: 1000, Timeout: 5}
}

func TestFetchStations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var payload struct {
			OperationName string `json:"operationName"`
			Variables     struct {
				Input struct {
					RegionCode        string `json:"regionCode"`
					RideablePageLimit int    `json:"rideablePageLimit"`
				} `json:"input"`
			} `json:"variables"`
			Query string `json:"query"`
		}
		assert.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "GetSystemSupply", payload.OperationName)
		assert.Equal(t, "BKN", payload.Variables.Input.RegionCode)
		assert.Equal(t, 1000, payload.Variables.Input.RideablePageLimit)
		assert.Contains(t, payload.Query, "siteId")

		_, _ = w.Write([]byte(stationsBody))
	}))
	defer srv.Close()

	client, err := citibike.New(testConfig(srv.URL))
	require.NoError(t, err)

	stations, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "4531.05", stations[0].ID)
	assert.Equal(t, "Henry St & Atlantic Ave", stations[0].Name)
	assert.Equal(t, domain.Coordinate{Lat: 40.69089272, Lon: -73.99612349}, stations[0].Location)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), stations[0].UpdatedAt)

	// Normalisation is the use case's job; the adapter reports IDs verbatim.
	assert.Equal(t, "4605.4", stations[1].ID)
	assert.True(t, stations[1].UpdatedAt.IsZero())
}

func TestFetchStations_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := citibike.New(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.FetchStations(context.Background())
	assert.True(t, errors.Is(err, domain.ErrRetrievalFailure), "got %v", err)
}

func TestNewWithQuery_RejectsBrokenDocument(t *testing.T) {
	_, err := citibike.NewWithQuery(testConfig("http://example.com"), "query GetSystemSupply { supply {")
	require.Error(t, err)

	_, err = citibike.NewWithQuery(testConfig("http://example.com"), "{ supply { stations { siteId } } }")
	require.Error(t, err, "anonymous operations have no operationName to send")
}

func TestRequestBody(t *testing.T) {
	client, err := citibike.New(testConfig("http://example.com"))
	require.NoError(t, err)

	body, err := client.RequestBody()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"operationName": "GetSystemSupply",
		"variables": {"input": {"regionCode": "BKN", "rideablePageLimit": 1000}},
		"query": `+mustJSON(t, citibike.SupplyQuery)+`
	}`, string(body))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestParseStations_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"invalid json", `not json`, domain.ErrUnexpectedResponseShape},
		{"graphql errors", `{"errors":[{"message":"rate limited"}]}`, domain.ErrRetrievalFailure},
		{"no data", `{}`, domain.ErrUnexpectedResponseShape},
		{"no supply", `{"data":{}}`, domain.ErrUnexpectedResponseShape},
		{"no stations", `{"data":{"supply":{}}}`, domain.ErrUnexpectedResponseShape},
		{"missing siteId", `{"data":{"supply":{"stations":[{"stationName":"x","location":{"lat":1,"lng":2}}]}}}`, domain.ErrUnexpectedResponseShape},
		{"missing name", `{"data":{"supply":{"stations":[{"siteId":"1.1","location":{"lat":1,"lng":2}}]}}}`, domain.ErrUnexpectedResponseShape},
		{"missing location", `{"data":{"supply":{"stations":[{"siteId":"1.1","stationName":"x"}]}}}`, domain.ErrUnexpectedResponseShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := citibike.ParseStations([]byte(tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseStations_Empty(t *testing.T) {
	stations, err := citibike.ParseStations([]byte(`{"data":{"supply":{"stations":[]}}}`))
	require.NoError(t, err)
	assert.Empty(t, stations)
}
