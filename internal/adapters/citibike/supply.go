// Package citibike reads station metadata from the Citi Bike GraphQL
// supply endpoint.
package citibike

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/metrics"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

// SupplyQuery asks for the station fields we export.
const SupplyQuery = `query GetSystemSupply($input: SupplyInput) {
  supply(input: $input) {
    stations {
      stationId
      stationName
      siteId
      location {
        lat
        lng
      }
      lastUpdatedMs
    }
    requestErrors {
      localizedTitle
      localizedDescription
    }
  }
}`

// Client implements ports.StationFeed.
type Client struct {
	http          *fasthttp.Client
	url           string
	regionCode    string
	pageLimit     int
	timeout       time.Duration
	query         string
	operationName string
}

// New creates a supply feed client. The query document is parsed up front so
// a broken document fails at startup rather than on the first request.
func New(cfg config.SupplyConfig) (*Client, error) {
	return NewWithQuery(cfg, SupplyQuery)
}

// NewWithQuery is New with a caller-supplied query document.
func NewWithQuery(cfg config.SupplyConfig, query string) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("supply.url is required")
	}
	name, err := operationName(query)
	if err != nil {
		return nil, err
	}
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http: &fasthttp.Client{
			Name:         "bikelegs",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		url:           cfg.URL,
		regionCode:    cfg.RegionCode,
		pageLimit:     cfg.PageLimit,
		timeout:       timeout,
		query:         query,
		operationName: name,
	}, nil
}

// operationName returns the name of the first named operation in a document.
func operationName(query string) (string, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return "", fmt.Errorf("parse supply query: %w", err)
	}
	for _, def := range doc.Definitions {
		if op, ok := def.(*ast.OperationDefinition); ok && op.Name != nil && op.Name.Value != "" {
			return op.Name.Value, nil
		}
	}
	return "", errors.New("supply query has no named operation")
}

type supplyRequest struct {
	OperationName string          `json:"operationName"`
	Variables     supplyVariables `json:"variables"`
	Query         string          `json:"query"`
}

type supplyVariables struct {
	Input supplyInput `json:"input"`
}

type supplyInput struct {
	RegionCode        string `json:"regionCode"`
	RideablePageLimit int    `json:"rideablePageLimit"`
}

type supplyResponse struct {
	Data *struct {
		Supply *struct {
			Stations      []supplyStation `json:"stations"`
			RequestErrors []struct {
				LocalizedTitle       string `json:"localizedTitle"`
				LocalizedDescription string `json:"localizedDescription"`
			} `json:"requestErrors"`
		} `json:"supply"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type supplyStation struct {
	StationID   string  `json:"stationId"`
	StationName *string `json:"stationName"`
	SiteID      *string `json:"siteId"`
	Location    *struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"location"`
	LastUpdatedMs int64 `json:"lastUpdatedMs"`
}

// RequestBody returns the JSON payload posted to the supply endpoint.
func (c *Client) RequestBody() ([]byte, error) {
	return json.Marshal(supplyRequest{
		OperationName: c.operationName,
		Variables: supplyVariables{Input: supplyInput{
			RegionCode:        c.regionCode,
			RideablePageLimit: c.pageLimit,
		}},
		Query: c.query,
	})
}

// FetchStations posts the supply query and returns the stations it lists,
// keyed by site ID, in response order.
func (c *Client) FetchStations(ctx context.Context) ([]domain.Station, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFetchSupply)
	defer span.End()

	stations, err := c.fetch(ctx)
	metrics.SupplyRequests.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrStationCount, len(stations)))
	return stations, nil
}

func (c *Client) fetch(ctx context.Context) ([]domain.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}

	body, err := c.RequestBody()
	if err != nil {
		return nil, fmt.Errorf("encode supply request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	timeout := c.timeout
	if d, ok := ctx.Deadline(); ok && time.Until(d) < timeout {
		timeout = time.Until(d)
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}
	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from supply API", domain.ErrRetrievalFailure, status)
	}

	return ParseStations(resp.Body())
}

// ParseStations extracts data.supply.stations from a supply response body.
func ParseStations(body []byte) ([]domain.Station, error) {
	var doc supplyResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode supply: %v", domain.ErrUnexpectedResponseShape, err)
	}
	if len(doc.Errors) > 0 {
		msgs := make([]string, len(doc.Errors))
		for i, e := range doc.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%w: graphql: %s", domain.ErrRetrievalFailure, strings.Join(msgs, "; "))
	}
	if doc.Data == nil || doc.Data.Supply == nil || doc.Data.Supply.Stations == nil {
		return nil, fmt.Errorf("%w: missing data.supply.stations", domain.ErrUnexpectedResponseShape)
	}

	raw := doc.Data.Supply.Stations
	stations := make([]domain.Station, 0, len(raw))
	for i, s := range raw {
		if s.SiteID == nil {
			return nil, fmt.Errorf("%w: station %d (%s) has no siteId", domain.ErrUnexpectedResponseShape, i, s.StationID)
		}
		if s.StationName == nil {
			return nil, fmt.Errorf("%w: station %s has no stationName", domain.ErrUnexpectedResponseShape, *s.SiteID)
		}
		if s.Location == nil || s.Location.Lat == nil || s.Location.Lng == nil {
			return nil, fmt.Errorf("%w: station %s has no location", domain.ErrUnexpectedResponseShape, *s.SiteID)
		}

		st := domain.Station{
			ID:       *s.SiteID,
			Name:     *s.StationName,
			Location: domain.Coordinate{Lat: *s.Location.Lat, Lon: *s.Location.Lng},
		}
		if s.LastUpdatedMs > 0 {
			st.UpdatedAt = time.UnixMilli(s.LastUpdatedMs).UTC()
		}
		stations = append(stations, st)
	}
	return stations, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnexpectedResponseShape):
		return "unexpected_shape"
	default:
		return "retrieval_failure"
	}
}
