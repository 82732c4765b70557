// Package googlemaps retrieves cycling directions from the Google Maps
// Directions API.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/pkg/config"
	"github.com/samirrijal/bikelegs/internal/pkg/metrics"
	"github.com/samirrijal/bikelegs/internal/pkg/telemetry"
)

// Client implements ports.DirectionsProvider.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	apiKey  string
	mode    string
	timeout time.Duration
}

// New creates a Directions API client from configuration.
func New(cfg config.DirectionsConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("directions.api_key is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("directions.base_url: %w", err)
	}
	timeout := cfg.TimeoutDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		http: &fasthttp.Client{
			Name:         "bikelegs",
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		mode:    cfg.Mode,
		timeout: timeout,
	}, nil
}

// Mode returns the travel mode sent with every request.
func (c *Client) Mode() string { return c.mode }

// StepPolylines returns the encoded polyline of each step of the first leg of
// the first route, in step order.
func (c *Client) StepPolylines(ctx context.Context, origin, destination domain.Coordinate) ([]string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanFetchDirections)
	defer span.End()

	start := time.Now()
	steps, err := c.fetch(ctx, origin, destination)
	metrics.DirectionsDuration.Observe(time.Since(start).Seconds())
	metrics.DirectionsRequests.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrStepCount, len(steps)))
	return steps, nil
}

// RequestURL builds the GET URL for a directions query.
func (c *Client) RequestURL(origin, destination domain.Coordinate) string {
	q := url.Values{}
	q.Set("origin", latLng(origin))
	q.Set("destination", latLng(destination))
	q.Set("mode", c.mode)
	q.Set("key", c.apiKey)
	return c.baseURL + "?" + q.Encode()
}

func (c *Client) fetch(ctx context.Context, origin, destination domain.Coordinate) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.RequestURL(origin, destination))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.http.DoTimeout(req, resp, requestTimeout(ctx, c.timeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailure, err)
	}
	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: HTTP %d from directions API", domain.ErrRetrievalFailure, status)
	}

	return ParseSteps(resp.Body())
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Steps []struct {
				Polyline *struct {
					Points *string `json:"points"`
				} `json:"polyline"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// ParseSteps extracts routes[0].legs[0].steps[*].polyline.points from a
// Directions API response body.
func ParseSteps(body []byte) ([]string, error) {
	var doc directionsResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode directions: %v", domain.ErrUnexpectedResponseShape, err)
	}

	switch doc.Status {
	case "", "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, fmt.Errorf("%w: directions status %s", domain.ErrUnexpectedResponseShape, doc.Status)
	default:
		return nil, fmt.Errorf("%w: directions status %s: %s", domain.ErrRetrievalFailure, doc.Status, doc.ErrorMessage)
	}

	if len(doc.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", domain.ErrUnexpectedResponseShape)
	}
	if len(doc.Routes[0].Legs) == 0 {
		return nil, fmt.Errorf("%w: route has no legs", domain.ErrUnexpectedResponseShape)
	}

	steps := doc.Routes[0].Legs[0].Steps
	out := make([]string, len(steps))
	for i, step := range steps {
		if step.Polyline == nil || step.Polyline.Points == nil {
			return nil, fmt.Errorf("%w: step %d has no polyline points", domain.ErrUnexpectedResponseShape, i)
		}
		out[i] = *step.Polyline.Points
	}
	return out, nil
}

func latLng(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

// requestTimeout shortens the client timeout to the context deadline.
func requestTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < timeout {
			return left
		}
	}
	return timeout
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
