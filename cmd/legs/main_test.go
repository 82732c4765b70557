package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samirrijal/bikelegs/internal/core/domain"
	"github.com/samirrijal/bikelegs/internal/core/usecases"
)

type fakeConverter struct {
	routes  map[string]*domain.TripRoute
	summary usecases.ConvertSummary
	err     error
	limit   int
}

func (f *fakeConverter) ConvertTrip(ctx context.Context, tripID string) (*domain.TripRoute, error) {
	if r, ok := f.routes[tripID]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeConverter) ConvertPending(ctx context.Context, limit int) (usecases.ConvertSummary, error) {
	f.limit = limit
	return f.summary, f.err
}

func TestConvert_Pending(t *testing.T) {
	tests := []struct {
		name    string
		summary usecases.ConvertSummary
		err     error
		want    int
	}{
		{"all converted", usecases.ConvertSummary{Converted: 3, Legs: 12}, nil, 0},
		{"nothing pending", usecases.ConvertSummary{}, nil, 0},
		{"some failed", usecases.ConvertSummary{Converted: 2, Failed: 1}, nil, 1},
		{"listing failed", usecases.ConvertSummary{}, errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeConverter{summary: tt.summary, err: tt.err}
			var out bytes.Buffer

			if got := convert(context.Background(), fake, nil, 25, &out); got != tt.want {
				t.Errorf("expected exit code %d, got %d", tt.want, got)
			}
			if fake.limit != 25 {
				t.Errorf("expected limit 25, got %d", fake.limit)
			}
			if out.Len() != 0 {
				t.Errorf("expected no output, got %q", out.String())
			}
		})
	}
}

func TestConvert_TripIDs(t *testing.T) {
	fake := &fakeConverter{routes: map[string]*domain.TripRoute{
		"t1": {TripID: "t1", Legs: []domain.Leg{}},
		"t2": {TripID: "t2", Legs: []domain.Leg{}},
	}}

	var out bytes.Buffer
	if got := convert(context.Background(), fake, []string{"t1", "t2"}, 100, &out); got != 0 {
		t.Fatalf("expected exit code 0, got %d", got)
	}

	dec := json.NewDecoder(&out)
	for _, want := range []string{"t1", "t2"} {
		var route domain.TripRoute
		if err := dec.Decode(&route); err != nil {
			t.Fatalf("decode route: %v", err)
		}
		if route.TripID != want {
			t.Errorf("expected trip %s, got %s", want, route.TripID)
		}
	}
}

func TestConvert_TripIDs_FailureStillPrintsOthers(t *testing.T) {
	fake := &fakeConverter{routes: map[string]*domain.TripRoute{
		"t1": {TripID: "t1", Legs: []domain.Leg{}},
	}}

	var out bytes.Buffer
	if got := convert(context.Background(), fake, []string{"missing", "t1"}, 100, &out); got != 1 {
		t.Fatalf("expected exit code 1, got %d", got)
	}

	var route domain.TripRoute
	if err := json.NewDecoder(&out).Decode(&route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if route.TripID != "t1" {
		t.Errorf("expected trip t1, got %s", route.TripID)
	}
}
