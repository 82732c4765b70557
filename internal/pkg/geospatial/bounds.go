package geospatial

import (
	"github.com/golang/geo/s2"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// LegsBounds returns the smallest lat/lon rectangle covering every leg
// endpoint, or nil when there are no legs.
func LegsBounds(legs []domain.Leg) *domain.Bounds {
	if len(legs) == 0 {
		return nil
	}

	rect := s2.EmptyRect()
	for _, l := range legs {
		rect = rect.AddPoint(s2.LatLngFromDegrees(l.Start.Lat, l.Start.Lon))
		rect = rect.AddPoint(s2.LatLngFromDegrees(l.End.Lat, l.End.Lon))
	}

	lo, hi := rect.Lo(), rect.Hi()
	return &domain.Bounds{
		MinLat: lo.Lat.Degrees(),
		MinLon: lo.Lng.Degrees(),
		MaxLat: hi.Lat.Degrees(),
		MaxLon: hi.Lng.Degrees(),
	}
}
