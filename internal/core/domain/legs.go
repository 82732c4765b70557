package domain

// BuildLegs returns one leg per consecutive coordinate pair, numbered from 1
// in traversal order. Fewer than two coordinates yield an empty slice.
func BuildLegs(coords []Coordinate, endpoints TripEndpoints) []Leg {
	return appendLegs(make([]Leg, 0, legCount(len(coords))), coords, endpoints)
}

// BuildRouteLegs builds legs for a route made of directions steps. Legs are
// formed inside each step only, but numbering continues across steps so the
// whole route is numbered 1..K.
func BuildRouteLegs(steps [][]Coordinate, endpoints TripEndpoints) []Leg {
	n := 0
	for _, s := range steps {
		n += legCount(len(s))
	}
	legs := make([]Leg, 0, n)
	for _, s := range steps {
		legs = appendLegs(legs, s, endpoints)
	}
	return legs
}

func appendLegs(dst []Leg, coords []Coordinate, endpoints TripEndpoints) []Leg {
	for i := 1; i < len(coords); i++ {
		dst = append(dst, Leg{
			Number:         len(dst) + 1,
			StartStationID: endpoints.StartStationID,
			EndStationID:   endpoints.EndStationID,
			Start:          coords[i-1],
			End:            coords[i],
		})
	}
	return dst
}

func legCount(points int) int {
	if points < 2 {
		return 0
	}
	return points - 1
}
