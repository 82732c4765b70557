package polyline

import (
	"math"
	"strings"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// Encode encodes coordinates with the default precision of 1e5.
func Encode(coords []domain.Coordinate) string {
	return EncodeWithPrecision(coords, DefaultPrecision)
}

// EncodeWithPrecision encodes coordinates rounded to precision decimal digits.
func EncodeWithPrecision(coords []domain.Coordinate, precision int) string {
	factor := math.Pow10(precision)

	var sb strings.Builder
	sb.Grow(len(coords) * 8)

	var prevLat, prevLng int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lng := int64(math.Round(c.Lon * factor))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= continuation {
		sb.WriteByte(byte(u&chunkMask|continuation) + asciiOffset)
		u >>= 5
	}
	sb.WriteByte(byte(u) + asciiOffset)
}
