// Package polyline implements Google's Encoded Polyline Algorithm Format.
//
// Each coordinate is stored as a latitude delta and a longitude delta from the
// previous point, scaled by 10^precision (5 by default), zigzag-signed and
// written as little-endian 5-bit groups offset by 63. A group with bit 0x20
// set is followed by another group of the same value.
package polyline

import (
	"errors"
	"fmt"
	"math"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// DefaultPrecision is the number of decimal digits used by Google Maps.
const DefaultPrecision = 5

const (
	asciiOffset  = 63
	chunkMask    = 0x1f
	continuation = 0x20
	maxChunk     = 0x3f
	maxShift     = 64
)

// ErrMalformedEncoding is matched by every decoding failure.
var ErrMalformedEncoding = errors.New("malformed polyline encoding")

// MalformedError reports where and why decoding stopped.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", ErrMalformedEncoding, e.Offset, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedEncoding }

// Decode decodes a polyline with the default precision of 1e5.
func Decode(encoded string) ([]domain.Coordinate, error) {
	return DecodeWithPrecision(encoded, DefaultPrecision)
}

// DecodeWithPrecision decodes a polyline whose values were scaled by
// 10^precision. An empty string yields an empty sequence. Input that ends
// mid-value or between a latitude and its longitude, or that contains a byte
// outside '?'..'~', returns a *MalformedError and no coordinates.
func DecodeWithPrecision(encoded string, precision int) ([]domain.Coordinate, error) {
	if precision < 0 || precision > 9 {
		return nil, fmt.Errorf("polyline precision must be 0-9, got %d", precision)
	}
	factor := math.Pow10(precision)

	coords := make([]domain.Coordinate, 0, len(encoded)/4)
	var lat, lng int64
	pos := 0

	for pos < len(encoded) {
		dLat, next, err := decodeValue(encoded, pos)
		if err != nil {
			return nil, err
		}
		if next == len(encoded) {
			return nil, &MalformedError{Offset: next, Reason: "latitude without longitude"}
		}
		dLng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		pos = next

		lat += dLat
		lng += dLng
		coords = append(coords, domain.Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lng) / factor,
		})
	}

	return coords, nil
}

// decodeValue reads one signed varint starting at pos and returns it with the
// offset just past it.
func decodeValue(encoded string, pos int) (int64, int, error) {
	var result uint64
	shift := 0

	for {
		if pos >= len(encoded) {
			return 0, pos, &MalformedError{Offset: pos, Reason: "truncated value"}
		}
		if shift >= maxShift {
			return 0, pos, &MalformedError{Offset: pos, Reason: "value overflows 64 bits"}
		}
		b := int(encoded[pos]) - asciiOffset
		if b < 0 || b > maxChunk {
			return 0, pos, &MalformedError{Offset: pos, Reason: fmt.Sprintf("invalid byte %q", encoded[pos])}
		}
		// At shift 60 only the low four bits of a chunk still fit.
		if spare := maxShift - shift; spare < 5 && uint64(b&chunkMask)>>spare != 0 {
			return 0, pos, &MalformedError{Offset: pos, Reason: "value overflows 64 bits"}
		}
		pos++

		result |= uint64(b&chunkMask) << shift
		shift += 5
		if b < continuation {
			break
		}
	}

	if result&1 != 0 {
		return ^int64(result >> 1), pos, nil
	}
	return int64(result >> 1), pos, nil
}
