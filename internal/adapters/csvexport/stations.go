// Package csvexport writes station snapshots as delimited files.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/samirrijal/bikelegs/internal/core/domain"
)

// Header is the column order of the station export.
var Header = []string{"id", "name", "latitude", "longitude"}

// StationWriter implements ports.StationExporter for a file on disk.
type StationWriter struct {
	path string
}

// NewStationWriter creates a StationWriter that replaces the file at path
// on every export.
func NewStationWriter(path string) *StationWriter { return &StationWriter{path: path} }

// Path returns the file the writer replaces.
func (w *StationWriter) Path() string { return w.path }

// WriteStations replaces the export file. The new content is written to a
// temporary file in the same directory and renamed over the old one.
func (w *StationWriter) WriteStations(ctx context.Context, stations []domain.Station) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := WriteCSV(tmp, stations); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("rename to %s: %w", w.path, err)
	}
	return nil
}

// WriteCSV writes the header and one row per station to out.
func WriteCSV(out io.Writer, stations []domain.Station) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range stations {
		row := []string{
			s.ID,
			s.Name,
			strconv.FormatFloat(s.Location.Lat, 'f', -1, 64),
			strconv.FormatFloat(s.Location.Lon, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write station %s: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
