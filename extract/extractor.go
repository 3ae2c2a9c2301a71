// Package extract derives textual summaries of meteorological features
// from gridded data. The summaries are appended to agent prompts as
// best-effort enrichment; callers must tolerate any extractor failing.
package extract

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Grid is one regular latitude/longitude field of a single variable.
// Values is indexed [lat][lon] and must match the axis lengths.
type Grid struct {
	Variable  string
	ValidTime time.Time
	Lats      []float64
	Lons      []float64
	Values    [][]float64
}

// Validate checks the grid's shape.
func (g Grid) Validate() error {
	if len(g.Lats) == 0 || len(g.Lons) == 0 {
		return errors.New("extract: grid has empty axes")
	}
	if len(g.Values) != len(g.Lats) {
		return fmt.Errorf("extract: grid has %d rows, want %d", len(g.Values), len(g.Lats))
	}
	for i, row := range g.Values {
		if len(row) != len(g.Lons) {
			return fmt.Errorf("extract: grid row %d has %d columns, want %d", i, len(row), len(g.Lons))
		}
	}
	return nil
}

// Feature is one detected meteorological feature.
type Feature interface {
	// Describe returns a one-line human readable summary.
	Describe() string
}

// Extractor detects features in a grid and formats them for a prompt.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Extract returns the detected features, possibly none.
	Extract(g Grid) ([]Feature, error)

	// Format renders features as a prompt block. An empty block means
	// there is nothing worth telling the model.
	Format(features []Feature) (string, error)
}

const earthRadiusKM = 6371.0

// haversineKM returns the great-circle distance between two points in
// kilometers.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dlat := rad(lat2 - lat1)
	dlon := rad(lon2 - lon1)
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// coordString formats a lat/lon pair with hemisphere suffixes.
func coordString(lat, lon float64) string {
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
		lat = -lat
	}
	if lon < 0 {
		ew = "W"
		lon = -lon
	}
	return fmt.Sprintf("%.1f%s, %.1f%s", lat, ns, lon, ew)
}
