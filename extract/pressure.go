package extract

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// PressureCenter is one detected high or low pressure center.
type PressureCenter struct {
	Kind      string // "high" or "low"
	Lat       float64
	Lon       float64
	Pressure  float64 // hPa at the center
	Intensity float64 // hPa departure from the surrounding mean
}

func (c PressureCenter) Describe() string {
	return fmt.Sprintf("%s of %.0f hPa at %s (intensity %.1f hPa)",
		c.Kind, c.Pressure, coordString(c.Lat, c.Lon), c.Intensity)
}

// PressureExtractor locates high and low pressure centers in a mean sea
// level pressure grid.
type PressureExtractor struct {
	// SmoothPasses is how many box smoothing passes run before extrema
	// detection, to suppress single-cell noise.
	SmoothPasses int

	// Neighborhood is 4 or 8, the connectivity used for local extrema.
	Neighborhood int

	// MinIntensityHPa drops centers whose departure from the local mean
	// is below this threshold.
	MinIntensityHPa float64

	// MinSeparationKM drops the weaker of two centers closer than this.
	MinSeparationKM float64
}

// NewPressureExtractor returns an extractor with the standard tuning for
// synoptic-scale charts.
func NewPressureExtractor() *PressureExtractor {
	return &PressureExtractor{
		SmoothPasses:    2,
		Neighborhood:    8,
		MinIntensityHPa: 2.0,
		MinSeparationKM: 500,
	}
}

func (e *PressureExtractor) Name() string { return "pressure-centers" }

func (e *PressureExtractor) Extract(g Grid) ([]Feature, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if e.Neighborhood != 4 && e.Neighborhood != 8 {
		return nil, fmt.Errorf("extract: neighborhood must be 4 or 8, got %d", e.Neighborhood)
	}

	values := toHPa(g.Values)
	for i := 0; i < e.SmoothPasses; i++ {
		values = boxSmooth(values)
	}

	var centers []PressureCenter
	for i := range values {
		for j := range values[i] {
			kind, ok := e.classify(values, i, j)
			if !ok {
				continue
			}
			intensity := math.Abs(values[i][j] - neighborhoodMean(values, i, j, 3))
			if intensity < e.MinIntensityHPa {
				continue
			}
			centers = append(centers, PressureCenter{
				Kind:      kind,
				Lat:       g.Lats[i],
				Lon:       g.Lons[j],
				Pressure:  values[i][j],
				Intensity: intensity,
			})
		}
	}

	centers = e.dedupe(centers)

	features := make([]Feature, len(centers))
	for i, c := range centers {
		features[i] = c
	}
	return features, nil
}

func (e *PressureExtractor) Format(features []Feature) (string, error) {
	var lines []string
	for _, f := range features {
		c, ok := f.(PressureCenter)
		if !ok {
			return "", fmt.Errorf("extract: %s cannot format %T", e.Name(), f)
		}
		lines = append(lines, "- "+c.Describe())
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "# PRESSURE CENTERS\n\nThe following pressure centers were detected in the source data:\n\n" +
		strings.Join(lines, "\n"), nil
}

// classify reports whether cell (i, j) is a strict local extremum over
// the configured neighborhood.
func (e *PressureExtractor) classify(values [][]float64, i, j int) (string, bool) {
	v := values[i][j]
	isMin, isMax := true, true
	for di := -1; di <= 1; di++ {
		for dj := -1; dj <= 1; dj++ {
			if di == 0 && dj == 0 {
				continue
			}
			if e.Neighborhood == 4 && di != 0 && dj != 0 {
				continue
			}
			ni, nj := i+di, j+dj
			if ni < 0 || ni >= len(values) || nj < 0 || nj >= len(values[ni]) {
				continue
			}
			if values[ni][nj] <= v {
				isMin = false
			}
			if values[ni][nj] >= v {
				isMax = false
			}
		}
	}
	switch {
	case isMin:
		return "low", true
	case isMax:
		return "high", true
	default:
		return "", false
	}
}

// dedupe keeps the strongest center within each MinSeparationKM radius.
func (e *PressureExtractor) dedupe(centers []PressureCenter) []PressureCenter {
	sort.Slice(centers, func(a, b int) bool {
		return centers[a].Intensity > centers[b].Intensity
	})
	var kept []PressureCenter
	for _, c := range centers {
		tooClose := false
		for _, k := range kept {
			if haversineKM(c.Lat, c.Lon, k.Lat, k.Lon) < e.MinSeparationKM {
				tooClose = true
				break
			}
		}
		if !tooClose {
			kept = append(kept, c)
		}
	}
	return kept
}

// toHPa copies the grid, converting from Pa when the magnitudes indicate
// the source was not already in hPa.
func toHPa(values [][]float64) [][]float64 {
	var sum float64
	var n int
	for _, row := range values {
		for _, v := range row {
			sum += v
			n++
		}
	}
	scale := 1.0
	if n > 0 && sum/float64(n) > 2000 {
		scale = 1.0 / 100.0
	}
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * scale
		}
	}
	return out
}

// boxSmooth applies one 3x3 mean filter pass.
func boxSmooth(values [][]float64) [][]float64 {
	out := make([][]float64, len(values))
	for i := range values {
		out[i] = make([]float64, len(values[i]))
		for j := range values[i] {
			var sum float64
			var n int
			for di := -1; di <= 1; di++ {
				for dj := -1; dj <= 1; dj++ {
					ni, nj := i+di, j+dj
					if ni < 0 || ni >= len(values) || nj < 0 || nj >= len(values[ni]) {
						continue
					}
					sum += values[ni][nj]
					n++
				}
			}
			out[i][j] = sum / float64(n)
		}
	}
	return out
}

// neighborhoodMean averages the cells within radius r of (i, j),
// excluding the center cell.
func neighborhoodMean(values [][]float64, i, j, r int) float64 {
	var sum float64
	var n int
	for di := -r; di <= r; di++ {
		for dj := -r; dj <= r; dj++ {
			if di == 0 && dj == 0 {
				continue
			}
			ni, nj := i+di, j+dj
			if ni < 0 || ni >= len(values) || nj < 0 || nj >= len(values[ni]) {
				continue
			}
			sum += values[ni][nj]
			n++
		}
	}
	if n == 0 {
		return values[i][j]
	}
	return sum / float64(n)
}
