package extract

import (
	"fmt"
	"math"
	"strings"
)

// TemperatureExtreme is the warmest or coldest point on the grid.
type TemperatureExtreme struct {
	Kind  string // "warmest" or "coldest"
	Lat   float64
	Lon   float64
	Value float64 // degrees Celsius
}

func (t TemperatureExtreme) Describe() string {
	return fmt.Sprintf("%s point %.1f C at %s", t.Kind, t.Value, coordString(t.Lat, t.Lon))
}

// TemperatureGradient is the strongest horizontal temperature contrast
// between adjacent grid cells, a proxy for frontal zones.
type TemperatureGradient struct {
	Lat        float64
	Lon        float64
	PerHundred float64 // degrees Celsius per 100 km
}

func (t TemperatureGradient) Describe() string {
	return fmt.Sprintf("strongest gradient %.1f C per 100 km near %s", t.PerHundred, coordString(t.Lat, t.Lon))
}

// TemperatureExtractor summarizes a 2 m or isobaric temperature grid:
// extremes, domain mean, and the sharpest gradient.
type TemperatureExtractor struct {
	// MinGradient drops the gradient feature when the sharpest contrast
	// is below this many degrees Celsius per 100 km.
	MinGradient float64
}

// NewTemperatureExtractor returns an extractor with standard tuning.
func NewTemperatureExtractor() *TemperatureExtractor {
	return &TemperatureExtractor{MinGradient: 1.0}
}

func (e *TemperatureExtractor) Name() string { return "temperature-features" }

func (e *TemperatureExtractor) Extract(g Grid) ([]Feature, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	values := toCelsius(g.Values)

	warm := TemperatureExtreme{Kind: "warmest", Value: math.Inf(-1)}
	cold := TemperatureExtreme{Kind: "coldest", Value: math.Inf(1)}
	for i, row := range values {
		for j, v := range row {
			if v > warm.Value {
				warm = TemperatureExtreme{Kind: "warmest", Lat: g.Lats[i], Lon: g.Lons[j], Value: v}
			}
			if v < cold.Value {
				cold = TemperatureExtreme{Kind: "coldest", Lat: g.Lats[i], Lon: g.Lons[j], Value: v}
			}
		}
	}

	features := []Feature{cold, warm}
	if grad, ok := e.strongestGradient(g, values); ok {
		features = append(features, grad)
	}
	return features, nil
}

func (e *TemperatureExtractor) Format(features []Feature) (string, error) {
	var lines []string
	for _, f := range features {
		switch f.(type) {
		case TemperatureExtreme, TemperatureGradient:
			lines = append(lines, "- "+f.Describe())
		default:
			return "", fmt.Errorf("extract: %s cannot format %T", e.Name(), f)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "# TEMPERATURE FEATURES\n\nThe following temperature features were detected in the source data:\n\n" +
		strings.Join(lines, "\n"), nil
}

// strongestGradient scans adjacent cell pairs along both axes.
func (e *TemperatureExtractor) strongestGradient(g Grid, values [][]float64) (TemperatureGradient, bool) {
	best := TemperatureGradient{}
	for i := range values {
		for j := range values[i] {
			if j+1 < len(values[i]) {
				d := haversineKM(g.Lats[i], g.Lons[j], g.Lats[i], g.Lons[j+1])
				if d > 0 {
					if p := math.Abs(values[i][j+1]-values[i][j]) / d * 100; p > best.PerHundred {
						best = TemperatureGradient{Lat: g.Lats[i], Lon: g.Lons[j], PerHundred: p}
					}
				}
			}
			if i+1 < len(values) {
				d := haversineKM(g.Lats[i], g.Lons[j], g.Lats[i+1], g.Lons[j])
				if d > 0 {
					if p := math.Abs(values[i+1][j]-values[i][j]) / d * 100; p > best.PerHundred {
						best = TemperatureGradient{Lat: g.Lats[i], Lon: g.Lons[j], PerHundred: p}
					}
				}
			}
		}
	}
	if best.PerHundred < e.MinGradient {
		return TemperatureGradient{}, false
	}
	return best, true
}

// toCelsius copies the grid, converting from Kelvin when the magnitudes
// indicate the source was not already in Celsius.
func toCelsius(values [][]float64) [][]float64 {
	var sum float64
	var n int
	for _, row := range values {
		for _, v := range row {
			sum += v
			n++
		}
	}
	offset := 0.0
	if n > 0 && sum/float64(n) > 150 {
		offset = -273.15
	}
	out := make([][]float64, len(values))
	for i, row := range values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v + offset
		}
	}
	return out
}
