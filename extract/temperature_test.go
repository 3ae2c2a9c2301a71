package extract

import (
	"strings"
	"testing"
)

func TestTemperatureExtractor(t *testing.T) {
	t.Run("finds extremes and gradient", func(t *testing.T) {
		g := uniformGrid(10, 10, 10)
		g.Variable = "t2m"
		g.Values[0][0] = -5               // coldest
		g.Values[9][9] = 28               // warmest
		g.Values[5][5], g.Values[5][6] = 2, 18 // sharp contrast

		e := NewTemperatureExtractor()
		features, err := e.Extract(g)
		if err != nil {
			t.Fatal(err)
		}
		if len(features) != 3 {
			t.Fatalf("got %d features, want coldest, warmest, gradient", len(features))
		}

		cold := features[0].(TemperatureExtreme)
		if cold.Kind != "coldest" || cold.Value != -5 {
			t.Errorf("coldest = %+v", cold)
		}
		warm := features[1].(TemperatureExtreme)
		if warm.Kind != "warmest" || warm.Value != 28 {
			t.Errorf("warmest = %+v", warm)
		}
		grad := features[2].(TemperatureGradient)
		if grad.PerHundred <= 0 {
			t.Errorf("gradient = %+v", grad)
		}
	})

	t.Run("weak gradient omitted", func(t *testing.T) {
		g := uniformGrid(10, 10, 15)
		e := NewTemperatureExtractor()
		features, err := e.Extract(g)
		if err != nil {
			t.Fatal(err)
		}
		if len(features) != 2 {
			t.Errorf("flat field should yield only the two extremes, got %d", len(features))
		}
	})

	t.Run("kelvin converted to celsius", func(t *testing.T) {
		g := uniformGrid(6, 6, 283.15)
		e := NewTemperatureExtractor()
		features, err := e.Extract(g)
		if err != nil {
			t.Fatal(err)
		}
		warm := features[1].(TemperatureExtreme)
		if warm.Value < 9 || warm.Value > 11 {
			t.Errorf("warmest = %.1f, want ~10 C", warm.Value)
		}
	})

	t.Run("format", func(t *testing.T) {
		e := NewTemperatureExtractor()
		block, err := e.Format([]Feature{
			TemperatureExtreme{Kind: "coldest", Lat: 65, Lon: 20, Value: -12.3},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(block, "# TEMPERATURE FEATURES") {
			t.Errorf("missing header: %q", block)
		}
		if !strings.Contains(block, "coldest point -12.3 C at 65.0N, 20.0E") {
			t.Errorf("missing feature line: %q", block)
		}
	})
}
