package export

import (
	"fmt"
	"math"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"

	"polymarket-scraper/internal/model"
	"polymarket-scraper/internal/render"
)

// WriteChart renders total volume per category as a bar chart.
func (e *Exporter) WriteChart(snap model.Snapshot) (string, error) {
	bars := make([]chart.Value, 0, len(snap.Categories))
	peak := 0.0
	for _, st := range snap.CategoryStats() {
		if st.Volume <= 0 {
			continue
		}
		bars = append(bars, chart.Value{Label: st.Name, Value: st.Volume})
		peak = math.Max(peak, st.Volume)
	}
	if len(bars) == 0 {
		return "", ErrNothingToPlot
	}

	path, err := e.filePath("polymarket_categories", snap, FormatPNG)
	if err != nil {
		return "", err
	}

	volumeFormatter := func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return render.FormatVolume(f)
		}
		return ""
	}
	graph := chart.BarChart{
		Title:    "Volume by category",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: peak},
			ValueFormatter: volumeFormatter,
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart: %w", err)
	}
	defer file.Close()

	if err := graph.Render(chart.PNG, file); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return path, nil
}
