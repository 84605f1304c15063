// Package dashboard renders the buoy snapshot as an HTML page with four
// tabbed chart panels. Charts are SVG drawn by go-chart.
package dashboard

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/kjstillabower/buoy-station-tools/internal/buoy"
	"github.com/kjstillabower/buoy-station-tools/internal/models"
)

var (
	ErrUnknownPanel    = errors.New("unknown panel")
	ErrNotEnoughPoints = errors.New("not enough observations to draw a chart")
)

// Panel identifies one dashboard chart. Values double as URL path segments.
type Panel string

const (
	PanelTemperature Panel = "temperature"
	PanelWind        Panel = "wind"
	PanelChopiness   Panel = "chopiness"
	PanelSolar       Panel = "solar"
)

// Panels lists the tabs in display order.
var Panels = []Panel{PanelTemperature, PanelWind, PanelChopiness, PanelSolar}

// Overlay scale factors.
const (
	waveHeightOverlay = 3.0
	solarChopOverlay  = 25.0
)

const (
	chartWidth  = 1000
	chartHeight = 420
)

var (
	colorBlue   = drawing.ColorFromHex("1f77b4")
	colorGreen  = drawing.ColorFromHex("2ca02c")
	colorRed    = drawing.ColorFromHex("d62728")
	colorPurple = drawing.ColorFromHex("9467bd")
)

// Line is one plotted series. Y may contain NaN where a smoothing window is incomplete.
type Line struct {
	Name   string
	Values []float64
	Color  drawing.Color
	Faded  bool
}

// PanelSpec is the data and labels of one chart before rendering.
type PanelSpec struct {
	Panel  Panel
	Title  string
	YLabel string
	Times  []time.Time
	Lines  []Line
}

// ParsePanel validates a panel name from a URL.
func ParsePanel(s string) (Panel, error) {
	for _, p := range Panels {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPanel, s)
}

// Label is the tab caption.
func (p Panel) Label() string {
	switch p {
	case PanelTemperature:
		return "Temperatures"
	case PanelWind:
		return "Wind Speed (knots)"
	case PanelChopiness:
		return `"Chopiness"`
	case PanelSolar:
		return "Solar"
	}
	return string(p)
}

func column(obs []models.BuoyObservation, get func(models.BuoyObservation) float64) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = get(o)
	}
	return out
}

// BuildPanel derives the lines of one panel from a snapshot.
func BuildPanel(snap models.Snapshot, p Panel) (PanelSpec, error) {
	obs := snap.Observations
	times := make([]time.Time, len(obs))
	for i, o := range obs {
		times[i] = o.Timestamp
	}
	spec := PanelSpec{Panel: p, Times: times}

	switch p {
	case PanelTemperature:
		air := buoy.Fahrenheit(column(obs, func(o models.BuoyObservation) float64 { return o.AirTemp }))
		water := buoy.Fahrenheit(column(obs, func(o models.BuoyObservation) float64 { return o.WaterTemp }))
		spec.Title = fmt.Sprintf("Buoy %s Temperature Measurements", snap.Buoy)
		spec.YLabel = "Temperature (F)"
		spec.Lines = []Line{
			{Name: buoy.ColAirTemp, Values: air, Color: colorGreen, Faded: true},
			{Name: buoy.ColWaterTemp, Values: water, Color: colorRed, Faded: true},
			{Name: "Air Temp SMA", Values: buoy.RollingMean(buoy.RollingMax(air, 5), 3), Color: colorBlue},
		}
	case PanelWind:
		speed := buoy.Knots(column(obs, func(o models.BuoyObservation) float64 { return o.WindSpeed }))
		gust := buoy.Knots(column(obs, func(o models.BuoyObservation) float64 { return o.Gust }))
		spec.Title = fmt.Sprintf("Buoy %s Wind Measurements", snap.Buoy)
		spec.YLabel = "Wind Speed (knots)"
		spec.Lines = []Line{
			{Name: buoy.ColWindSpeed, Values: speed, Color: colorGreen, Faded: true},
			{Name: buoy.ColGust, Values: gust, Color: colorRed, Faded: true},
			{Name: "Gust SMA", Values: buoy.RollingMean(buoy.RollingMax(gust, 5), 12), Color: colorBlue},
		}
	case PanelChopiness:
		wave := column(obs, func(o models.BuoyObservation) float64 { return o.WaveHeight })
		spec.Title = "Degree of Chopiness Guesstimate (unitless)"
		spec.YLabel = "Chopiness f(wave height, wave separation, gusts)"
		spec.Lines = []Line{
			{Name: "Degree of Chopiness (a.u.)", Values: snap.Chopiness, Color: colorBlue},
			{Name: buoy.ColWaveHeight + " x3", Values: buoy.Scale(wave, waveHeightOverlay), Color: colorGreen, Faded: true},
			{Name: buoy.ColDominantPeriod, Values: column(obs, func(o models.BuoyObservation) float64 { return o.DominantPeriod }), Color: colorRed, Faded: true},
			{Name: buoy.ColGust, Values: column(obs, func(o models.BuoyObservation) float64 { return o.Gust }), Color: colorPurple, Faded: true},
		}
	case PanelSolar:
		spec.Title = `Solar Radiation (W/m2) with "Chopiness" overlay`
		spec.YLabel = "W/m2"
		spec.Lines = []Line{
			{Name: buoy.ColSolar, Values: column(obs, func(o models.BuoyObservation) float64 { return o.SolarRadiation }), Color: colorBlue},
			{Name: "Chopiness x25", Values: buoy.Scale(snap.Chopiness, solarChopOverlay), Color: colorGreen, Faded: true},
		}
	default:
		return PanelSpec{}, fmt.Errorf("%w: %q", ErrUnknownPanel, p)
	}

	for _, l := range spec.Lines {
		if len(l.Values) != len(times) {
			return PanelSpec{}, fmt.Errorf("panel %s line %s: %w", p, l.Name, buoy.ErrLengthMismatch)
		}
	}
	return spec, nil
}

// RenderPanel draws one panel of snap as SVG.
func RenderPanel(w io.Writer, snap models.Snapshot, p Panel) error {
	spec, err := BuildPanel(snap, p)
	if err != nil {
		return err
	}
	graph, err := spec.chart()
	if err != nil {
		return err
	}
	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %s: %w", p, err)
	}
	return nil
}

func (s PanelSpec) chart() (*chart.Chart, error) {
	if len(s.Times) < 2 || !s.Times[len(s.Times)-1].After(s.Times[0]) {
		return nil, ErrNotEnoughPoints
	}

	var series []chart.Series
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, l := range s.Lines {
		xs, ys := dropMissing(s.Times, l.Values)
		if len(xs) < 2 {
			continue
		}
		for _, y := range ys {
			lo = math.Min(lo, y)
			hi = math.Max(hi, y)
		}
		color := l.Color
		if l.Faded {
			color = color.WithAlpha(128)
		}
		series = append(series, chart.TimeSeries{
			Name: l.Name,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
			},
			XValues: xs,
			YValues: ys,
		})
	}
	if len(series) == 0 {
		return nil, ErrNotEnoughPoints
	}

	graph := &chart.Chart{
		Title:  s.Title,
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("Jan 2 15:04"),
		},
		YAxis: chart.YAxis{
			Name:  s.YLabel,
			Range: paddedRange(lo, hi),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(graph)}
	return graph, nil
}

// dropMissing pairs times with values, skipping NaN and Inf.
func dropMissing(times []time.Time, values []float64) ([]time.Time, []float64) {
	xs := make([]time.Time, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, times[i])
		ys = append(ys, v)
	}
	return xs, ys
}

// paddedRange widens [lo, hi] by 5%. A flat series gets +-1 so the axis has a span.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	span := hi - lo
	if span <= 0 {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := span * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
