// Package charts renders the visuals page charts as SVG with go-chart.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	Width  = 800
	Height = 400
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Bar is one labelled bar.
type Bar struct {
	Label string
	Value float64
}

// Point is one scatter point.
type Point struct {
	X, Y float64
}

func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

// BarSVG draws bars in order with a y axis that always includes zero.
func BarSVG(w io.Writer, title string, bars []Bar) error {
	if len(bars) == 0 {
		return ErrNoData
	}
	values := make([]chart.Value, 0, len(bars))
	ys := make([]float64, 0, len(bars))
	for _, b := range bars {
		values = append(values, chart.Value{Label: b.Label, Value: b.Value})
		ys = append(ys, b.Value)
	}
	lo, hi := valueRange(ys)

	bc := chart.BarChart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		BarWidth:   barWidth(len(bars)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: values,
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// LineSVG draws values against their position, labelling each tick with labels[i].
func LineSVG(w io.Writer, title, yName string, labels []string, values []float64) error {
	if len(values) == 0 {
		return ErrNoData
	}
	xlo, xhi := 0.5, float64(len(values))+0.5
	xs := make([]float64, len(values))
	// go-chart takes the x range from the ticks, so the unlabelled edge ticks keep
	// a single point from collapsing it to zero width.
	ticks := make([]chart.Tick, 0, len(values)+2)
	ticks = append(ticks, chart.Tick{Value: xlo})
	for i := range values {
		xs[i] = float64(i + 1)
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		ticks = append(ticks, chart.Tick{Value: xs[i], Label: label})
	}
	ticks = append(ticks, chart.Tick{Value: xhi})
	lo, hi := valueRange(values)

	ch := chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: xlo, Max: xhi},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    yName,
				XValues: xs,
				YValues: values,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    chart.ColorBlue,
				},
			},
		},
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render line chart: %w", err)
	}
	return nil
}

// ScatterSVG draws unconnected points.
func ScatterSVG(w io.Writer, title, xName, yName string, points []Point) error {
	if len(points) == 0 {
		return ErrNoData
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	xlo, xhi := valueRange(xs)
	ylo, yhi := valueRange(ys)

	ch := chart.Chart{
		Title:      title,
		Width:      Width,
		Height:     Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: xName, Range: &chart.ContinuousRange{Min: xlo, Max: xhi}},
		YAxis:      chart.YAxis{Name: yName, Range: &chart.ContinuousRange{Min: ylo, Max: yhi}},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: yName, XValues: xs, YValues: ys, Style: pointStyle(chart.ColorGreen)},
		},
	}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render scatter chart: %w", err)
	}
	return nil
}

// valueRange returns an axis range covering zero and vs with some headroom. go-chart
// refuses to draw a zero-width range, so the result always has hi > lo.
func valueRange(vs []float64) (float64, float64) {
	lo, hi := 0.0, 0.0
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo == 0 {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	if hi > 0 {
		hi += pad
	}
	if lo < 0 {
		lo -= pad
	}
	return lo, hi
}

func barWidth(n int) int {
	w := (Width - 100) / n
	w = w * 3 / 4
	return max(4, min(w, 60))
}
