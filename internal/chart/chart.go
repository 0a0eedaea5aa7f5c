// Package chart renders price history charts as PNG images.
package chart

import (
	"bytes"
	"math"
	"os"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"canaro-bot/internal/price"
	"canaro-bot/lib/helpers"
)

// ErrNotEnoughData is returned when fewer than two samples are available.
var ErrNotEnoughData = errors.New("not enough data points to draw a chart")

var (
	backgroundColor = drawing.Color{R: 55, G: 55, B: 55, A: 255}
	textColor       = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	gridColor       = drawing.Color{R: 100, G: 100, B: 100, A: 128}
	lineColor       = drawing.Color{R: 0, G: 122, B: 255, A: 255}
	fillColor       = drawing.Color{R: 0, G: 122, B: 255, A: 35}
)

// Renderer draws price lines. A nil font uses go-chart's bundled Roboto.
type Renderer struct {
	Width  int
	Height int
	Font   *truetype.Font
}

func NewRenderer(font *truetype.Font) *Renderer {
	return &Renderer{Width: 1200, Height: 600, Font: font}
}

// LoadFont parses a TrueType font file.
func LoadFont(path string) (*truetype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read font %s", path)
	}
	font, err := truetype.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse font %s", path)
	}
	return font, nil
}

// Render draws points (oldest first) and returns the PNG bytes. Windows of a
// day or more label the x axis with dates, shorter ones with clock times.
func (r *Renderer) Render(title string, points []price.Point) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrNotEnoughData
	}

	xs := make([]time.Time, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		xs = append(xs, p.Time)
		ys = append(ys, p.Price)
	}

	timeFormat := "15:04"
	if xs[len(xs)-1].Sub(xs[0]) >= 24*time.Hour {
		timeFormat = "02-01"
	}

	minPrice, maxPrice := minMax(ys)
	padding := (maxPrice - minPrice) * 0.1
	if padding == 0 {
		padding = math.Max(math.Abs(maxPrice)*0.01, 1e-8)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  r.Width,
		Height: r.Height,
		Font:   r.Font,
		TitleStyle: chart.Style{
			FontColor: textColor,
			FontSize:  14,
		},
		Background: chart.Style{
			FillColor: backgroundColor,
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{
			FillColor: backgroundColor,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(timeFormat),
			Style: chart.Style{
				FontColor:   textColor,
				StrokeColor: textColor,
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: minPrice - padding, Max: maxPrice + padding},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return helpers.FormatPriceUS(f, false)
				}
				return ""
			},
			Style: chart.Style{
				FontColor:   textColor,
				StrokeColor: textColor,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: gridColor,
				StrokeWidth: 1,
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   fillColor,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, errors.Wrap(err, "render chart")
	}
	return buf.Bytes(), nil
}

func minMax(values []float64) (float64, float64) {
	minValue, maxValue := math.MaxFloat64, -math.MaxFloat64
	for _, v := range values {
		if v < minValue {
			minValue = v
		}
		if v > maxValue {
			maxValue = v
		}
	}
	return minValue, maxValue
}
