package journey

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartRenderer turns labeled values into server-side echarts markup.
type ChartRenderer struct {
	chartType string
	cache     RenderCache
	theme     string
}

// ChartRendererOption customizes a renderer.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) { r.cache = cache }
}

// WithChartTheme overrides the default Westeros theme.
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) { r.theme = theme }
}

// NewChartRenderer builds a renderer for one chart type (line, bar, pie).
func NewChartRenderer(chartType string, options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		chartType: strings.ToLower(chartType),
		cache:     sharedChartCache,
		theme:     types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// ChartPoint is one labeled value on a chart.
type ChartPoint struct {
	Label string
	Value float64
}

// Render produces chart HTML, memoized by title plus the card config hash.
func (r *ChartRenderer) Render(title, subtitle string, points []ChartPoint, cfg map[string]any) (string, error) {
	renderFn := func() (string, error) {
		return r.render(title, subtitle, points)
	}
	if r.cache == nil {
		return renderFn()
	}
	key := fmt.Sprintf("%s:%s:%s", r.chartType, title, configHash(cfg))
	return r.cache.GetOrRender(key, renderFn)
}

func (r *ChartRenderer) render(title, subtitle string, points []ChartPoint) (string, error) {
	switch r.chartType {
	case "line":
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions(title, subtitle)...)
		line.SetXAxis(axisLabels(points))
		line.AddSeries(title, toLineData(points))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case "bar":
		bar := charts.NewBar()
		bar.SetGlobalOptions(r.globalOptions(title, subtitle)...)
		bar.SetXAxis(axisLabels(points))
		bar.AddSeries(title, toBarData(points))
		return renderChart(bar)
	case "pie":
		pie := charts.NewPie()
		pie.SetGlobalOptions(r.globalOptions(title, subtitle)...)
		pie.AddSeries(title, toPieData(points))
		return renderChart(pie)
	default:
		return "", fmt.Errorf("journey: unsupported chart type %s", r.chartType)
	}
}

func (r *ChartRenderer) globalOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  r.theme,
			Width:  "100%",
			Height: defaultChartHeight,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func axisLabels(points []ChartPoint) []string {
	labels := make([]string, len(points))
	for i, point := range points {
		labels[i] = point.Label
	}
	return labels
}

func toLineData(points []ChartPoint) []opts.LineData {
	data := make([]opts.LineData, len(points))
	for i, point := range points {
		data[i] = opts.LineData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toBarData(points []ChartPoint) []opts.BarData {
	data := make([]opts.BarData, len(points))
	for i, point := range points {
		data[i] = opts.BarData{Name: point.Label, Value: point.Value}
	}
	return data
}

func toPieData(points []ChartPoint) []opts.PieData {
	data := make([]opts.PieData, len(points))
	for i, point := range points {
		data[i] = opts.PieData{Name: point.Label, Value: point.Value}
	}
	return data
}

// NewSourceMixProvider renders a pie of touchpoints per platform.
func NewSourceMixProvider(renderer *ChartRenderer) Provider {
	if renderer == nil {
		renderer = NewChartRenderer("pie")
	}
	return ProviderFunc(func(_ context.Context, card CardContext) (CardData, error) {
		d := card.Dashboard
		if d == nil {
			return nil, errMissingCardInput("source mix", "dashboard")
		}
		sources := make([]Source, 0, len(d.SourceTotals))
		for source := range d.SourceTotals {
			sources = append(sources, source)
		}
		sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
		points := make([]ChartPoint, 0, len(sources))
		for _, source := range sources {
			points = append(points, ChartPoint{Label: string(source), Value: float64(d.SourceTotals[source])})
		}
		html, err := renderer.Render("Source Mix", "touchpoints by platform", points, card.Config)
		if err != nil {
			return nil, err
		}
		return CardData{
			"chart_html": html,
			"chart_type": "pie",
			"points":     points,
		}, nil
	})
}

// NewTouchpointTrendProvider renders a line of daily touchpoint volume across
// every journey in the dashboard, bucketed by UTC day.
func NewTouchpointTrendProvider(renderer *ChartRenderer) Provider {
	if renderer == nil {
		renderer = NewChartRenderer("line")
	}
	return ProviderFunc(func(_ context.Context, card CardContext) (CardData, error) {
		d := card.Dashboard
		if d == nil {
			return nil, errMissingCardInput("touchpoint trend", "dashboard")
		}
		buckets := map[string]float64{}
		for _, journey := range d.Journeys {
			for _, event := range journey.TimelineEvents {
				buckets[event.Timestamp.UTC().Format(time.DateOnly)]++
			}
		}
		days := make([]string, 0, len(buckets))
		for day := range buckets {
			days = append(days, day)
		}
		sort.Strings(days)
		if limit := intOr(card.Config["days"], 0); limit > 0 && len(days) > limit {
			days = days[len(days)-limit:]
		}
		points := make([]ChartPoint, 0, len(days))
		for _, day := range days {
			points = append(points, ChartPoint{Label: day, Value: buckets[day]})
		}
		html, err := renderer.Render("Touchpoint Trend", "daily volume", points, card.Config)
		if err != nil {
			return nil, err
		}
		return CardData{
			"chart_html": html,
			"chart_type": "line",
			"points":     points,
		}, nil
	})
}
