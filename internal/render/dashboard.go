package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/units"
)

const (
	// Classes at or below this share are folded out of the yearly pies.
	pieMinPercent = 2.0
	pieFallback   = 10
)

// Dashboard renders a run as a single interactive HTML page.
type Dashboard struct {
	// AssetsHost overrides where echarts.min.js is loaded from. Empty keeps
	// the go-echarts default.
	AssetsHost string
	// Units is the area unit of the trend chart; empty means km².
	Units string
}

// Render writes the page: a pie per year, the trend lines and the change
// comparison bars when a change result is available.
func (d *Dashboard) Render(w io.Writer, areas map[int]*landcover.AreaResult, change *landcover.ChangeResult) error {
	years := sortedYears(areas)
	if len(years) == 0 {
		return ErrNoData
	}

	page := components.NewPage()
	page.SetPageTitle("Land Cover Analysis")
	if d.AssetsHost != "" {
		page.SetAssetsHost(d.AssetsHost)
	}

	for _, y := range years {
		page.AddCharts(d.pie(areas[y]))
	}
	page.AddCharts(d.trends(years, areas))
	if change != nil && len(change.AreaChanges) > 0 {
		page.AddCharts(d.comparison(change))
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

func (d *Dashboard) init(title string) opts.Initialization {
	return opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px", AssetsHost: d.AssetsHost}
}

func (d *Dashboard) pie(r *landcover.AreaResult) *charts.Pie {
	data := make([]opts.PieData, 0)
	for _, c := range pieClasses(r) {
		data = append(data, opts.PieData{
			Name:      c.Name,
			Value:     c.Percentage,
			ItemStyle: &opts.ItemStyle{Color: ClassHex(c.Name)},
		})
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(d.init("Land Cover Distribution")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Land Cover Distribution - %d", r.Year),
			Subtitle: fmt.Sprintf("%d pixels, %.0f km²", r.TotalPixels, r.TotalAreaKm2),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	pie.AddSeries(strconv.Itoa(r.Year), data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
		charts.WithPieChartOpts(opts.PieChart{Radius: "60%"}),
	)
	return pie
}

func (d *Dashboard) trends(years []int, areas map[int]*landcover.AreaResult) *charts.Line {
	x := make([]string, len(years))
	for i, y := range years {
		x[i] = strconv.Itoa(y)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(d.init("Land Cover Trends")),
		charts.WithTitleOpts(opts.Title{Title: "Land Cover Trends Over Time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: fmt.Sprintf("Area (%s)", units.Label(d.Units))}),
	)
	line.SetXAxis(x)
	for _, name := range TrendClasses {
		data := make([]opts.LineData, len(years))
		for i, y := range years {
			data[i] = opts.LineData{Value: units.ConvertArea(areas[y].Area(name), d.Units)}
		}
		line.AddSeries(name, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: ClassHex(name)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		)
	}
	return line
}

func (d *Dashboard) comparison(change *landcover.ChangeResult) *charts.Bar {
	start, end, _ := change.Span()
	changes := change.AreaChanges
	if len(changes) > comparisonLimit {
		changes = changes[:comparisonLimit]
	}

	names := make([]string, len(changes))
	startData := make([]opts.BarData, len(changes))
	endData := make([]opts.BarData, len(changes))
	for i, ch := range changes {
		names[i] = ch.ClassName
		startData[i] = opts.BarData{Value: ch.PixelsStart}
		endData[i] = opts.BarData{Value: ch.PixelsEnd}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(d.init("Land Cover Change Comparison")),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Land Cover Change Comparison: %d vs %d", start, end),
			Subtitle: change.Summary,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries(strconv.Itoa(start), startData,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: startHex}),
		).
		AddSeries(strconv.Itoa(end), endData,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: endHex}),
		)
	bar.XYReversal()
	return bar
}

// pieClasses returns the classes above 2% coverage, or the ten largest when
// none qualifies.
func pieClasses(r *landcover.AreaResult) []landcover.RankedClass {
	ranked := landcover.RankClasses(r.ClassStatistics, -1)
	out := make([]landcover.RankedClass, 0, len(ranked))
	for _, c := range ranked {
		if c.Percentage > pieMinPercent {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(ranked) > pieFallback {
		ranked = ranked[:pieFallback]
	}
	return ranked
}
