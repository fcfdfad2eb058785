package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/units"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data to plot")

// TrendClasses are the classes drawn by the temporal analysis chart.
var TrendClasses = []string{
	"Croplands",
	"Urban and Built-up",
	"Evergreen Broadleaf Forest",
	"Grasslands",
}

const (
	majorChangeLimit = 10
	comparisonLimit  = 12
	// Bars labelled with their percentage change in the comparison chart.
	comparisonLabelPct  = 2.0
	globalNameWidth     = 25
	comparisonNameWidth = 30
)

// PlotRenderer draws the PNG charts of a run.
type PlotRenderer struct {
	Width  vg.Length
	Height vg.Length
	// Units is the area unit of the trend chart; empty means km².
	Units string
}

// NewPlotRenderer returns a renderer producing 14x8 inch images.
func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{Width: 14 * vg.Inch, Height: 8 * vg.Inch}
}

// GlobalMap draws the top classes of one year as horizontal bars in their
// MODIS colours, largest class on top.
func (pr *PlotRenderer) GlobalMap(w io.Writer, r *landcover.AreaResult) error {
	if r == nil || len(r.TopClasses) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top Land Cover Classes - %d", r.Year)
	p.X.Label.Text = "Coverage (%)"
	p.X.Min = 0

	n := len(r.TopClasses)
	names := make([]string, n)
	for i, c := range r.TopClasses {
		pos := n - 1 - i
		names[pos] = truncate(c.Name, globalNameWidth)
		bar, err := plotter.NewBarChart(plotter.Values{c.Percentage}, vg.Points(30))
		if err != nil {
			return fmt.Errorf("failed to build bar for %s: %w", c.Name, err)
		}
		bar.Horizontal = true
		bar.XMin = float64(pos)
		bar.Color = ClassColor(c.Name)
		p.Add(bar)
	}
	p.NominalY(names...)
	p.Add(plotter.NewGrid())

	return pr.write(p, w)
}

// Temporal draws the area of each trend class across the analysed years.
func (pr *PlotRenderer) Temporal(w io.Writer, areas map[int]*landcover.AreaResult) error {
	years := sortedYears(areas)
	if len(years) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Land Cover Trends Over Time"
	p.X.Label.Text = "Year"
	p.Y.Label.Text = fmt.Sprintf("Area (%s)", units.Label(pr.Units))
	p.X.Tick.Marker = yearTicks(years)

	for _, name := range TrendClasses {
		pts := make(plotter.XYs, len(years))
		for i, y := range years {
			pts[i].X = float64(y)
			pts[i].Y = units.ConvertArea(areas[y].Area(name), pr.Units)
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("failed to build trend line for %s: %w", name, err)
		}
		c := ClassColor(name)
		line.Color = c
		line.Width = vg.Points(2)
		points.Color = c
		points.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.Add(plotter.NewGrid())

	return pr.write(p, w)
}

// MajorChanges draws up to ten major changes as horizontal bars of their
// percentage change, gains in green and losses in red.
func (pr *PlotRenderer) MajorChanges(w io.Writer, change *landcover.ChangeResult) error {
	if change == nil || len(change.MajorChanges) == 0 {
		return ErrNoData
	}
	changes := change.MajorChanges
	if len(changes) > majorChangeLimit {
		changes = changes[:majorChangeLimit]
	}

	p := plot.New()
	p.Title.Text = "Major Land Cover Changes"
	p.X.Label.Text = "Change (%)"

	n := len(changes)
	names := make([]string, n)
	for i, ch := range changes {
		pos := n - 1 - i
		names[pos] = ch.ClassName
		pct := ch.ChangePercentage.Float()
		bar, err := plotter.NewBarChart(plotter.Values{pct}, vg.Points(20))
		if err != nil {
			return fmt.Errorf("failed to build bar for %s: %w", ch.ClassName, err)
		}
		bar.Horizontal = true
		bar.XMin = float64(pos)
		bar.Color = mustHex(lossHex)
		if pct > 0 {
			bar.Color = mustHex(gainHex)
		}
		p.Add(bar)
	}
	p.NominalY(names...)
	p.Add(plotter.NewGrid())

	return pr.write(p, w)
}

// ChangeComparison draws start and end pixel counts side by side for the
// twelve largest changes. Bars whose class moved by more than 2% carry the
// signed percentage.
func (pr *PlotRenderer) ChangeComparison(w io.Writer, change *landcover.ChangeResult) error {
	if change == nil || len(change.AreaChanges) == 0 {
		return ErrNoData
	}
	start, end, ok := change.Span()
	if !ok {
		return ErrNoData
	}
	changes := change.AreaChanges
	if len(changes) > comparisonLimit {
		changes = changes[:comparisonLimit]
	}

	n := len(changes)
	names := make([]string, n)
	startVals := make(plotter.Values, n)
	endVals := make(plotter.Values, n)
	var labels plotter.XYLabels
	for i, ch := range changes {
		pos := n - 1 - i
		names[pos] = truncate(ch.ClassName, comparisonNameWidth)
		startVals[pos] = float64(ch.PixelsStart)
		endVals[pos] = float64(ch.PixelsEnd)
		if ch.ChangePercentage.Abs() > comparisonLabelPct {
			x := float64(max(ch.PixelsStart, ch.PixelsEnd))
			labels.XYs = append(labels.XYs, plotter.XY{X: x, Y: float64(pos)})
			labels.Labels = append(labels.Labels, " "+ch.ChangePercentage.String())
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Land Cover Change Comparison: %d vs %d", start, end)
	p.X.Label.Text = "Pixel Count"
	p.Y.Label.Text = "Land Cover Class"
	p.X.Min = 0

	width := vg.Points(12)
	startBars, err := plotter.NewBarChart(startVals, width)
	if err != nil {
		return fmt.Errorf("failed to build %d bars: %w", start, err)
	}
	startBars.Horizontal = true
	startBars.Color = mustHex(startHex)
	startBars.Offset = -width / 2

	endBars, err := plotter.NewBarChart(endVals, width)
	if err != nil {
		return fmt.Errorf("failed to build %d bars: %w", end, err)
	}
	endBars.Horizontal = true
	endBars.Color = mustHex(endHex)
	endBars.Offset = width / 2

	p.Add(startBars, endBars)
	p.Legend.Add(strconv.Itoa(start), startBars)
	p.Legend.Add(strconv.Itoa(end), endBars)
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if len(labels.XYs) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return fmt.Errorf("failed to build change labels: %w", err)
		}
		p.Add(l)
	}
	p.NominalY(names...)
	p.Add(plotter.NewGrid())

	return pr.write(p, w)
}

func (pr *PlotRenderer) write(p *plot.Plot, w io.Writer) error {
	c := vgimg.New(pr.Width, pr.Height)
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func sortedYears(areas map[int]*landcover.AreaResult) []int {
	years := make([]int, 0, len(areas))
	for y, r := range areas {
		if r != nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func yearTicks(years []int) plot.ConstantTicks {
	ticks := make(plot.ConstantTicks, len(years))
	for i, y := range years {
		ticks[i] = plot.Tick{Value: float64(y), Label: strconv.Itoa(y)}
	}
	return ticks
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
