// Package render draws analysis results as PNG charts (gonum/plot) and as an
// HTML dashboard (go-echarts).
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/monitoring"
)

// Artifact file names.
const (
	TemporalFile     = "temporal_analysis.png"
	MajorChangesFile = "major_changes.png"
	DashboardFile    = "dashboard.html"
)

const (
	PNGContentType  = "image/png"
	HTMLContentType = "text/html; charset=utf-8"
)

// GlobalMapFile names the per-year class chart.
func GlobalMapFile(year int) string {
	return fmt.Sprintf("global_lc_%d.png", year)
}

// ChangeComparisonFile names the start/end comparison chart.
func ChangeComparisonFile(start, end int) string {
	return fmt.Sprintf("change_comparison_%d_%d.png", start, end)
}

// Artifact is one rendered file held in memory.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer produces every chart of a run.
type Renderer struct {
	Plots     *PlotRenderer
	Dashboard *Dashboard
}

// NewRenderer returns a Renderer with default image sizes.
func NewRenderer(areaUnits string) *Renderer {
	plots := NewPlotRenderer()
	plots.Units = areaUnits
	return &Renderer{Plots: plots, Dashboard: &Dashboard{Units: areaUnits}}
}

// Render draws all charts. Charts without data are skipped.
func (r *Renderer) Render(ctx context.Context, areas map[int]*landcover.AreaResult, change *landcover.ChangeResult) ([]Artifact, error) {
	type job struct {
		name, contentType string
		draw              func(io.Writer) error
	}

	var jobs []job
	for _, y := range sortedYears(areas) {
		res := areas[y]
		jobs = append(jobs, job{GlobalMapFile(y), PNGContentType, func(w io.Writer) error {
			return r.Plots.GlobalMap(w, res)
		}})
	}
	jobs = append(jobs,
		job{TemporalFile, PNGContentType, func(w io.Writer) error { return r.Plots.Temporal(w, areas) }},
		job{MajorChangesFile, PNGContentType, func(w io.Writer) error { return r.Plots.MajorChanges(w, change) }},
	)
	if change != nil {
		if start, end, ok := change.Span(); ok {
			jobs = append(jobs, job{ChangeComparisonFile(start, end), PNGContentType, func(w io.Writer) error {
				return r.Plots.ChangeComparison(w, change)
			}})
		}
	}
	jobs = append(jobs, job{DashboardFile, HTMLContentType, func(w io.Writer) error {
		return r.Dashboard.Render(w, areas, change)
	}})

	out := make([]Artifact, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := j.draw(&buf); err != nil {
			if errors.Is(err, ErrNoData) {
				monitoring.Logf("render: skipping %s: %v", j.name, err)
				continue
			}
			return nil, fmt.Errorf("failed to render %s: %w", j.name, err)
		}
		out = append(out, Artifact{Name: j.name, ContentType: j.contentType, Data: buf.Bytes()})
	}
	return out, nil
}
