// Package testutil provides shared test fixtures: sample tables built from
// class counts, a static Source and small HTTP assertion helpers.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"testing"

	"github.com/banshee-data/landcover.report/internal/landcover"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// Counts maps a class id to its number of samples.
type Counts map[landcover.ClassID]int

// Table builds an IGBP sample table for year with the given class counts.
// Samples are emitted in ascending class id order.
func Table(t testing.TB, year int, counts Counts) *landcover.SampleTable {
	t.Helper()
	catalog := landcover.IGBP()
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	var samples []landcover.Sample
	for _, raw := range ids {
		id := landcover.ClassID(raw)
		name, ok := catalog.Name(id)
		if !ok {
			t.Fatalf("class %d not in IGBP catalog", id)
		}
		for i := 0; i < counts[id]; i++ {
			samples = append(samples, landcover.Sample{
				PixelID:   fmt.Sprintf("P%d_%05d", year, len(samples)),
				ClassID:   id,
				ClassName: name,
				Year:      year,
			})
		}
	}
	table, err := landcover.NewSampleTable(catalog, year, samples)
	if err != nil {
		t.Fatalf("build table for %d: %v", year, err)
	}
	return table
}

// Scenario is the three-year fixture used across packages: forest shrinks,
// cropland and urban grow, snow and ice appears only in the last year.
func Scenario(t testing.TB) map[int]*landcover.SampleTable {
	t.Helper()
	return map[int]*landcover.SampleTable{
		2010: Table(t, 2010, Counts{2: 400, 4: 200, 10: 150, 12: 150, 13: 100}),
		2015: Table(t, 2015, Counts{2: 380, 4: 190, 10: 150, 12: 170, 13: 110}),
		2020: Table(t, 2020, Counts{2: 340, 4: 180, 10: 150, 12: 190, 13: 130, 15: 10}),
	}
}

// ScenarioYears are the years of Scenario in order.
var ScenarioYears = []int{2010, 2015, 2020}

// StaticSource serves fixed tables and fails years listed in Errors.
type StaticSource struct {
	Tables map[int]*landcover.SampleTable
	Errors map[int]error
}

// LandCover returns the table for year.
func (s *StaticSource) LandCover(ctx context.Context, year int) (*landcover.SampleTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Errors[year]; ok {
		return nil, err
	}
	table, ok := s.Tables[year]
	if !ok {
		return nil, fmt.Errorf("no data for %d", year)
	}
	return table, nil
}

// NewRequest creates a GET request for path.
func NewRequest(path string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	return req
}
