package landcover

import (
	"fmt"
	"sort"
)

// PixelAreaKm2 is the footprint of one 500m x 500m MODIS pixel.
const PixelAreaKm2 = 0.25

// TopClassCount is the length of AreaResult.TopClasses.
const TopClassCount = 5

// ClassStats is one class's share of a year.
type ClassStats struct {
	ClassID    ClassID `json:"class_id"`
	PixelCount int     `json:"pixel_count"`
	AreaKm2    float64 `json:"area_km2"`
	Percentage float64 `json:"percentage"`
}

// RankedClass is an entry of the top classes ranking.
type RankedClass struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// AreaResult is the area coverage of one year, keyed by class name.
type AreaResult struct {
	Year             int                   `json:"year"`
	TotalPixels      int                   `json:"total_pixels"`
	TotalAreaKm2     float64               `json:"total_area_km2"`
	ClassStatistics  map[string]ClassStats `json:"class_statistics"`
	ClassPercentages map[string]float64    `json:"class_percentages"`
	TotalClasses     int                   `json:"total_classes"`
	TopClasses       []RankedClass         `json:"top_5_classes"`
}

// Area returns the area of class name, or 0 when it is absent.
func (r *AreaResult) Area(name string) float64 {
	return r.ClassStatistics[name].AreaKm2
}

// Aggregator computes per-year area coverage.
type Aggregator struct {
	catalog *Catalog
}

// NewAggregator returns an Aggregator resolving class names through catalog.
func NewAggregator(catalog *Catalog) *Aggregator {
	return &Aggregator{catalog: catalog}
}

// ComputeAreaCoverage groups the table by class and derives counts, areas,
// percentages and the top classes ranking.
func (a *Aggregator) ComputeAreaCoverage(table *SampleTable) (*AreaResult, error) {
	if table == nil {
		return nil, fmt.Errorf("nil sample table")
	}
	total := table.Len()
	if total == 0 {
		return nil, fmt.Errorf("%w: year %d", ErrEmptyTable, table.Year())
	}

	res := &AreaResult{
		Year:             table.Year(),
		TotalPixels:      total,
		TotalAreaKm2:     float64(total) * PixelAreaKm2,
		ClassStatistics:  make(map[string]ClassStats),
		ClassPercentages: make(map[string]float64),
	}
	for id, count := range table.ClassCounts() {
		class, err := a.catalog.Class(id)
		if err != nil {
			return nil, err
		}
		pct := 100 * float64(count) / float64(total)
		res.ClassStatistics[class.Name] = ClassStats{
			ClassID:    id,
			PixelCount: count,
			AreaKm2:    float64(count) * PixelAreaKm2,
			Percentage: pct,
		}
		res.ClassPercentages[class.Name] = pct
	}
	res.TotalClasses = len(res.ClassStatistics)
	res.TopClasses = RankClasses(res.ClassStatistics, TopClassCount)
	return res, nil
}

// RankClasses orders classes by percentage descending, breaking ties by class
// id ascending, and returns at most n entries.
func RankClasses(stats map[string]ClassStats, n int) []RankedClass {
	type entry struct {
		name string
		ClassStats
	}
	entries := make([]entry, 0, len(stats))
	for name, s := range stats {
		entries = append(entries, entry{name, s})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Percentage != entries[j].Percentage {
			return entries[i].Percentage > entries[j].Percentage
		}
		return entries[i].ClassID < entries[j].ClassID
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	out := make([]RankedClass, len(entries))
	for i, e := range entries {
		out[i] = RankedClass{Name: e.name, Percentage: e.Percentage}
	}
	return out
}
