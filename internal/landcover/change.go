package landcover

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// MajorChangeThreshold is the |percentage| a class change must exceed to be
// reported as major.
const MajorChangeThreshold = 2.0

// NoMajorChangesSummary is the summary used when nothing crossed the threshold.
const NoMajorChangesSummary = "No major land cover changes detected"

// ClassChange is the start/end comparison of one class.
type ClassChange struct {
	ClassName        string        `json:"class_name"`
	PixelsStart      int           `json:"pixels_start"`
	PixelsEnd        int           `json:"pixels_end"`
	ChangePixels     int           `json:"change_pixels"`
	ChangePercentage PercentChange `json:"change_percentage"`
}

// CompositeChange is a start/end comparison summed over a group of classes.
type CompositeChange struct {
	Start     int           `json:"start"`
	End       int           `json:"end"`
	Change    int           `json:"change"`
	ChangePct PercentChange `json:"change_pct"`
}

// MarshalJSON adds change_percentage_kind next to change_percentage.
func (c ClassChange) MarshalJSON() ([]byte, error) {
	type plain ClassChange
	return json.Marshal(struct {
		plain
		Kind PercentKind `json:"change_percentage_kind"`
	}{plain(c), c.ChangePercentage.Kind})
}

func (c *ClassChange) UnmarshalJSON(b []byte) error {
	type plain ClassChange
	aux := struct {
		*plain
		Kind *PercentKind `json:"change_percentage_kind"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Kind != nil {
		c.ChangePercentage = c.ChangePercentage.WithKind(*aux.Kind)
	}
	return nil
}

// MarshalJSON adds change_pct_kind next to change_pct.
func (c CompositeChange) MarshalJSON() ([]byte, error) {
	type plain CompositeChange
	return json.Marshal(struct {
		plain
		Kind PercentKind `json:"change_pct_kind"`
	}{plain(c), c.ChangePct.Kind})
}

func (c *CompositeChange) UnmarshalJSON(b []byte) error {
	type plain CompositeChange
	aux := struct {
		*plain
		Kind *PercentKind `json:"change_pct_kind"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Kind != nil {
		c.ChangePct = c.ChangePct.WithKind(*aux.Kind)
	}
	return nil
}

// ChangeResult compares the first and last analysed years.
type ChangeResult struct {
	YearsAnalyzed    []int            `json:"years_analyzed"`
	TotalTransitions int              `json:"total_transitions"`
	MajorChanges     []ClassChange    `json:"major_changes"`
	AreaChanges      []ClassChange    `json:"area_changes,omitempty"`
	ForestChange     *CompositeChange `json:"forest_change,omitempty"`
	UrbanChange      *CompositeChange `json:"urban_change,omitempty"`
	Summary          string           `json:"summary,omitempty"`
}

// Span returns the compared years. ok is false for a degenerate result.
func (r *ChangeResult) Span() (start, end int, ok bool) {
	if len(r.YearsAnalyzed) < 2 {
		return 0, 0, false
	}
	return r.YearsAnalyzed[0], r.YearsAnalyzed[len(r.YearsAnalyzed)-1], true
}

// Comparator computes ChangeResults.
type Comparator struct {
	catalog *Catalog
	forest  []ClassID
	urban   ClassID
}

// NewComparator returns a Comparator using the IGBP forest and urban groups.
func NewComparator(catalog *Catalog) *Comparator {
	return &Comparator{catalog: catalog, forest: ForestClasses(), urban: UrbanClass}
}

// AnalyzeChanges compares tables[years[0]] with tables[years[len(years)-1]].
// Intermediate years are ignored. Fewer than two years yields an empty,
// non-error result.
func (c *Comparator) AnalyzeChanges(tables map[int]*SampleTable, years []int) (*ChangeResult, error) {
	res := &ChangeResult{
		YearsAnalyzed: append([]int(nil), years...),
		MajorChanges:  []ClassChange{},
	}
	if len(years) < 2 {
		return res, nil
	}

	yearStart, yearEnd := years[0], years[len(years)-1]
	start, ok := tables[yearStart]
	if !ok || start == nil {
		return nil, fmt.Errorf("%w: %d", ErrMissingYear, yearStart)
	}
	end, ok := tables[yearEnd]
	if !ok || end == nil {
		return nil, fmt.Errorf("%w: %d", ErrMissingYear, yearEnd)
	}

	changes, err := c.classChanges(start, end)
	if err != nil {
		return nil, err
	}
	res.AreaChanges = changes
	res.TotalTransitions = len(changes)
	for _, ch := range changes {
		if IsMajorChange(ch.ChangePercentage) {
			res.MajorChanges = append(res.MajorChanges, ch)
		}
	}

	res.ForestChange = compositeChange(start.CountAny(c.forest...), end.CountAny(c.forest...))
	res.UrbanChange = compositeChange(start.Count(c.urban), end.Count(c.urban))
	res.Summary = Summarize(res)
	return res, nil
}

func (c *Comparator) classChanges(start, end *SampleTable) ([]ClassChange, error) {
	ids := make(map[ClassID]struct{})
	for id := range start.ClassCounts() {
		ids[id] = struct{}{}
	}
	for id := range end.ClassCounts() {
		ids[id] = struct{}{}
	}

	changes := make([]ClassChange, 0, len(ids))
	for id := range ids {
		class, err := c.catalog.Class(id)
		if err != nil {
			return nil, err
		}
		s, e := start.Count(id), end.Count(id)
		changes = append(changes, ClassChange{
			ClassName:        class.Name,
			PixelsStart:      s,
			PixelsEnd:        e,
			ChangePixels:     e - s,
			ChangePercentage: NewPercentChange(s, e),
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		ai, aj := absInt(changes[i].ChangePixels), absInt(changes[j].ChangePixels)
		if ai != aj {
			return ai > aj
		}
		return changes[i].ClassName < changes[j].ClassName
	})
	return changes, nil
}

func compositeChange(start, end int) *CompositeChange {
	return &CompositeChange{
		Start:     start,
		End:       end,
		Change:    end - start,
		ChangePct: NewPercentChange(start, end),
	}
}

// IsMajorChange reports whether |p| strictly exceeds MajorChangeThreshold.
func IsMajorChange(p PercentChange) bool {
	return math.Abs(p.Float()) > MajorChangeThreshold
}

// Summarize renders the one-line summary of a change result.
func Summarize(r *ChangeResult) string {
	if len(r.MajorChanges) == 0 || r.ForestChange == nil || r.UrbanChange == nil {
		return NoMajorChangesSummary
	}
	return fmt.Sprintf("Forest change: %+.1f%%, Urban change: %+.1f%%",
		r.ForestChange.ChangePct.Float(), r.UrbanChange.ChangePct.Float())
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
