package landcover

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeChangesWorkedExample(t *testing.T) {
	c := abcCatalog(t)
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{1: 80, 2: 20}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{1: 60, 2: 20, 3: 20}),
	}

	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)

	require.Len(t, res.AreaChanges, 3)
	assert.Equal(t, 3, res.TotalTransitions)

	a, cc, b := res.AreaChanges[0], res.AreaChanges[1], res.AreaChanges[2]
	assert.Equal(t, "A", a.ClassName)
	assert.Equal(t, -20, a.ChangePixels)
	assert.Equal(t, -25.0, a.ChangePercentage.Float())

	assert.Equal(t, "C", cc.ClassName)
	assert.Equal(t, 0, cc.PixelsStart)
	assert.Equal(t, 20, cc.ChangePixels)
	assert.Equal(t, PercentAppeared, cc.ChangePercentage.Kind)
	assert.Equal(t, 100.0, cc.ChangePercentage.Float())

	assert.Equal(t, "B", b.ClassName)
	assert.Equal(t, 0, b.ChangePixels)
	assert.Equal(t, 0.0, b.ChangePercentage.Float())

	require.Len(t, res.MajorChanges, 2)
	assert.Equal(t, "A", res.MajorChanges[0].ClassName)
	assert.Equal(t, "C", res.MajorChanges[1].ClassName)
}

func TestAnalyzeChangesDegenerate(t *testing.T) {
	c := abcCatalog(t)
	tables := map[int]*SampleTable{2020: tableFromCounts(t, c, 2020, map[ClassID]int{1: 1})}

	for _, years := range [][]int{nil, {}, {2020}} {
		res, err := NewComparator(c).AnalyzeChanges(tables, years)
		require.NoError(t, err)
		assert.Equal(t, 0, res.TotalTransitions)
		assert.NotNil(t, res.MajorChanges)
		assert.Empty(t, res.MajorChanges)
		assert.Nil(t, res.ForestChange)
		assert.Empty(t, res.Summary)

		_, _, ok := res.Span()
		assert.False(t, ok)
	}
}

func TestAnalyzeChangesDegenerateJSON(t *testing.T) {
	res, err := NewComparator(IGBP()).AnalyzeChanges(nil, []int{2020})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"years_analyzed":[2020],"total_transitions":0,"major_changes":[]}`, string(b))
}

func TestAnalyzeChangesUsesFirstAndLastYear(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{12: 10}),
		2015: tableFromCounts(t, c, 2015, map[ClassID]int{16: 500}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{12: 12}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2015, 2020})
	require.NoError(t, err)

	require.Len(t, res.AreaChanges, 1)
	assert.Equal(t, "Croplands", res.AreaChanges[0].ClassName)
	assert.Equal(t, []int{2010, 2015, 2020}, res.YearsAnalyzed)

	start, end, ok := res.Span()
	require.True(t, ok)
	assert.Equal(t, 2010, start)
	assert.Equal(t, 2020, end)
}

func TestAnalyzeChangesMissingYear(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{2010: tableFromCounts(t, c, 2010, map[ClassID]int{12: 1})}

	_, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	assert.ErrorIs(t, err, ErrMissingYear)
	_, err = NewComparator(c).AnalyzeChanges(tables, []int{2005, 2010})
	assert.ErrorIs(t, err, ErrMissingYear)
}

func TestMajorChangeThresholdBoundary(t *testing.T) {
	tests := []struct {
		pct  float64
		want bool
	}{
		{2.0, false},
		{-2.0, false},
		{2.0001, true},
		{-2.0001, true},
		{0, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMajorChange(DefinedPercent(tt.pct)), "pct %v", tt.pct)
	}

	// 100 -> 102 is exactly +2.0% and must not be reported.
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{12: 100, 10: 10000}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{12: 102, 10: 10201}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)
	require.Len(t, res.MajorChanges, 1)
	assert.Equal(t, "Grasslands", res.MajorChanges[0].ClassName)
}

func TestCompositesZeroStart(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{16: 10}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{16: 5, 1: 2, 5: 3}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)

	require.NotNil(t, res.ForestChange)
	assert.Equal(t, CompositeChange{Start: 0, End: 5, Change: 5, ChangePct: NewPercentChange(0, 5)}, *res.ForestChange)
	assert.Equal(t, PercentAppeared, res.ForestChange.ChangePct.Kind)
	assert.Equal(t, 100.0, res.ForestChange.ChangePct.Float())

	require.NotNil(t, res.UrbanChange)
	assert.Equal(t, PercentAbsent, res.UrbanChange.ChangePct.Kind)
	assert.Equal(t, 0.0, res.UrbanChange.ChangePct.Float())

	assert.Equal(t, "Forest change: +100.0%, Urban change: +0.0%", res.Summary)
}

func TestCompositesAndSummary(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{1: 600, 4: 400, 13: 100, 12: 900}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{1: 580, 4: 388, 13: 115, 12: 917}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)

	assert.Equal(t, &CompositeChange{Start: 1000, End: 968, Change: -32, ChangePct: DefinedPercent(-3.2)}, res.ForestChange)
	assert.Equal(t, 100, res.UrbanChange.Start)
	assert.Equal(t, 115, res.UrbanChange.End)
	assert.InDelta(t, 15.0, res.UrbanChange.ChangePct.Float(), 1e-12)
	assert.Equal(t, "Forest change: -3.2%, Urban change: +15.0%", res.Summary)
}

func TestSummaryWithoutMajorChanges(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{12: 1000, 13: 100}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{12: 1010, 13: 101}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)
	assert.Empty(t, res.MajorChanges)
	assert.Equal(t, NoMajorChangesSummary, res.Summary)
}

func TestChangeRecordsComeFromInputs(t *testing.T) {
	c := IGBP()
	start := tableFromCounts(t, c, 2010, map[ClassID]int{2: 5, 8: 3, 17: 9})
	end := tableFromCounts(t, c, 2020, map[ClassID]int{2: 4, 9: 6, 17: 9})
	res, err := NewComparator(c).AnalyzeChanges(map[int]*SampleTable{2010: start, 2020: end}, []int{2010, 2020})
	require.NoError(t, err)

	for _, ch := range res.AreaChanges {
		id, ok := c.ID(ch.ClassName)
		require.True(t, ok)
		assert.True(t, start.Count(id) > 0 || end.Count(id) > 0, "class %s in neither table", ch.ClassName)
		assert.Equal(t, start.Count(id), ch.PixelsStart)
		assert.Equal(t, end.Count(id), ch.PixelsEnd)
	}
	for i := 1; i < len(res.AreaChanges); i++ {
		assert.GreaterOrEqual(t, absInt(res.AreaChanges[i-1].ChangePixels), absInt(res.AreaChanges[i].ChangePixels))
	}
}

func TestChangeResultJSONFieldNames(t *testing.T) {
	c := abcCatalog(t)
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{1: 80, 2: 20}),
		2020: tableFromCounts(t, c, 2020, map[ClassID]int{1: 60, 2: 20, 3: 20}),
	}
	res, err := NewComparator(c).AnalyzeChanges(tables, []int{2010, 2020})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &doc))
	for _, key := range []string{"years_analyzed", "total_transitions", "major_changes", "area_changes", "forest_change", "urban_change", "summary"} {
		assert.Contains(t, doc, key)
	}

	var changes []map[string]any
	require.NoError(t, json.Unmarshal(doc["area_changes"], &changes))
	assert.Equal(t, map[string]any{
		"class_name":             "A",
		"pixels_start":           80.0,
		"pixels_end":             60.0,
		"change_pixels":          -20.0,
		"change_percentage":      -25.0,
		"change_percentage_kind": "defined",
	}, changes[0])
	assert.Equal(t, 100.0, changes[1]["change_percentage"])
	assert.Equal(t, "appeared", changes[1]["change_percentage_kind"])
}

func TestChangeJSONKeepsPercentKind(t *testing.T) {
	res := &ChangeResult{
		YearsAnalyzed: []int{2010, 2020},
		MajorChanges:  []ClassChange{},
		AreaChanges: []ClassChange{
			{ClassName: "Snow and Ice", PixelsEnd: 10, ChangePixels: 10, ChangePercentage: NewPercentChange(0, 10)},
			{ClassName: "Croplands", PixelsStart: 80, PixelsEnd: 60, ChangePixels: -20, ChangePercentage: NewPercentChange(80, 60)},
		},
		ForestChange: &CompositeChange{End: 5, Change: 5, ChangePct: NewPercentChange(0, 5)},
		UrbanChange:  &CompositeChange{ChangePct: NewPercentChange(0, 0)},
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"change_pct":100,"change_pct_kind":"appeared"`)
	assert.Contains(t, string(b), `"change_pct":0,"change_pct_kind":"absent"`)

	var got ChangeResult
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, PercentAppeared, got.AreaChanges[0].ChangePercentage.Kind)
	assert.Equal(t, 100.0, got.AreaChanges[0].ChangePercentage.Float())
	assert.Equal(t, DefinedPercent(-25), got.AreaChanges[1].ChangePercentage)
	assert.Equal(t, PercentAppeared, got.ForestChange.ChangePct.Kind)
	assert.Equal(t, 5, got.ForestChange.End)
	assert.Equal(t, PercentAbsent, got.UrbanChange.ChangePct.Kind)
}

func TestChangeJSONWithoutKind(t *testing.T) {
	var c ClassChange
	require.NoError(t, json.Unmarshal([]byte(`{"class_name":"Croplands","change_percentage":12.5}`), &c))
	assert.Equal(t, "Croplands", c.ClassName)
	assert.Equal(t, PercentDefined, c.ChangePercentage.Kind)
	assert.Equal(t, 12.5, c.ChangePercentage.Float())

	err := json.Unmarshal([]byte(`{"change_percentage":1,"change_percentage_kind":"sideways"}`), &c)
	assert.Error(t, err)
}
