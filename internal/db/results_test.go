package db

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/testutil"
)

func createRun(t *testing.T, db *DB) string {
	t.Helper()
	run := &Run{Years: testutil.ScenarioYears}
	require.NoError(t, db.CreateRun(run))
	return run.ID
}

func TestAreaResults_SaveLoad(t *testing.T) {
	db := newTestDB(t)
	runID := createRun(t, db)

	areas, err := landcover.AggregateYears(context.Background(),
		landcover.NewAggregator(landcover.IGBP()), testutil.Scenario(t), 2)
	require.NoError(t, err)
	require.NoError(t, db.SaveAreaResults(runID, areas))

	got, err := db.LoadAreaResults(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(areas, got); diff != "" {
		t.Errorf("area results mismatch (-want +got):\n%s", diff)
	}
}

func TestAreaResults_DuplicateYear(t *testing.T) {
	db := newTestDB(t)
	runID := createRun(t, db)

	r := &landcover.AreaResult{Year: 2010, TotalPixels: 1, TotalAreaKm2: 0.25, TotalClasses: 1,
		ClassStatistics: map[string]landcover.ClassStats{
			"Grasslands": {ClassID: 10, PixelCount: 1, AreaKm2: 0.25, Percentage: 100},
		}}
	require.NoError(t, db.SaveAreaResult(runID, r))
	assert.Error(t, db.SaveAreaResult(runID, r))
}

func TestLoadAreaResults_None(t *testing.T) {
	db := newTestDB(t)
	_, err := db.LoadAreaResults(createRun(t, db))
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSaveAreaResult_UnknownRun(t *testing.T) {
	db := newTestDB(t)
	r := &landcover.AreaResult{Year: 2010}
	assert.Error(t, db.SaveAreaResult("nope", r), "foreign key should reject unknown run")
}

func TestChangeResult_SaveLoad(t *testing.T) {
	db := newTestDB(t)
	runID := createRun(t, db)

	change, err := landcover.NewComparator(landcover.IGBP()).AnalyzeChanges(testutil.Scenario(t), testutil.ScenarioYears)
	require.NoError(t, err)
	require.NoError(t, db.SaveChangeResult(runID, change))

	got, err := db.LoadChangeResult(runID)
	require.NoError(t, err)
	if diff := cmp.Diff(change, got, cmp.AllowUnexported(landcover.PercentChange{})); diff != "" {
		t.Errorf("change result mismatch (-want +got):\n%s", diff)
	}

	// The appeared sentinel survives storage.
	var snow *landcover.ClassChange
	for i := range got.AreaChanges {
		if got.AreaChanges[i].ClassName == "Snow and Ice" {
			snow = &got.AreaChanges[i]
		}
	}
	require.NotNil(t, snow)
	assert.Equal(t, landcover.PercentAppeared, snow.ChangePercentage.Kind)
}

func TestChangeResult_Degenerate(t *testing.T) {
	db := newTestDB(t)
	runID := createRun(t, db)

	change, err := landcover.NewComparator(landcover.IGBP()).AnalyzeChanges(nil, []int{2020})
	require.NoError(t, err)
	require.NoError(t, db.SaveChangeResult(runID, change))

	got, err := db.LoadChangeResult(runID)
	require.NoError(t, err)
	assert.Equal(t, []int{2020}, got.YearsAnalyzed)
	assert.Equal(t, 0, got.TotalTransitions)
	assert.NotNil(t, got.MajorChanges)
	assert.Empty(t, got.MajorChanges)
	assert.Nil(t, got.AreaChanges)
	assert.Nil(t, got.ForestChange)
	assert.Nil(t, got.UrbanChange)
	assert.Empty(t, got.Summary)
}

func TestLoadChangeResult_None(t *testing.T) {
	db := newTestDB(t)
	_, err := db.LoadChangeResult(createRun(t, db))
	assert.ErrorIs(t, err, ErrNoResults)
}
