package landcover

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateYearsMatchesSequential(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{2: 10, 12: 5}),
		2011: tableFromCounts(t, c, 2011, map[ClassID]int{2: 9, 12: 6, 13: 1}),
		2012: tableFromCounts(t, c, 2012, map[ClassID]int{2: 8, 12: 7, 13: 2}),
		2013: tableFromCounts(t, c, 2013, map[ClassID]int{2: 7, 12: 8, 13: 3}),
	}
	agg := NewAggregator(c)

	for _, workers := range []int{0, 1, 3, 16} {
		got, err := AggregateYears(context.Background(), agg, tables, workers)
		require.NoError(t, err)
		require.Len(t, got, len(tables))

		for year, table := range tables {
			want, err := agg.ComputeAreaCoverage(table)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got[year]); diff != "" {
				t.Errorf("workers=%d year=%d (-want +got):\n%s", workers, year, diff)
			}
		}
	}
}

func TestAggregateYearsFailsWhole(t *testing.T) {
	c := IGBP()
	empty, err := NewSampleTable(c, 2011, nil)
	require.NoError(t, err)
	tables := map[int]*SampleTable{
		2010: tableFromCounts(t, c, 2010, map[ClassID]int{2: 1}),
		2011: empty,
	}

	got, err := AggregateYears(context.Background(), NewAggregator(c), tables, 2)
	assert.ErrorIs(t, err, ErrEmptyTable)
	assert.Nil(t, got)
}

func TestAggregateYearsCancelled(t *testing.T) {
	c := IGBP()
	tables := map[int]*SampleTable{2010: tableFromCounts(t, c, 2010, map[ClassID]int{2: 1})}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AggregateYears(ctx, NewAggregator(c), tables, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
