package landcover

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// tableFromCounts builds a table for year with counts[id] samples of each
// class, emitted in ascending id order.
func tableFromCounts(t *testing.T, catalog *Catalog, year int, counts map[ClassID]int) *SampleTable {
	t.Helper()

	ids := make([]ClassID, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var samples []Sample
	for _, id := range ids {
		name, ok := catalog.Name(id)
		require.True(t, ok, "class %d not in catalog", id)
		for i := 0; i < counts[id]; i++ {
			samples = append(samples, Sample{
				PixelID:   fmt.Sprintf("P%d_%05d", year, len(samples)),
				ClassID:   id,
				ClassName: name,
				Year:      year,
			})
		}
	}
	table, err := NewSampleTable(catalog, year, samples)
	require.NoError(t, err)
	return table
}

// abcCatalog is a three-class catalog used by the worked examples.
func abcCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Class{{1, "A"}, {2, "B"}, {3, "C"}})
	require.NoError(t, err)
	return c
}
