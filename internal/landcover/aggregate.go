package landcover

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AggregateYears runs ComputeAreaCoverage for every table using at most
// workers goroutines. Any failure cancels the remaining work and no partial
// map is returned.
func AggregateYears(ctx context.Context, agg *Aggregator, tables map[int]*SampleTable, workers int) (map[int]*AreaResult, error) {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	results := make(map[int]*AreaResult, len(tables))
	for year, table := range tables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := agg.ComputeAreaCoverage(table)
			if err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			mu.Lock()
			results[year] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
