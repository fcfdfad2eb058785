package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestCSVStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewCSVStore(blob.NewMemory(), landcover.IGBP(), "data")

	table, err := NewGenerator(landcover.IGBP(), 300).Generate(2010)
	require.NoError(t, err)

	info, err := store.Save(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, "data/modis_lc_2010.csv", info.Key)
	assert.Equal(t, "text/csv", info.ContentType)

	ok, err := store.Has(ctx, 2010)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := store.LandCover(ctx, 2010)
	require.NoError(t, err)
	if diff := cmp.Diff(table.Samples(), loaded.Samples()); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	_, err = store.Load(ctx, 2011)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestReadCSV(t *testing.T) {
	const header = "pixel_id,longitude,latitude,land_cover_class,land_cover_name,year\n"
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantLen int
	}{
		{
			name:    "valid",
			body:    header + "P2010_00000,10.5,-3.25,2,Evergreen Broadleaf Forest,2010\nP2010_00001,1,2,13,Urban and Built-up,2010\n",
			wantLen: 2,
		},
		{
			name:    "header only",
			body:    header,
			wantLen: 0,
		},
		{
			name:    "name mismatch",
			body:    header + "P2010_00000,0,0,2,Grasslands,2010\n",
			wantErr: landcover.ErrClassNameMismatch,
		},
		{
			name:    "unknown class",
			body:    header + "P2010_00000,0,0,99,Mystery,2010\n",
			wantErr: landcover.ErrUnknownClass,
		},
		{
			name:    "year mismatch",
			body:    header + "P2011_00000,0,0,10,Grasslands,2011\n",
			wantErr: landcover.ErrYearMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadCSV(strings.NewReader(tt.body), landcover.IGBP(), 2010)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, table.Len())
		})
	}
}

func TestReadCSV_Malformed(t *testing.T) {
	bodies := map[string]string{
		"empty":         "",
		"wrong header":  "id,lon,lat,class,name,year\n",
		"bad longitude": "pixel_id,longitude,latitude,land_cover_class,land_cover_name,year\nP,x,0,10,Grasslands,2010\n",
		"bad class":     "pixel_id,longitude,latitude,land_cover_class,land_cover_name,year\nP,0,0,ten,Grasslands,2010\n",
		"short row":     "pixel_id,longitude,latitude,land_cover_class,land_cover_name,year\nP,0,0\n",
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(body), landcover.IGBP(), 2010)
			assert.Error(t, err)
		})
	}
}

type countingSource struct {
	calls int
	inner Source
}

func (c *countingSource) LandCover(ctx context.Context, year int) (*landcover.SampleTable, error) {
	c.calls++
	return c.inner.LandCover(ctx, year)
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{inner: NewGenerator(landcover.IGBP(), 100)}
	csvStore := NewCSVStore(blob.NewMemory(), landcover.IGBP(), "data")
	cached := NewCached(src, csvStore)

	first, err := cached.LandCover(ctx, 2015)
	require.NoError(t, err)
	second, err := cached.LandCover(ctx, 2015)
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	if diff := cmp.Diff(first.Samples(), second.Samples()); diff != "" {
		t.Errorf("cached table differs (-generated +cached):\n%s", diff)
	}
}

type sizedSource struct {
	countingSource
	gen *Generator
}

func newSizedSource(pixels int) *sizedSource {
	gen := NewGenerator(landcover.IGBP(), pixels)
	return &sizedSource{countingSource: countingSource{inner: gen}, gen: gen}
}

func (s *sizedSource) Pixels() int { return s.gen.Pixels() }

func TestCached_RegeneratesOnPixelChange(t *testing.T) {
	ctx := context.Background()
	csvStore := NewCSVStore(blob.NewMemory(), landcover.IGBP(), "data")

	small := newSizedSource(100)
	first, err := NewCached(small, csvStore).LandCover(ctx, 2015)
	require.NoError(t, err)
	assert.Equal(t, 100, first.Len())

	large := newSizedSource(250)
	cached := NewCached(large, csvStore)
	table, err := cached.LandCover(ctx, 2015)
	require.NoError(t, err)
	assert.Equal(t, 250, table.Len())
	assert.Equal(t, 1, large.calls)

	// The regenerated file replaces the stale one.
	reloaded, err := csvStore.Load(ctx, 2015)
	require.NoError(t, err)
	assert.Equal(t, 250, reloaded.Len())

	_, err = cached.LandCover(ctx, 2015)
	require.NoError(t, err)
	assert.Equal(t, 1, large.calls)
}

func TestCSVStore_Remove(t *testing.T) {
	ctx := context.Background()
	csvStore := NewCSVStore(blob.NewMemory(), landcover.IGBP(), "data")
	table, err := NewGenerator(landcover.IGBP(), 10).Generate(2010)
	require.NoError(t, err)
	_, err = csvStore.Save(ctx, table)
	require.NoError(t, err)

	require.NoError(t, csvStore.Remove(ctx, 2010))
	ok, err := csvStore.Has(ctx, 2010)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, csvStore.Remove(ctx, 2010))
}

type failingSource struct{}

func (failingSource) LandCover(context.Context, int) (*landcover.SampleTable, error) {
	return nil, errors.New("upstream unavailable")
}

func TestCached_SourceError(t *testing.T) {
	cached := NewCached(failingSource{}, NewCSVStore(blob.NewMemory(), landcover.IGBP(), "data"))
	_, err := cached.LandCover(context.Background(), 2010)
	assert.EqualError(t, err, "upstream unavailable")
}
