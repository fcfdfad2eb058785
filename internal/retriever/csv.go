package retriever

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/monitoring"
)

var csvHeader = []string{"pixel_id", "longitude", "latitude", "land_cover_class", "land_cover_name", "year"}

// CSVStore reads and writes one sample CSV per year under a key prefix.
type CSVStore struct {
	store   blob.Store
	catalog *landcover.Catalog
	prefix  string
}

// NewCSVStore returns a CSVStore writing modis_lc_{year}.csv files under prefix.
func NewCSVStore(store blob.Store, catalog *landcover.Catalog, prefix string) *CSVStore {
	return &CSVStore{store: store, catalog: catalog, prefix: prefix}
}

// Key returns the blob key for year.
func (c *CSVStore) Key(year int) string {
	return path.Join(c.prefix, fmt.Sprintf("modis_lc_%d.csv", year))
}

// Has reports whether a CSV exists for year.
func (c *CSVStore) Has(ctx context.Context, year int) (bool, error) {
	return blob.Exists(ctx, c.store, c.Key(year))
}

// Save writes table as CSV.
func (c *CSVStore) Save(ctx context.Context, table *landcover.SampleTable) (blob.Info, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return blob.Info{}, err
	}
	info, err := c.store.Put(ctx, c.Key(table.Year()), &buf, blob.PutOptions{ContentType: "text/csv"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("failed to save samples for %d: %w", table.Year(), err)
	}
	monitoring.Logf("saved %d samples to %s", table.Len(), info.Key)
	return info, nil
}

// Load reads and validates the CSV for year.
func (c *CSVStore) Load(ctx context.Context, year int) (*landcover.SampleTable, error) {
	_, rc, err := c.store.Get(ctx, c.Key(year))
	if err != nil {
		return nil, fmt.Errorf("failed to open samples for %d: %w", year, err)
	}
	defer rc.Close()
	return ReadCSV(rc, c.catalog, year)
}

// Remove deletes the CSV for year. A missing file is not an error.
func (c *CSVStore) Remove(ctx context.Context, year int) error {
	if _, err := c.store.Delete(ctx, c.Key(year)); err != nil {
		return fmt.Errorf("failed to remove samples for %d: %w", year, err)
	}
	return nil
}

// LandCover implements Source by reading the stored CSV.
func (c *CSVStore) LandCover(ctx context.Context, year int) (*landcover.SampleTable, error) {
	return c.Load(ctx, year)
}

// WriteCSV writes table in the sample CSV layout with a header row.
func WriteCSV(w io.Writer, table *landcover.SampleTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range table.Samples() {
		rec := []string{
			s.PixelID,
			strconv.FormatFloat(s.Longitude, 'f', -1, 64),
			strconv.FormatFloat(s.Latitude, 'f', -1, 64),
			strconv.Itoa(int(s.ClassID)),
			s.ClassName,
			strconv.Itoa(s.Year),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a sample CSV and validates it as the table for year.
func ReadCSV(r io.Reader, catalog *landcover.Catalog, year int) (*landcover.SampleTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i, header[i], name)
		}
	}

	var samples []landcover.Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		s, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return landcover.NewSampleTable(catalog, year, samples)
}

func parseSample(rec []string) (landcover.Sample, error) {
	lon, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return landcover.Sample{}, fmt.Errorf("invalid longitude %q: %w", rec[1], err)
	}
	lat, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return landcover.Sample{}, fmt.Errorf("invalid latitude %q: %w", rec[2], err)
	}
	class, err := strconv.Atoi(rec[3])
	if err != nil {
		return landcover.Sample{}, fmt.Errorf("invalid class %q: %w", rec[3], err)
	}
	year, err := strconv.Atoi(rec[5])
	if err != nil {
		return landcover.Sample{}, fmt.Errorf("invalid year %q: %w", rec[5], err)
	}
	return landcover.Sample{
		PixelID:   rec[0],
		Longitude: lon,
		Latitude:  lat,
		ClassID:   landcover.ClassID(class),
		ClassName: rec[4],
		Year:      year,
	}, nil
}

// Cached serves tables from csv when present and otherwise asks src,
// saving what it returns for the next run. When src reports a fixed sample
// count, cached files of another size are regenerated.
type Cached struct {
	src    Source
	csv    *CSVStore
	pixels int // 0 accepts any cached size
}

// NewCached wraps src with a CSV cache.
func NewCached(src Source, csv *CSVStore) *Cached {
	c := &Cached{src: src, csv: csv}
	if s, ok := src.(interface{ Pixels() int }); ok {
		c.pixels = s.Pixels()
	}
	return c
}

// LandCover implements Source.
func (c *Cached) LandCover(ctx context.Context, year int) (*landcover.SampleTable, error) {
	ok, err := c.csv.Has(ctx, year)
	if err != nil {
		return nil, err
	}
	if ok {
		table, err := c.csv.Load(ctx, year)
		if err != nil {
			return nil, err
		}
		if c.pixels == 0 || table.Len() == c.pixels {
			monitoring.Logf("loaded %d cached samples for %d", table.Len(), year)
			return table, nil
		}
		monitoring.Logf("cached samples for %d have %d rows, want %d; regenerating", year, table.Len(), c.pixels)
		if err := c.csv.Remove(ctx, year); err != nil {
			return nil, err
		}
	}
	table, err := c.src.LandCover(ctx, year)
	if err != nil {
		return nil, err
	}
	if _, err := c.csv.Save(ctx, table); err != nil && !errors.Is(err, blob.ErrExists) {
		return nil, err
	}
	return table, nil
}
