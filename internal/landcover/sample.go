package landcover

import "fmt"

// Sample is one labelled pixel observation.
type Sample struct {
	PixelID   string  `json:"pixel_id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	ClassID   ClassID `json:"land_cover_class"`
	ClassName string  `json:"land_cover_name"`
	Year      int     `json:"year"`
}

// SampleTable is the validated, read-only set of samples for one year.
type SampleTable struct {
	year    int
	samples []Sample
	counts  map[ClassID]int
}

// NewSampleTable validates samples against catalog and returns a table that
// owns a private copy of them. An empty sample slice is a valid table; the
// area computation rejects it later.
func NewSampleTable(catalog *Catalog, year int, samples []Sample) (*SampleTable, error) {
	if catalog == nil {
		return nil, fmt.Errorf("nil class catalog")
	}
	t := &SampleTable{
		year:    year,
		samples: make([]Sample, len(samples)),
		counts:  make(map[ClassID]int),
	}
	for i, s := range samples {
		if s.Year != year {
			return nil, fmt.Errorf("%w: sample %d has year %d, table year %d", ErrYearMismatch, i, s.Year, year)
		}
		name, ok := catalog.Name(s.ClassID)
		if !ok {
			return nil, fmt.Errorf("%w: sample %d has class %d", ErrUnknownClass, i, s.ClassID)
		}
		if s.ClassName != name {
			return nil, fmt.Errorf("%w: sample %d class %d named %q, want %q", ErrClassNameMismatch, i, s.ClassID, s.ClassName, name)
		}
		t.samples[i] = s
		t.counts[s.ClassID]++
	}
	return t, nil
}

// Year returns the table's year.
func (t *SampleTable) Year() int { return t.year }

// Len returns the number of samples.
func (t *SampleTable) Len() int { return len(t.samples) }

// Samples returns a copy of the samples in input order.
func (t *SampleTable) Samples() []Sample {
	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Count returns the number of samples labelled id.
func (t *SampleTable) Count(id ClassID) int { return t.counts[id] }

// CountAny returns the number of samples whose class is one of ids.
func (t *SampleTable) CountAny(ids ...ClassID) int {
	n := 0
	for _, id := range ids {
		n += t.counts[id]
	}
	return n
}

// ClassCounts returns per-class sample counts for the classes present.
func (t *SampleTable) ClassCounts() map[ClassID]int {
	out := make(map[ClassID]int, len(t.counts))
	for id, n := range t.counts {
		out[id] = n
	}
	return out
}
