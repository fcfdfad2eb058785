// Package retriever produces per-year land-cover sample tables, either by
// synthesising MODIS-like global samples or by reading cached CSV files.
package retriever

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/landcover.report/internal/landcover"
)

// DefaultPixels is the number of samples generated per year.
const DefaultPixels = 50000

// Source yields the sample table for a year.
type Source interface {
	LandCover(ctx context.Context, year int) (*landcover.SampleTable, error)
}

// zone is a latitude band with its class mix.
type zone struct {
	classes []landcover.ClassID
	weights []float64
}

var (
	zones = []zone{tropical, temperate, boreal, polar}

	tropical  = zone{classes: []landcover.ClassID{2, 8, 9, 12, 17}, weights: []float64{0.3, 0.2, 0.2, 0.2, 0.1}}
	temperate = zone{classes: []landcover.ClassID{4, 5, 10, 12, 13}, weights: []float64{0.25, 0.15, 0.25, 0.25, 0.1}}
	boreal    = zone{classes: []landcover.ClassID{1, 3, 6, 10, 15}, weights: []float64{0.35, 0.15, 0.2, 0.2, 0.1}}
	polar     = zone{classes: []landcover.ClassID{15, 16, 11}, weights: []float64{0.5, 0.3, 0.2}}

	// Forest pixels lost in a year become cropland or urban.
	deforestedTo      = []landcover.ClassID{12, landcover.UrbanClass}
	deforestedWeights = []float64{0.7, 0.3}
)

// zoneFor returns the index into zones for a latitude.
func zoneFor(lat float64) int {
	switch a := math.Abs(lat); {
	case a <= 23:
		return 0
	case a <= 45:
		return 1
	case a <= 60:
		return 2
	default:
		return 3
	}
}

// DeforestationRate is the probability that a forest pixel is converted in
// year. It grows by one point per year after 2010 and is clamped to [0, 1].
func DeforestationRate(year int) float64 {
	p := 0.02 + float64(year-2010)*0.01
	return math.Min(1, math.Max(0, p))
}

// Generator synthesises a deterministic global sample for each year. The
// same year always yields the same table.
type Generator struct {
	catalog *landcover.Catalog
	pixels  int
}

// NewGenerator returns a generator producing pixels samples per year. A
// non-positive count means DefaultPixels.
func NewGenerator(catalog *landcover.Catalog, pixels int) *Generator {
	if pixels <= 0 {
		pixels = DefaultPixels
	}
	return &Generator{catalog: catalog, pixels: pixels}
}

// Pixels returns the per-year sample count.
func (g *Generator) Pixels() int { return g.pixels }

// LandCover implements Source.
func (g *Generator) LandCover(ctx context.Context, year int) (*landcover.SampleTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Generate(year)
}

// Generate builds the table for year. Coordinates are uniform over
// longitude [-180, 180) and latitude [-60, 80); the class is drawn from the
// latitude band's mix and forest pixels then drift to cropland or urban at
// DeforestationRate(year).
func (g *Generator) Generate(year int) (*landcover.SampleTable, error) {
	src := rand.NewPCG(uint64(year), uint64(year))
	lon := distuv.Uniform{Min: -180, Max: 180, Src: src}
	lat := distuv.Uniform{Min: -60, Max: 80, Src: src}
	draws := make([]distuv.Categorical, len(zones))
	for i, z := range zones {
		draws[i] = distuv.NewCategorical(z.weights, src)
	}

	samples := make([]landcover.Sample, g.pixels)
	for i := range samples {
		samples[i].Longitude = lon.Rand()
		samples[i].Latitude = lat.Rand()
	}
	for i := range samples {
		z := zoneFor(samples[i].Latitude)
		samples[i].ClassID = zones[z].classes[int(draws[z].Rand())]
	}

	forest := make(map[landcover.ClassID]bool)
	for _, id := range landcover.ForestClasses() {
		forest[id] = true
	}
	loss := distuv.Bernoulli{P: DeforestationRate(year), Src: src}
	dest := distuv.NewCategorical(deforestedWeights, src)
	for i := range samples {
		if forest[samples[i].ClassID] && loss.Rand() == 1 {
			samples[i].ClassID = deforestedTo[int(dest.Rand())]
		}
	}

	for i := range samples {
		name, ok := g.catalog.Name(samples[i].ClassID)
		if !ok {
			return nil, fmt.Errorf("%w: generated class %d", landcover.ErrUnknownClass, samples[i].ClassID)
		}
		samples[i].PixelID = fmt.Sprintf("P%d_%05d", year, i)
		samples[i].ClassName = name
		samples[i].Year = year
	}
	return landcover.NewSampleTable(g.catalog, year, samples)
}
