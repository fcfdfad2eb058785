// Package pipeline runs one land cover analysis end to end: retrieve the
// configured years, aggregate them, compare the first and last year, then
// export, store and render the results.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/config"
	"github.com/banshee-data/landcover.report/internal/db"
	"github.com/banshee-data/landcover.report/internal/export"
	"github.com/banshee-data/landcover.report/internal/landcover"
	"github.com/banshee-data/landcover.report/internal/monitoring"
	"github.com/banshee-data/landcover.report/internal/render"
	"github.com/banshee-data/landcover.report/internal/retriever"
	"github.com/banshee-data/landcover.report/internal/timeutil"
	"github.com/banshee-data/landcover.report/internal/version"
)

// ErrNoData is returned when none of the configured years could be retrieved.
var ErrNoData = errors.New("no land cover data retrieved")

// Report summarises a finished run.
type Report struct {
	RunID   string
	Years   []int // years with data, in configured order
	Skipped []int // years whose retrieval failed
	Areas   map[int]*landcover.AreaResult
	Change  *landcover.ChangeResult
	// Artifacts are the blob keys written by the run.
	Artifacts []string
}

// Runner wires the pipeline's collaborators. DB, Metrics and Renderer are
// optional.
type Runner struct {
	Config   *config.Config
	Source   retriever.Source
	Blobs    blob.Store
	DB       *db.DB
	Metrics  *monitoring.Metrics
	Renderer *render.Renderer
	Catalog  *landcover.Catalog
	Clock    timeutil.Clock
}

// New returns a Runner over the IGBP catalog with the default renderer.
func New(cfg *config.Config, source retriever.Source, blobs blob.Store, database *db.DB, metrics *monitoring.Metrics) *Runner {
	return &Runner{
		Config:   cfg,
		Source:   source,
		Blobs:    blobs,
		DB:       database,
		Metrics:  metrics,
		Renderer: render.NewRenderer(cfg.GetAreaUnits()),
		Catalog:  landcover.IGBP(),
		Clock:    timeutil.RealClock{},
	}
}

// OpenBlobs opens the blob store named by cfg.Storage.
func OpenBlobs(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	s3 := cfg.Storage.S3
	return blob.Open(ctx, blob.Options{
		Driver: blob.Driver(cfg.GetBlobDriver()),
		Root:   cfg.GetBlobRoot(),
		S3: blob.S3Config{
			Region:          s3.Region,
			Bucket:          s3.Bucket,
			Endpoint:        s3.Endpoint,
			AccessKeyID:     s3.AccessKeyID,
			SecretAccessKey: s3.SecretAccessKey,
			PathStyle:       s3.PathStyle,
		},
	})
}

// NewSource returns the synthetic generator, fronted by the CSV cache in
// blobs unless caching is disabled.
func NewSource(cfg *config.Config, blobs blob.Store, catalog *landcover.Catalog) retriever.Source {
	gen := retriever.NewGenerator(catalog, cfg.GetPixels())
	if cfg.DataSources.NoCache {
		return gen
	}
	return retriever.NewCached(gen, retriever.NewCSVStore(blobs, catalog, cfg.GetDataPrefix()))
}

// PlotsPrefix is the blob prefix holding a run's charts.
func PlotsPrefix(cfg *config.Config, runID string) string {
	return path.Join(cfg.GetPlotsPrefix(), runID)
}

// ResultsPrefix is the blob prefix holding a run's JSON documents.
func ResultsPrefix(cfg *config.Config, runID string) string {
	return path.Join(cfg.GetResultsPrefix(), runID)
}

// Run executes the pipeline once.
func (r *Runner) Run(ctx context.Context) (rep *Report, err error) {
	years := r.Config.GetYears()
	began := r.Clock.Now()
	run := &db.Run{
		ID:        uuid.New().String(),
		Years:     years,
		Pixels:    r.Config.GetPixels(),
		Version:   version.Version,
		StartedAt: began.UTC(),
	}
	if r.DB != nil {
		if err := r.DB.CreateRun(run); err != nil {
			return nil, err
		}
	}
	defer func() {
		r.Metrics.RunFinished(err)
		if r.DB == nil {
			return
		}
		if ferr := r.DB.FinishRun(run.ID, err); ferr != nil {
			monitoring.Logf("failed to record outcome of run %s: %v", run.ID, ferr)
		}
	}()

	monitoring.Logf("run %s: analysing years %v", run.ID, years)
	rep = &Report{RunID: run.ID}

	tables, err := r.retrieve(ctx, years, rep)
	if err != nil {
		return nil, err
	}

	done := r.stage(monitoring.StageAggregate)
	rep.Areas, err = landcover.AggregateYears(ctx, landcover.NewAggregator(r.Catalog), tables, r.Config.GetWorkers())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate: %w", err)
	}
	done()
	for _, t := range tables {
		r.Metrics.AddSamples(t.Len())
	}

	done = r.stage(monitoring.StageCompare)
	rep.Change, err = landcover.NewComparator(r.Catalog).AnalyzeChanges(tables, rep.Years)
	if err != nil {
		return nil, fmt.Errorf("failed to compare years: %w", err)
	}
	done()

	if err := r.persist(ctx, rep); err != nil {
		return nil, err
	}
	if !r.Config.Visualization.Disabled && r.Renderer != nil {
		if err := r.render(ctx, rep); err != nil {
			return nil, err
		}
	}

	monitoring.Logf("run %s: %d years analysed in %v, %s", run.ID, len(rep.Years), r.Clock.Since(began).Round(time.Millisecond), SummaryLine(rep.Change))
	return rep, nil
}

// SummaryLine is the change summary for logs. Results without a year span
// carry no summary and read as having no major changes.
func SummaryLine(change *landcover.ChangeResult) string {
	if change == nil || change.Summary == "" {
		return landcover.NoMajorChangesSummary
	}
	return change.Summary
}

// stage starts timing name; the returned func records it.
func (r *Runner) stage(name string) func() {
	start := r.Clock.Now()
	return func() { r.Metrics.ObserveStage(name, r.Clock.Since(start)) }
}

// retrieve loads every year, skipping the ones the source cannot serve.
func (r *Runner) retrieve(ctx context.Context, years []int, rep *Report) (map[int]*landcover.SampleTable, error) {
	defer r.stage(monitoring.StageRetrieve)()

	tables := make(map[int]*landcover.SampleTable, len(years))
	for _, y := range years {
		t, err := r.Source.LandCover(ctx, y)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			monitoring.Logf("skipping year %d: %v", y, err)
			rep.Skipped = append(rep.Skipped, y)
			continue
		}
		tables[y] = t
		rep.Years = append(rep.Years, y)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w for years %v", ErrNoData, years)
	}
	return tables, nil
}

func (r *Runner) persist(ctx context.Context, rep *Report) error {
	defer r.stage(monitoring.StagePersist)()

	docs := export.NewStore(r.Blobs, ResultsPrefix(r.Config, rep.RunID))
	info, err := docs.WriteAreaResults(ctx, rep.Areas)
	if err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, info.Key)
	info, err = docs.WriteChangeResult(ctx, rep.Change)
	if err != nil {
		return err
	}
	rep.Artifacts = append(rep.Artifacts, info.Key)

	if r.DB == nil {
		return nil
	}
	if err := r.DB.SaveAreaResults(rep.RunID, rep.Areas); err != nil {
		return err
	}
	return r.DB.SaveChangeResult(rep.RunID, rep.Change)
}

func (r *Runner) render(ctx context.Context, rep *Report) error {
	defer r.stage(monitoring.StageRender)()

	arts, err := r.Renderer.Render(ctx, rep.Areas, rep.Change)
	if err != nil {
		return err
	}
	prefix := PlotsPrefix(r.Config, rep.RunID)
	for _, a := range arts {
		info, err := r.Blobs.Put(ctx, path.Join(prefix, a.Name), bytes.NewReader(a.Data), blob.PutOptions{ContentType: a.ContentType})
		if err != nil {
			return fmt.Errorf("failed to store %s: %w", a.Name, err)
		}
		rep.Artifacts = append(rep.Artifacts, info.Key)
	}
	return nil
}
