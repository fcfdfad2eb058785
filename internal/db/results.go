package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/landcover.report/internal/landcover"
)

// ErrNoResults is returned when a run has no stored result of the requested kind.
var ErrNoResults = errors.New("no results stored")

// SaveAreaResults stores one AreaResult per year for runID.
func (db *DB) SaveAreaResults(runID string, results map[int]*landcover.AreaResult) error {
	years := make([]int, 0, len(results))
	for y := range results {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		if err := db.SaveAreaResult(runID, results[y]); err != nil {
			return err
		}
	}
	return nil
}

// SaveAreaResult stores r and its per-class statistics in one transaction.
func (db *DB) SaveAreaResult(runID string, r *landcover.AreaResult) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO area_results (run_id, year, total_pixels, total_area_km2, total_classes)
		VALUES (?, ?, ?, ?, ?)
	`, runID, r.Year, r.TotalPixels, r.TotalAreaKm2, r.TotalClasses)
	if err != nil {
		return fmt.Errorf("failed to insert area result for %d: %w", r.Year, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO area_class_stats (run_id, year, class_id, class_name, pixel_count, area_km2, percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare class stats insert: %w", err)
	}
	defer stmt.Close()
	for name, s := range r.ClassStatistics {
		if _, err := stmt.Exec(runID, r.Year, int(s.ClassID), name, s.PixelCount, s.AreaKm2, s.Percentage); err != nil {
			return fmt.Errorf("failed to insert stats for %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// LoadAreaResults returns the stored area results of runID keyed by year.
// The top classes ranking is recomputed from the stored statistics.
func (db *DB) LoadAreaResults(runID string) (map[int]*landcover.AreaResult, error) {
	rows, err := db.Query(`
		SELECT year, total_pixels, total_area_km2, total_classes
		FROM area_results WHERE run_id = ? ORDER BY year
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query area results: %w", err)
	}
	results := make(map[int]*landcover.AreaResult)
	for rows.Next() {
		r := &landcover.AreaResult{
			ClassStatistics:  make(map[string]landcover.ClassStats),
			ClassPercentages: make(map[string]float64),
		}
		if err := rows.Scan(&r.Year, &r.TotalPixels, &r.TotalAreaKm2, &r.TotalClasses); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan area result: %w", err)
		}
		results[r.Year] = r
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: area results for run %s", ErrNoResults, runID)
	}

	rows, err = db.Query(`
		SELECT year, class_id, class_name, pixel_count, area_km2, percentage
		FROM area_class_stats WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query class stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			year, classID int
			name          string
			s             landcover.ClassStats
		)
		if err := rows.Scan(&year, &classID, &name, &s.PixelCount, &s.AreaKm2, &s.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan class stats: %w", err)
		}
		s.ClassID = landcover.ClassID(classID)
		r, ok := results[year]
		if !ok {
			continue
		}
		r.ClassStatistics[name] = s
		r.ClassPercentages[name] = s.Percentage
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, r := range results {
		r.TopClasses = landcover.RankClasses(r.ClassStatistics, landcover.TopClassCount)
	}
	return results, nil
}

type nullComposite struct {
	start, end sql.NullInt64
	pct        sql.NullFloat64
	kind       sql.NullString
}

func compositeArgs(c *landcover.CompositeChange) []any {
	if c == nil {
		return []any{nil, nil, nil, nil}
	}
	return []any{c.Start, c.End, c.ChangePct.Float(), c.ChangePct.Kind.String()}
}

func (n nullComposite) composite() (*landcover.CompositeChange, error) {
	if !n.start.Valid {
		return nil, nil
	}
	pct, err := percentFrom(n.kind.String, n.pct.Float64)
	if err != nil {
		return nil, err
	}
	return &landcover.CompositeChange{
		Start:     int(n.start.Int64),
		End:       int(n.end.Int64),
		Change:    int(n.end.Int64 - n.start.Int64),
		ChangePct: pct,
	}, nil
}

func percentFrom(kind string, v float64) (landcover.PercentChange, error) {
	k, err := landcover.ParsePercentKind(kind)
	if err != nil {
		return landcover.PercentChange{}, err
	}
	if k == landcover.PercentDefined {
		return landcover.DefinedPercent(v), nil
	}
	return landcover.PercentChange{Kind: k}, nil
}

// SaveChangeResult stores r for runID, keeping each percentage's kind.
func (db *DB) SaveChangeResult(runID string, r *landcover.ChangeResult) error {
	years, err := json.Marshal(r.YearsAnalyzed)
	if err != nil {
		return fmt.Errorf("failed to encode years: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	args := []any{runID, string(years), r.TotalTransitions, r.Summary}
	args = append(args, compositeArgs(r.ForestChange)...)
	args = append(args, compositeArgs(r.UrbanChange)...)
	_, err = tx.Exec(`
		INSERT INTO change_results (
			run_id, years_analyzed, total_transitions, summary,
			forest_start, forest_end, forest_pct, forest_pct_kind,
			urban_start, urban_end, urban_pct, urban_pct_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert change result: %w", err)
	}

	for i, c := range r.AreaChanges {
		_, err := tx.Exec(`
			INSERT INTO class_changes (
				run_id, ordinal, class_name, pixels_start, pixels_end,
				change_pixels, change_pct, change_pct_kind, is_major
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, i, c.ClassName, c.PixelsStart, c.PixelsEnd, c.ChangePixels,
			c.ChangePercentage.Float(), c.ChangePercentage.Kind.String(), landcover.IsMajorChange(c.ChangePercentage))
		if err != nil {
			return fmt.Errorf("failed to insert change for %s: %w", c.ClassName, err)
		}
	}
	return tx.Commit()
}

// LoadChangeResult returns the stored change result of runID.
func (db *DB) LoadChangeResult(runID string) (*landcover.ChangeResult, error) {
	var (
		r             landcover.ChangeResult
		years         string
		forest, urban nullComposite
	)
	err := db.QueryRow(`
		SELECT years_analyzed, total_transitions, summary,
		       forest_start, forest_end, forest_pct, forest_pct_kind,
		       urban_start, urban_end, urban_pct, urban_pct_kind
		FROM change_results WHERE run_id = ?
	`, runID).Scan(&years, &r.TotalTransitions, &r.Summary,
		&forest.start, &forest.end, &forest.pct, &forest.kind,
		&urban.start, &urban.end, &urban.pct, &urban.kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: change result for run %s", ErrNoResults, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get change result: %w", err)
	}
	if err := json.Unmarshal([]byte(years), &r.YearsAnalyzed); err != nil {
		return nil, fmt.Errorf("failed to decode years: %w", err)
	}
	if r.ForestChange, err = forest.composite(); err != nil {
		return nil, err
	}
	if r.UrbanChange, err = urban.composite(); err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT class_name, pixels_start, pixels_end, change_pixels, change_pct, change_pct_kind, is_major
		FROM class_changes WHERE run_id = ? ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query class changes: %w", err)
	}
	defer rows.Close()

	r.MajorChanges = []landcover.ClassChange{}
	for rows.Next() {
		var (
			c     landcover.ClassChange
			pct   float64
			kind  string
			major bool
		)
		if err := rows.Scan(&c.ClassName, &c.PixelsStart, &c.PixelsEnd, &c.ChangePixels, &pct, &kind, &major); err != nil {
			return nil, fmt.Errorf("failed to scan class change: %w", err)
		}
		if c.ChangePercentage, err = percentFrom(kind, pct); err != nil {
			return nil, err
		}
		r.AreaChanges = append(r.AreaChanges, c)
		if major {
			r.MajorChanges = append(r.MajorChanges, c)
		}
	}
	return &r, rows.Err()
}
