// Package export writes and reads the JSON result documents of a run.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/banshee-data/landcover.report/internal/blob"
	"github.com/banshee-data/landcover.report/internal/landcover"
)

const (
	// AreaFile holds the per-year area coverage keyed by year.
	AreaFile = "area_statistics.json"
	// ChangeFile holds the first/last year change comparison.
	ChangeFile = "change_analysis.json"
)

// EncodeAreaResults writes results as a JSON object keyed by the decimal year.
func EncodeAreaResults(w io.Writer, results map[int]*landcover.AreaResult) error {
	return encode(w, results)
}

// DecodeAreaResults is the inverse of EncodeAreaResults.
func DecodeAreaResults(r io.Reader) (map[int]*landcover.AreaResult, error) {
	var out map[int]*landcover.AreaResult
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode area results: %w", err)
	}
	return out, nil
}

// EncodeChangeResult writes result as an indented JSON document.
func EncodeChangeResult(w io.Writer, result *landcover.ChangeResult) error {
	return encode(w, result)
}

// DecodeChangeResult is the inverse of EncodeChangeResult. Percentages come
// back as defined values; the sentinel kind is not part of the document.
func DecodeChangeResult(r io.Reader) (*landcover.ChangeResult, error) {
	var out landcover.ChangeResult
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode change result: %w", err)
	}
	return &out, nil
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return nil
}

// Store keeps a run's documents under prefix in a blob store.
type Store struct {
	blobs  blob.Store
	prefix string
}

// NewStore returns a Store writing under prefix (typically results/{run id}).
func NewStore(blobs blob.Store, prefix string) *Store {
	return &Store{blobs: blobs, prefix: prefix}
}

// Key returns the blob key for a document name.
func (s *Store) Key(name string) string { return path.Join(s.prefix, name) }

// WriteAreaResults stores results as AreaFile.
func (s *Store) WriteAreaResults(ctx context.Context, results map[int]*landcover.AreaResult) (blob.Info, error) {
	var buf bytes.Buffer
	if err := EncodeAreaResults(&buf, results); err != nil {
		return blob.Info{}, err
	}
	return s.put(ctx, AreaFile, &buf)
}

// WriteChangeResult stores result as ChangeFile.
func (s *Store) WriteChangeResult(ctx context.Context, result *landcover.ChangeResult) (blob.Info, error) {
	var buf bytes.Buffer
	if err := EncodeChangeResult(&buf, result); err != nil {
		return blob.Info{}, err
	}
	return s.put(ctx, ChangeFile, &buf)
}

// ReadAreaResults loads AreaFile.
func (s *Store) ReadAreaResults(ctx context.Context) (map[int]*landcover.AreaResult, error) {
	rc, err := s.get(ctx, AreaFile)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return DecodeAreaResults(rc)
}

// ReadChangeResult loads ChangeFile.
func (s *Store) ReadChangeResult(ctx context.Context) (*landcover.ChangeResult, error) {
	rc, err := s.get(ctx, ChangeFile)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return DecodeChangeResult(rc)
}

func (s *Store) put(ctx context.Context, name string, r io.Reader) (blob.Info, error) {
	info, err := s.blobs.Put(ctx, s.Key(name), r, blob.PutOptions{ContentType: "application/json"})
	if err != nil {
		return blob.Info{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return info, nil
}

func (s *Store) get(ctx context.Context, name string) (io.ReadCloser, error) {
	_, rc, err := s.blobs.Get(ctx, s.Key(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return rc, nil
}
