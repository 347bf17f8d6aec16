// Package batch runs many rows through validation, transformation and
// prediction, isolating failures to the row that caused them.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/transform"
	"github.com/usestring/superkart-inference/pkg/types"
)

// Defaults for Config.
const (
	DefaultWorkers   = 8
	DefaultChunkSize = 256
)

// Config bounds the fan-out of a Coordinator.
type Config struct {
	Workers   int // concurrent validation and prediction goroutines
	ChunkSize int // rows per model call
}

// Coordinator processes batches against a gateway.
type Coordinator struct {
	gw        *gateway.Gateway
	workers   int
	chunkSize int
}

// New creates a Coordinator. Non-positive config values fall back to the defaults.
func New(gw *gateway.Gateway, cfg Config) *Coordinator {
	c := &Coordinator{gw: gw, workers: cfg.Workers, chunkSize: cfg.ChunkSize}
	if c.workers <= 0 {
		c.workers = DefaultWorkers
	}
	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}
	return c
}

// Options controls what Run puts into each row result.
type Options struct {
	IncludeFeatures bool
}

// Run processes rows and returns one result per row in input order. A row
// failing validation, transformation or inference never affects other rows;
// the only error returned is the cancellation of ctx.
func (c *Coordinator) Run(ctx context.Context, rows []schema.RawRecord, opts Options) (*types.BatchReport, error) {
	start := time.Now()
	s := c.gw.Session()
	reg := c.gw.Registry()

	results := make([]types.RowResult, len(rows))
	fvs := make([]types.FeatureVector, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].Row = i + 1

			rec, vs := reg.Validate(row)
			if len(vs) > 0 {
				results[i].Status = types.RowInvalid
				results[i].Violations = vs
				return nil
			}
			fv, err := s.Transform(rec)
			if err != nil {
				results[i].Status = types.RowError
				results[i].Error = rowError(err)
				return nil
			}
			fvs[i] = fv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var ready []int
	for i := range results {
		if results[i].Status == "" {
			ready = append(ready, i)
		}
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for lo := 0; lo < len(ready); lo += c.chunkSize {
		chunk := ready[lo:min(lo+c.chunkSize, len(ready))]
		g.Go(func() error {
			return c.predictChunk(gctx, s, chunk, fvs, results)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.IncludeFeatures {
		for i := range results {
			if results[i].OK() {
				results[i].Features = fvs[i]
			}
		}
	}

	report := buildReport(results)
	slog.Info("batch processed",
		slog.Int("rows", report.TotalRecords),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.String("model_version", s.Info().Version),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return report, nil
}

// predictChunk predicts the rows of one chunk with a single model call. If
// the call fails the rows are retried one by one so only the bad rows fail.
func (c *Coordinator) predictChunk(ctx context.Context, s *gateway.Session, chunk []int, fvs []types.FeatureVector, results []types.RowResult) error {
	batch := make([]types.FeatureVector, len(chunk))
	for j, i := range chunk {
		batch[j] = fvs[i]
	}

	ys, err := s.PredictMany(ctx, batch)
	if err == nil {
		for j, i := range chunk {
			setPrediction(&results[i], ys[j])
		}
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	slog.Debug("chunk prediction failed, retrying rows individually",
		slog.Int("rows", len(chunk)),
		slog.String("error", err.Error()),
	)
	for _, i := range chunk {
		y, err := s.PredictOne(ctx, fvs[i])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			results[i].Status = types.RowError
			results[i].Error = rowError(err)
			continue
		}
		setPrediction(&results[i], y)
	}
	return nil
}

func setPrediction(r *types.RowResult, y float64) {
	r.Status = types.RowOK
	r.Prediction = &y
}

func rowError(err error) *types.ErrorBody {
	var mismatch *transform.SchemaMismatchError
	var inference *model.InferenceError
	switch {
	case errors.As(err, &mismatch):
		return &types.ErrorBody{Code: types.CodeSchemaMismatch, Message: err.Error()}
	case errors.As(err, &inference):
		return &types.ErrorBody{Code: types.CodeModelInference, Message: err.Error()}
	default:
		return &types.ErrorBody{Code: types.CodeInternal, Message: err.Error()}
	}
}

func buildReport(results []types.RowResult) *types.BatchReport {
	failed := roaring.New()
	var ys []float64
	for i, r := range results {
		if r.OK() {
			ys = append(ys, *r.Prediction)
			continue
		}
		failed.Add(uint32(i + 1))
	}

	failedRows := make([]int, 0, failed.GetCardinality())
	it := failed.Iterator()
	for it.HasNext() {
		failedRows = append(failedRows, int(it.Next()))
	}

	return &types.BatchReport{
		Results:      results,
		TotalRecords: len(results),
		Succeeded:    len(ys),
		Failed:       len(failedRows),
		FailedRows:   failedRows,
		Statistics:   Summarize(ys),
		Timestamp:    time.Now().UTC(),
	}
}
