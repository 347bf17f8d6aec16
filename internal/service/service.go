// Package service implements the inference operations shared by the HTTP
// API and the MCP tools.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/usestring/superkart-inference/internal/batch"
	"github.com/usestring/superkart-inference/internal/gateway"
	"github.com/usestring/superkart-inference/internal/query"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/tabular"
	"github.com/usestring/superkart-inference/pkg/types"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Service wires the gateway, the batch coordinator and the jq engine.
type Service struct {
	gw      *gateway.Gateway
	batch   *batch.Coordinator
	query   *query.Engine
	maxRows int
}

// Config holds the service limits.
type Config struct {
	MaxBatchRows int // 0 disables the limit
	Batch        batch.Config
}

// New creates a Service over gw. gw may be nil, in which case every model
// operation fails with model.ErrUnavailable and health reports unhealthy.
func New(gw *gateway.Gateway, cfg Config) *Service {
	s := &Service{gw: gw, query: query.NewEngine(), maxRows: cfg.MaxBatchRows}
	if gw != nil {
		s.batch = batch.New(gw, cfg.Batch)
	}
	return s
}

// MaxBatchRows returns the row limit for batch inputs.
func (s *Service) MaxBatchRows() int {
	return s.maxRows
}

// Registry returns the input schema.
func (s *Service) Registry() *schema.Registry {
	if s.gw == nil {
		return schema.Default()
	}
	return s.gw.Registry()
}

func (s *Service) session() (*gateway.Session, error) {
	if s.gw == nil {
		return nil, &CodedError{Code: types.CodeModelUnavailable, Message: "no model loaded"}
	}
	return s.gw.Session(), nil
}

// PredictSingle validates, transforms and predicts one record. A record
// failing validation returns its types.Violations as the error.
func (s *Service) PredictSingle(ctx context.Context, raw schema.RawRecord) (*types.PredictionResponse, error) {
	res, err := s.TransformSingle(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &types.PredictionResponse{Prediction: res.Prediction, Timestamp: res.Timestamp}, nil
}

// TransformSingle is PredictSingle with the feature vector and the
// normalised input echoed back.
func (s *Service) TransformSingle(ctx context.Context, raw schema.RawRecord) (*types.TransformResponse, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}

	rec, vs := s.gw.Registry().Validate(raw)
	if len(vs) > 0 {
		return nil, vs
	}
	fv, err := sess.Transform(rec)
	if err != nil {
		return nil, err
	}
	y, err := sess.PredictOne(ctx, fv)
	if err != nil {
		return nil, err
	}

	return &types.TransformResponse{
		Prediction:   y,
		ModelVersion: sess.Info().Version,
		Features:     fv,
		InputData:    rec.Raw(),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// PredictBatch predicts every row of tbl. CSV tables must carry every
// required column; JSON rows report missing fields per row instead.
func (s *Service) PredictBatch(ctx context.Context, tbl *tabular.Table, includeFeatures bool) (*types.BatchReport, error) {
	if s.batch == nil {
		return nil, &CodedError{Code: types.CodeModelUnavailable, Message: "no model loaded"}
	}
	if tbl.Records != nil {
		if missing := s.gw.Registry().MissingColumns(tbl.Columns); len(missing) > 0 {
			return nil, &MissingColumnsError{Columns: missing}
		}
	}
	return s.batch.Run(ctx, tbl.Rows, batch.Options{IncludeFeatures: includeFeatures})
}

// ValidateBatch reports data quality over tbl without predicting.
func (s *Service) ValidateBatch(tbl *tabular.Table) types.ValidationReport {
	return s.Registry().Summarize(tbl.Columns, tbl.Rows)
}

// Schema describes the input fields.
func (s *Service) Schema() types.SchemaDocument {
	return s.Registry().Describe()
}

// ModelInfo describes the current model.
func (s *Service) ModelInfo() types.ModelInfo {
	info := types.ModelInfo{
		ModelType:        "none",
		ExpectedFeatures: s.Registry().Names(),
	}
	if s.gw == nil {
		return info
	}
	mi := s.gw.Info()
	info.ModelType = mi.Type
	info.ModelLoaded = true
	info.ModelVersion = mi.Version
	info.Source = mi.Source
	info.LoadedAt = mi.LoadedAt
	return info
}

// Health reports whether a model is being served.
func (s *Service) Health() types.HealthResponse {
	h := types.HealthResponse{
		Status:      StatusUnhealthy,
		ModelStatus: "not loaded",
		Timestamp:   time.Now().UTC(),
	}
	if s.gw != nil {
		h.Status = StatusHealthy
		h.ModelStatus = "loaded"
		h.ModelVersion = s.gw.Info().Version
	}
	return h
}

// Reload reloads the model. On failure the current model keeps serving.
func (s *Service) Reload(ctx context.Context) (types.ModelInfo, error) {
	if s.gw == nil {
		return s.ModelInfo(), &CodedError{Code: types.CodeModelUnavailable, Message: "no model loaded"}
	}
	if _, err := s.gw.Reload(ctx); err != nil {
		return s.ModelInfo(), err
	}
	return s.ModelInfo(), nil
}

// Project runs a jq expression over v.
func (s *Service) Project(ctx context.Context, v any, expression string) (*query.Result, error) {
	res, err := s.query.Project(ctx, v, expression, 0)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ErrInvalidInput(err.Error())
	}
	return res, nil
}
