// Package gateway owns the loaded model and is the only path from a feature
// vector to a prediction.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/usestring/superkart-inference/internal/cache"
	"github.com/usestring/superkart-inference/internal/model"
	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/transform"
	"github.com/usestring/superkart-inference/pkg/types"
)

// binding pairs a model instance with the transformer built from its encoding.
// Bindings are never mutated; a reload swaps in a new one.
type binding struct {
	inst *model.Instance
	tf   *transform.Transformer
}

// Gateway holds the current model. It is safe for concurrent use.
type Gateway struct {
	reg     *schema.Registry
	loader  model.Loader
	cache   *cache.PredictionCache
	current atomic.Pointer[binding]
	reload  sync.Mutex
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCache caches predictions per model version and feature vector.
func WithCache(c *cache.PredictionCache) Option {
	return func(g *Gateway) {
		g.cache = c
	}
}

// New loads the model and binds it to reg. The returned error wraps
// model.ErrUnavailable when the model cannot be loaded or does not accept
// the registry's features.
func New(ctx context.Context, reg *schema.Registry, loader model.Loader, opts ...Option) (*Gateway, error) {
	g := &Gateway{reg: reg, loader: loader}
	for _, opt := range opts {
		opt(g)
	}

	b, err := g.bind(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}
	g.current.Store(b)

	slog.Info("model loaded",
		slog.String("type", b.inst.Info.Type),
		slog.String("version", b.inst.Info.Version),
		slog.String("source", b.inst.Info.Source),
	)
	return g, nil
}

func (g *Gateway) bind(ctx context.Context) (*binding, error) {
	inst, err := g.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if inst == nil || inst.Predictor == nil {
		return nil, errors.New("loader returned no model")
	}

	if fl, ok := inst.Predictor.(model.FeatureLister); ok {
		if got, want := fl.Features(), g.reg.Names(); !slices.Equal(got, want) {
			return nil, fmt.Errorf("model expects features %v, schema provides %v", got, want)
		}
	}

	var enc transform.Encoding
	if e, ok := inst.Predictor.(model.Encoder); ok {
		enc = e.Encoding()
	}
	tf := transform.New(g.reg, enc)
	if err := tf.CheckCoverage(); err != nil {
		slog.Error("model encoding does not cover every schema label",
			slog.Bool("alert", true),
			slog.String("version", inst.Info.Version),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("model %s cannot encode every accepted label: %w", inst.Info.Version, err)
	}
	return &binding{inst: inst, tf: tf}, nil
}

// Reload loads the model again and swaps it in. On failure the current model
// keeps serving and the error wraps model.ErrUnavailable.
func (g *Gateway) Reload(ctx context.Context) (model.Info, error) {
	g.reload.Lock()
	defer g.reload.Unlock()

	b, err := g.bind(ctx)
	if err != nil {
		slog.Error("model reload failed, keeping current model",
			slog.String("version", g.Info().Version),
			slog.String("error", err.Error()),
		)
		return g.Info(), fmt.Errorf("%w: %w", model.ErrUnavailable, err)
	}

	prev := g.current.Swap(b)
	g.cache.Purge()

	slog.Info("model reloaded",
		slog.String("previous_version", prev.inst.Info.Version),
		slog.String("version", b.inst.Info.Version),
	)
	return b.inst.Info, nil
}

// Info describes the current model.
func (g *Gateway) Info() model.Info {
	return g.current.Load().inst.Info
}

// Registry returns the schema the gateway was bound to.
func (g *Gateway) Registry() *schema.Registry {
	return g.reg
}

// Session returns a view pinned to the current model. Everything done
// through one session uses the same model even if a reload happens meanwhile.
// Predictions of a volatile model bypass the cache.
func (g *Gateway) Session() *Session {
	b := g.current.Load()
	s := &Session{b: b, cache: g.cache}
	if v, ok := b.inst.Predictor.(model.Volatile); ok && v.Volatile() {
		s.cache = nil
	}
	return s
}

// Session is a request-scoped view of one model instance.
type Session struct {
	b     *binding
	cache *cache.PredictionCache
}

// Info describes the model of the session.
func (s *Session) Info() model.Info {
	return s.b.inst.Info
}

// Transform encodes rec with the session model's encoding table.
func (s *Session) Transform(rec schema.Record) (types.FeatureVector, error) {
	fv, err := s.b.tf.Transform(rec)
	var mismatch *transform.SchemaMismatchError
	if errors.As(err, &mismatch) {
		slog.Error("schema mismatch between validator and model",
			slog.Bool("alert", true),
			slog.String("field", mismatch.Field),
			slog.String("label", mismatch.Label),
			slog.String("version", s.b.inst.Info.Version),
		)
	}
	return fv, err
}

// PredictOne returns the prediction for one vector. Model failures are
// returned as *model.InferenceError.
func (s *Session) PredictOne(ctx context.Context, fv types.FeatureVector) (float64, error) {
	key := cache.Key(s.b.inst.Info.Version, fv)
	if y, ok := s.cache.Get(key); ok {
		return y, nil
	}

	y, err := s.b.inst.Predictor.PredictOne(ctx, fv)
	if err != nil {
		return 0, s.inferenceError(err, 1)
	}
	s.cache.Put(key, y)
	return y, nil
}

// PredictMany returns one prediction per vector in input order. Cached
// vectors are skipped; the rest go to the model in a single call.
func (s *Session) PredictMany(ctx context.Context, fvs []types.FeatureVector) ([]float64, error) {
	out := make([]float64, len(fvs))
	keys := make([]string, len(fvs))
	var missIdx []int
	var miss []types.FeatureVector

	for i, fv := range fvs {
		keys[i] = cache.Key(s.b.inst.Info.Version, fv)
		if y, ok := s.cache.Get(keys[i]); ok {
			out[i] = y
			continue
		}
		missIdx = append(missIdx, i)
		miss = append(miss, fv)
	}
	if len(miss) == 0 {
		return out, nil
	}

	ys, err := s.b.inst.Predictor.PredictMany(ctx, miss)
	if err != nil {
		return nil, s.inferenceError(err, len(miss))
	}
	if len(ys) != len(miss) {
		return nil, s.inferenceError(fmt.Errorf("model returned %d predictions for %d rows", len(ys), len(miss)), len(miss))
	}
	for j, i := range missIdx {
		out[i] = ys[j]
		s.cache.Put(keys[i], ys[j])
	}
	return out, nil
}

func (s *Session) inferenceError(err error, rows int) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ierr *model.InferenceError
	if !errors.As(err, &ierr) {
		ierr = &model.InferenceError{Cause: err}
	}
	slog.Error("model inference failed",
		slog.String("version", s.b.inst.Info.Version),
		slog.Int("rows", rows),
		slog.String("error", ierr.Error()),
	)
	return ierr
}
