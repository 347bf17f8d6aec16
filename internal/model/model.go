// Package model loads the trained revenue model and runs inference on
// feature vectors.
package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/usestring/superkart-inference/pkg/types"
)

// ErrUnavailable is returned when no model could be loaded.
var ErrUnavailable = errors.New("model unavailable")

// InferenceError wraps a failure of the model itself on a feature vector
// that passed validation and transformation.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("model inference failed: %v", e.Cause)
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}

func inferenceErr(format string, args ...any) error {
	return &InferenceError{Cause: fmt.Errorf(format, args...)}
}

// Predictor runs inference. Implementations must be safe for concurrent use
// and must not be mutated after construction.
type Predictor interface {
	PredictOne(ctx context.Context, fv types.FeatureVector) (float64, error)
	// PredictMany returns one prediction per vector, in the same order.
	PredictMany(ctx context.Context, fvs []types.FeatureVector) ([]float64, error)
}

// Encoder is implemented by predictors that carry their own categorical
// encoding table (field -> ordered levels).
type Encoder interface {
	Encoding() map[string][]string
}

// FeatureLister is implemented by predictors that know their input order.
type FeatureLister interface {
	Features() []string
}

// Volatile is implemented by predictors whose model can change without a
// local reload, such as a remote service. Their predictions are not cached.
type Volatile interface {
	Volatile() bool
}

// Info describes a loaded model.
type Info struct {
	Type     string
	Version  string
	Source   string
	LoadedAt time.Time
}

// Instance is a loaded model and its metadata.
type Instance struct {
	Predictor Predictor
	Info      Info
}

// Loader produces a model instance.
type Loader interface {
	Load(ctx context.Context) (*Instance, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Instance, error)

func (f LoaderFunc) Load(ctx context.Context) (*Instance, error) {
	return f(ctx)
}

// Func adapts a single-row function to Predictor. PredictMany calls it once
// per vector and stops at the first error.
type Func func(ctx context.Context, fv types.FeatureVector) (float64, error)

func (f Func) PredictOne(ctx context.Context, fv types.FeatureVector) (float64, error) {
	return f(ctx, fv)
}

func (f Func) PredictMany(ctx context.Context, fvs []types.FeatureVector) ([]float64, error) {
	out := make([]float64, len(fvs))
	for i, fv := range fvs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y, err := f(ctx, fv)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}
