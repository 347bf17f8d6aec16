package model

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/usestring/superkart-inference/pkg/types"
)

// column maps one input feature onto the one-hot design matrix.
type column struct {
	name   string
	offset int // first design column of the feature
	levels int // 0 for numeric features
}

// Linear is a linear regression over numeric features and one-hot encoded
// categorical features. It is immutable after NewLinear.
type Linear struct {
	version   string
	features  []string
	encoding  map[string][]string
	columns   []column
	weights   *mat.VecDense
	intercept float64
}

// NewLinear builds a predictor from a parsed artifact.
func NewLinear(a *Artifact) (*Linear, error) {
	if a.Kind != KindLinear {
		return nil, fmt.Errorf("unsupported model kind %q", a.Kind)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("model has no features")
	}
	if problems := a.check(); len(problems) > 0 {
		return nil, &ArtifactError{Problems: problems}
	}

	l := &Linear{
		version:   a.Version,
		features:  append([]string(nil), a.Features...),
		encoding:  make(map[string][]string, len(a.Categorical)),
		intercept: a.Intercept,
	}

	var w []float64
	for _, name := range a.Features {
		c := column{name: name, offset: len(w)}
		if term, ok := a.Categorical[name]; ok {
			c.levels = len(term.Levels)
			l.encoding[name] = append([]string(nil), term.Levels...)
			w = append(w, term.Weights...)
		} else {
			w = append(w, a.Numeric[name])
		}
		l.columns = append(l.columns, c)
	}
	l.weights = mat.NewVecDense(len(w), w)
	return l, nil
}

// Version returns the artifact version.
func (l *Linear) Version() string { return l.version }

// Features returns the expected input order.
func (l *Linear) Features() []string {
	return append([]string(nil), l.features...)
}

// Encoding returns the categorical levels in code order.
func (l *Linear) Encoding() map[string][]string {
	out := make(map[string][]string, len(l.encoding))
	for k, v := range l.encoding {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (l *Linear) PredictOne(ctx context.Context, fv types.FeatureVector) (float64, error) {
	ys, err := l.PredictMany(ctx, []types.FeatureVector{fv})
	if err != nil {
		return 0, err
	}
	return ys[0], nil
}

// PredictMany evaluates all vectors with a single matrix-vector product.
func (l *Linear) PredictMany(ctx context.Context, fvs []types.FeatureVector) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(fvs) == 0 {
		return []float64{}, nil
	}

	x := mat.NewDense(len(fvs), l.weights.Len(), nil)
	for i, fv := range fvs {
		if err := l.fill(x, i, fv); err != nil {
			return nil, err
		}
	}

	var y mat.VecDense
	y.MulVec(x, l.weights)

	out := make([]float64, len(fvs))
	for i := range out {
		v := y.AtVec(i) + l.intercept
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, inferenceErr("row %d produced a non-finite prediction", i)
		}
		out[i] = v
	}
	return out, nil
}

func (l *Linear) fill(x *mat.Dense, row int, fv types.FeatureVector) error {
	if len(fv) != len(l.columns) {
		return inferenceErr("expected %d features, got %d", len(l.columns), len(fv))
	}
	for j, c := range l.columns {
		f := fv[j]
		if f.Name != c.name {
			return inferenceErr("feature %d is %s, model expects %s", j, f.Name, c.name)
		}
		if c.levels == 0 {
			x.Set(row, c.offset, f.Value)
			continue
		}
		code := int(f.Value)
		if float64(code) != f.Value || code < 0 || code >= c.levels {
			return inferenceErr("feature %s has code %v outside [0, %d)", c.name, f.Value, c.levels)
		}
		x.Set(row, c.offset+code, 1)
	}
	return nil
}
