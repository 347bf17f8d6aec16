// Package transform turns validated records into the ordered feature vectors
// the model consumes.
package transform

import (
	"errors"
	"fmt"

	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/pkg/types"
)

// ErrNotValidated is returned for a Record that did not come from the
// transformer's registry.
var ErrNotValidated = errors.New("record was not validated against this registry")

// Encoding maps each categorical field to its ordered levels. The index of a
// label in its slice is the code the model was trained with.
type Encoding map[string][]string

// SchemaMismatchError reports a label the validator accepted but the model's
// encoding table cannot encode. It indicates drift between the registry and
// the trained model and is never defaulted.
type SchemaMismatchError struct {
	Field string
	Label string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: model has no encoding for %s=%q", e.Field, e.Label)
}

// Transformer is immutable and safe for concurrent use.
type Transformer struct {
	reg   *schema.Registry
	codes map[string]map[string]int
}

// New builds a transformer over reg. A nil encoding uses the registry's own
// label order as codes.
func New(reg *schema.Registry, enc Encoding) *Transformer {
	t := &Transformer{reg: reg, codes: make(map[string]map[string]int)}
	for _, f := range reg.Fields() {
		if f.Kind != schema.KindCategorical {
			continue
		}
		levels := f.Values
		if enc != nil {
			levels = enc[f.Name]
		}
		m := make(map[string]int, len(levels))
		for i, l := range levels {
			m[l] = i
		}
		t.codes[f.Name] = m
	}
	return t
}

// Transform produces the feature vector of rec in registry order. Numeric
// fields pass through as float64; categorical fields carry their code and label.
func (t *Transformer) Transform(rec schema.Record) (types.FeatureVector, error) {
	if !rec.Valid() || rec.Registry() != t.reg {
		return nil, ErrNotValidated
	}

	values := rec.Values()
	fv := make(types.FeatureVector, len(values))
	for i, v := range values {
		if v.Kind != schema.KindCategorical {
			fv[i] = types.Feature{Name: v.Field, Value: v.Number}
			continue
		}
		code, ok := t.codes[v.Field][v.Label]
		if !ok {
			return nil, &SchemaMismatchError{Field: v.Field, Label: v.Label}
		}
		fv[i] = types.Feature{Name: v.Field, Value: float64(code), Label: v.Label}
	}
	return fv, nil
}

// CheckCoverage returns one SchemaMismatchError per registry label the
// encoding cannot encode, joined, or nil when every label is covered.
func (t *Transformer) CheckCoverage() error {
	var errs []error
	for _, f := range t.reg.Fields() {
		if f.Kind != schema.KindCategorical {
			continue
		}
		for _, label := range f.Values {
			if _, ok := t.codes[f.Name][label]; !ok {
				errs = append(errs, &SchemaMismatchError{Field: f.Name, Label: label})
			}
		}
	}
	return errors.Join(errs...)
}
