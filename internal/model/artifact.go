package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// KindLinear is the only artifact kind stored on disk.
const KindLinear = "linear"

// Artifact is the on-disk form of a trained linear model.
type Artifact struct {
	Kind        string                     `json:"kind" yaml:"kind"`
	Version     string                     `json:"version" yaml:"version"`
	Features    []string                   `json:"features" yaml:"features"`
	Intercept   float64                    `json:"intercept" yaml:"intercept"`
	Numeric     map[string]float64         `json:"numeric" yaml:"numeric"`
	Categorical map[string]CategoricalTerm `json:"categorical" yaml:"categorical"`
}

// CategoricalTerm holds the one-hot weights of a categorical feature. The
// position of a level is its encoding code.
type CategoricalTerm struct {
	Levels  []string  `json:"levels" yaml:"levels"`
	Weights []float64 `json:"weights" yaml:"weights"`
}

// ArtifactError lists the problems found in a model artifact.
type ArtifactError struct {
	Path     string
	Problems []string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("invalid model artifact %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["kind", "version", "features", "intercept"],
  "properties": {
    "kind": {"const": "linear"},
    "version": {"type": "string", "minLength": 1},
    "features": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {"type": "string", "minLength": 1}
    },
    "intercept": {"type": "number"},
    "numeric": {
      "type": "object",
      "additionalProperties": {"type": "number"}
    },
    "categorical": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["levels", "weights"],
        "properties": {
          "levels": {"type": "array", "minItems": 1, "uniqueItems": true, "items": {"type": "string"}},
          "weights": {"type": "array", "minItems": 1, "items": {"type": "number"}}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledArtifactSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(artifactSchema))
	if err != nil {
		return nil, fmt.Errorf("parsing artifact schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("artifact.json", doc); err != nil {
		return nil, fmt.Errorf("adding artifact schema: %w", err)
	}
	return c.Compile("artifact.json")
})

// ParseArtifact decodes a YAML or JSON artifact and checks its shape.
// path is only used in error messages.
func ParseArtifact(path string, data []byte) (*Artifact, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ArtifactError{Path: path, Problems: []string{err.Error()}}
	}

	// Round-trip through JSON so the validator sees plain JSON values.
	doc, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding artifact %s: %w", path, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, &ArtifactError{Path: path, Problems: []string{err.Error()}}
	}

	sch, err := compiledArtifactSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(inst); err != nil {
		return nil, &ArtifactError{Path: path, Problems: validationProblems(err)}
	}

	var a Artifact
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, &ArtifactError{Path: path, Problems: []string{err.Error()}}
	}
	if problems := a.check(); len(problems) > 0 {
		return nil, &ArtifactError{Path: path, Problems: problems}
	}
	return &a, nil
}

// check covers the cross-field rules the JSON Schema cannot express.
func (a *Artifact) check() []string {
	var problems []string
	for _, name := range a.Features {
		_, num := a.Numeric[name]
		_, cat := a.Categorical[name]
		switch {
		case num && cat:
			problems = append(problems, fmt.Sprintf("feature %s is both numeric and categorical", name))
		case !num && !cat:
			problems = append(problems, fmt.Sprintf("feature %s has no weights", name))
		}
	}
	for name, term := range a.Categorical {
		if len(term.Levels) != len(term.Weights) {
			problems = append(problems, fmt.Sprintf("feature %s has %d levels but %d weights", name, len(term.Levels), len(term.Weights)))
		}
	}
	return problems
}

var printer = message.NewPrinter(language.English)

func validationProblems(err error) []string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []string{err.Error()}
	}
	byPath := make(map[string][]string)
	collectProblems(verr, byPath)

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []string
	for _, p := range paths {
		seen := make(map[string]bool)
		for _, msg := range byPath[p] {
			if seen[msg] {
				continue
			}
			seen[msg] = true
			if p == "" {
				out = append(out, msg)
			} else {
				out = append(out, p+": "+msg)
			}
		}
	}
	return out
}

// collectProblems gathers leaf errors keyed by instance location.
func collectProblems(err *jsonschema.ValidationError, byPath map[string][]string) {
	path := ""
	if len(err.InstanceLocation) > 0 {
		path = "/" + strings.Join(err.InstanceLocation, "/")
	}
	if err.ErrorKind != nil && len(err.Causes) == 0 {
		msg := err.ErrorKind.LocalizedString(printer)
		if !strings.HasPrefix(msg, "$ref ") && !strings.HasPrefix(msg, "doesn't validate with") {
			byPath[path] = append(byPath[path], msg)
		}
	}
	for _, cause := range err.Causes {
		collectProblems(cause, byPath)
	}
}

// FileLoader loads a linear model artifact from disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load(ctx context.Context) (*Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}
	a, err := ParseArtifact(l.Path, data)
	if err != nil {
		return nil, err
	}
	lin, err := NewLinear(a)
	if err != nil {
		return nil, err
	}

	source, err := filepath.Abs(l.Path)
	if err != nil {
		source = l.Path
	}
	return &Instance{
		Predictor: lin,
		Info: Info{
			Type:     "LinearRegression",
			Version:  a.Version,
			Source:   source,
			LoadedAt: time.Now().UTC(),
		},
	}, nil
}
