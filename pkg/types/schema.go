package types

import (
	"fmt"
	"strings"
)

// Violation reasons.
const (
	ReasonMissing       = "missing"
	ReasonNotString     = "not a string"
	ReasonNotAllowed    = "not an allowed value"
	ReasonNotNumber     = "not a number"
	ReasonNotInteger    = "not an integer"
	ReasonOutOfRange    = "out of range"
	ReasonMissingColumn = "missing column"
)

// Violation is a single field-level schema failure.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  any    `json:"value"`
}

func (v Violation) String() string {
	if v.Value == nil {
		return fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return fmt.Sprintf("%s: %s (got %v)", v.Field, v.Reason, v.Value)
}

// Violations is an ordered list of violations found in one record.
// A non-empty Violations is the validation error of that record.
type Violations []Violation

func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the names of the offending fields, in order, without duplicates.
func (vs Violations) Fields() []string {
	seen := make(map[string]bool, len(vs))
	var out []string
	for _, v := range vs {
		if !seen[v.Field] {
			seen[v.Field] = true
			out = append(out, v.Field)
		}
	}
	return out
}

// ViolationsResponse is returned when a single record fails validation.
type ViolationsResponse struct {
	Violations Violations `json:"violations"`
}

// FieldSpec describes the constraints of one input field.
type FieldSpec struct {
	Type        string   `json:"type"` // categorical, float, integer
	ValidValues []string `json:"valid_values,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Note        string   `json:"note,omitempty"`
}

// SchemaDocument is the description served on /schema.
type SchemaDocument struct {
	RequiredFields []string             `json:"required_fields"`
	FieldTypes     map[string]string    `json:"field_types"`
	ValidValues    map[string]FieldSpec `json:"valid_values"`
	JSONSchema     any                  `json:"json_schema,omitempty"`
}

// ValidationSummary reports data quality over a table without predicting.
type ValidationSummary struct {
	Status                   string         `json:"status"` // success or failed
	TotalRows                int            `json:"total_rows"`
	ColumnCount              int            `json:"column_count"`
	ValidRows                int            `json:"valid_rows"`
	InvalidRows              int            `json:"invalid_rows"`
	MissingColumns           []string       `json:"missing_columns"`
	ExtraColumns             []string       `json:"extra_columns"`
	NullCounts               map[string]int `json:"null_counts"`
	InvalidCategoricalCounts map[string]int `json:"invalid_categorical_counts"`
	InvalidNumericCounts     map[string]int `json:"invalid_numeric_counts"`
	OutOfRangeCounts         map[string]int `json:"out_of_range_counts"`
}

// RowViolations lists the violations of one table row (1-based).
type RowViolations struct {
	Row        int        `json:"row"`
	Violations Violations `json:"violations"`
}

// ValidationReport is the response of /validate/batch.
type ValidationReport struct {
	Summary ValidationSummary `json:"summary"`
	Rows    []RowViolations   `json:"rows"`
}
