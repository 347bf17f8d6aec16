package schema

import (
	"slices"

	"github.com/usestring/superkart-inference/pkg/types"
)

// Summary status values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Summarize validates every row and reports data quality over the whole
// table. columns is the header of the table; when nil it is derived from the
// keys of the rows. Row numbers in the report are 1-based.
func (r *Registry) Summarize(columns []string, rows []RawRecord) types.ValidationReport {
	if columns == nil {
		columns = columnsOf(rows)
	}

	sum := types.ValidationSummary{
		TotalRows:                len(rows),
		ColumnCount:              len(columns),
		MissingColumns:           []string{},
		ExtraColumns:             []string{},
		NullCounts:               make(map[string]int),
		InvalidCategoricalCounts: make(map[string]int),
		InvalidNumericCounts:     make(map[string]int),
		OutOfRangeCounts:         make(map[string]int),
	}

	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
		if _, ok := r.index[c]; !ok {
			sum.ExtraColumns = append(sum.ExtraColumns, c)
		}
	}
	for _, f := range r.fields {
		if !present[f.Name] {
			sum.MissingColumns = append(sum.MissingColumns, f.Name)
		}
	}

	report := types.ValidationReport{Rows: []types.RowViolations{}}
	for i, row := range rows {
		_, vs := r.Validate(row)
		if len(vs) == 0 {
			sum.ValidRows++
			continue
		}
		sum.InvalidRows++
		report.Rows = append(report.Rows, types.RowViolations{Row: i + 1, Violations: vs})
		for _, v := range vs {
			switch v.Reason {
			case types.ReasonMissing:
				sum.NullCounts[v.Field]++
			case types.ReasonNotString, types.ReasonNotAllowed:
				sum.InvalidCategoricalCounts[v.Field]++
			case types.ReasonNotNumber, types.ReasonNotInteger:
				sum.InvalidNumericCounts[v.Field]++
			case types.ReasonOutOfRange:
				sum.OutOfRangeCounts[v.Field]++
			}
		}
	}

	sum.Status = StatusSuccess
	if len(sum.MissingColumns) > 0 || sum.InvalidRows > 0 {
		sum.Status = StatusFailed
	}
	report.Summary = sum
	return report
}

// MissingColumns returns the registry fields absent from columns, in field order.
func (r *Registry) MissingColumns(columns []string) []string {
	var missing []string
	for _, f := range r.fields {
		if !slices.Contains(columns, f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func columnsOf(rows []RawRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}
