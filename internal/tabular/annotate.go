package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/usestring/superkart-inference/pkg/types"
)

// Columns appended by WriteAnnotatedCSV.
const (
	PredictionColumn = "Predicted_Revenue"
	ErrorsColumn     = "Errors"
)

// WriteAnnotatedCSV writes the table back as CSV with the prediction and the
// failure reason of each row appended. report must come from the same table.
func WriteAnnotatedCSV(w io.Writer, t *Table, report *types.BatchReport) error {
	if len(report.Results) != len(t.Rows) {
		return fmt.Errorf("report has %d rows, table has %d", len(report.Results), len(t.Rows))
	}

	cw := csv.NewWriter(w)
	header := append(append([]string(nil), t.Columns...), PredictionColumn, ErrorsColumn)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, res := range report.Results {
		cells := make([]string, len(t.Columns), len(t.Columns)+2)
		if t.Records != nil {
			copy(cells, t.Records[i])
		} else {
			for j, col := range t.Columns {
				if v := t.Rows[i][col]; v != nil {
					cells[j] = fmt.Sprint(v)
				}
			}
		}

		prediction := ""
		if res.OK() {
			prediction = strconv.FormatFloat(*res.Prediction, 'f', 2, 64)
		}
		cells = append(cells, prediction, failure(res))
		if err := cw.Write(cells); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func failure(res types.RowResult) string {
	switch {
	case len(res.Violations) > 0:
		parts := make([]string, len(res.Violations))
		for i, v := range res.Violations {
			parts[i] = v.String()
		}
		return strings.Join(parts, "; ")
	case res.Error != nil:
		return res.Error.Message
	default:
		return ""
	}
}
