package types

import "time"

// Row status values of a batch result.
const (
	RowOK      = "ok"
	RowInvalid = "invalid"
	RowError   = "error"
)

// PredictionResponse is the success response of /predict.
type PredictionResponse struct {
	Prediction float64   `json:"prediction"`
	Timestamp  time.Time `json:"timestamp"`
}

// TransformResponse is the success response of /transform/single.
type TransformResponse struct {
	Prediction   float64        `json:"prediction"`
	ModelVersion string         `json:"model_version,omitempty"` // version that produced Prediction
	Features     FeatureVector  `json:"features"`
	InputData    map[string]any `json:"input_data"`
	Timestamp    time.Time      `json:"timestamp"`
}

// RowResult is the outcome of one batch row. Exactly one of Prediction,
// Violations or Error is set.
type RowResult struct {
	Row        int           `json:"row"` // 1-based, in input order
	Status     string        `json:"status"`
	Prediction *float64      `json:"prediction,omitempty"`
	Features   FeatureVector `json:"features,omitempty"`
	Violations Violations    `json:"violations,omitempty"`
	Error      *ErrorBody    `json:"error,omitempty"`
}

// OK reports whether the row carries a prediction.
func (r RowResult) OK() bool {
	return r.Status == RowOK
}

// Statistics summarises the successful predictions of a batch.
type Statistics struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Total  float64 `json:"total"`
}

// BatchReport is the response of the batch endpoints.
type BatchReport struct {
	Results      []RowResult `json:"results"`
	TotalRecords int         `json:"total_records"`
	Succeeded    int         `json:"succeeded"`
	Failed       int         `json:"failed"`
	FailedRows   []int       `json:"failed_rows"`
	Statistics   *Statistics `json:"statistics,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// ModelInfo describes the model currently served.
type ModelInfo struct {
	ModelType        string    `json:"model_type"`
	ModelLoaded      bool      `json:"model_loaded"`
	ModelVersion     string    `json:"model_version,omitempty"`
	Source           string    `json:"source,omitempty"`
	LoadedAt         time.Time `json:"loaded_at,omitzero"`
	ExpectedFeatures []string  `json:"expected_features"`
}

// HealthResponse is the response of /health.
type HealthResponse struct {
	Status       string    `json:"status"`
	ModelStatus  string    `json:"model_status"`
	ModelVersion string    `json:"model_version,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
