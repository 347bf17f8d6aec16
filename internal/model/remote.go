package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/usestring/superkart-inference/pkg/types"
)

// APIError is a non-2xx response from a remote inference service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote inference error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote inference error %d: %s", e.StatusCode, e.Message)
}

// Remote forwards feature vectors to another instance of this service over
// its batch endpoint. Labels are sent instead of codes, so the remote side
// applies its own encoding.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	features   []string
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.httpClient = c
	}
}

// WithTimeout sets the timeout of every remote call.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.httpClient = &http.Client{Timeout: d}
	}
}

// NewRemote creates a client for the service at baseURL.
func NewRemote(baseURL string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Features returns the input order reported by the remote service.
func (r *Remote) Features() []string {
	return append([]string(nil), r.features...)
}

// Volatile reports true: the remote service reloads on its own schedule.
func (r *Remote) Volatile() bool { return true }

func (r *Remote) PredictOne(ctx context.Context, fv types.FeatureVector) (float64, error) {
	ys, err := r.PredictMany(ctx, []types.FeatureVector{fv})
	if err != nil {
		return 0, err
	}
	return ys[0], nil
}

// PredictMany posts all vectors in one request. Any failed row fails the call;
// callers retry row by row to isolate it.
func (r *Remote) PredictMany(ctx context.Context, fvs []types.FeatureVector) ([]float64, error) {
	if len(fvs) == 0 {
		return []float64{}, nil
	}

	rows := make([]map[string]any, len(fvs))
	for i, fv := range fvs {
		row := make(map[string]any, len(fv))
		for _, f := range fv {
			if f.Categorical() {
				row[f.Name] = f.Label
			} else {
				row[f.Name] = f.Value
			}
		}
		rows[i] = row
	}

	var report types.BatchReport
	if err := r.do(ctx, http.MethodPost, "/predict/batch", map[string]any{"data": rows}, &report); err != nil {
		return nil, &InferenceError{Cause: err}
	}
	if len(report.Results) != len(fvs) {
		return nil, inferenceErr("remote returned %d results for %d rows", len(report.Results), len(fvs))
	}

	out := make([]float64, len(fvs))
	for i, res := range report.Results {
		if !res.OK() || res.Prediction == nil {
			return nil, inferenceErr("remote row %d failed: %s", i+1, rowFailure(res))
		}
		out[i] = *res.Prediction
	}
	return out, nil
}

func rowFailure(res types.RowResult) string {
	switch {
	case res.Error != nil:
		return res.Error.Message
	case len(res.Violations) > 0:
		return res.Violations.Error()
	default:
		return res.Status
	}
}

// Info fetches the remote model description.
func (r *Remote) Info(ctx context.Context) (*types.ModelInfo, error) {
	var info types.ModelInfo
	if err := r.do(ctx, http.MethodGet, "/model/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *Remote) do(ctx context.Context, method, path string, body, result any) error {
	start := time.Now()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		slog.Debug("remote request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Debug("remote request returned error",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	slog.Debug("remote request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp types.ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// RemoteLoader connects to a remote inference service and checks that it
// has a model loaded.
type RemoteLoader struct {
	URL     string
	Options []RemoteOption
}

func (l RemoteLoader) Load(ctx context.Context) (*Instance, error) {
	r := NewRemote(l.URL, l.Options...)
	info, err := r.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("probing remote model at %s: %w", l.URL, err)
	}
	if !info.ModelLoaded {
		return nil, fmt.Errorf("remote service at %s has no model loaded", l.URL)
	}
	r.features = info.ExpectedFeatures

	return &Instance{
		Predictor: r,
		Info: Info{
			Type:     "remote:" + info.ModelType,
			Version:  info.ModelVersion,
			Source:   r.baseURL,
			LoadedAt: time.Now().UTC(),
		},
	}, nil
}
