package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usestring/superkart-inference/internal/schema"
	"github.com/usestring/superkart-inference/internal/service"
	"github.com/usestring/superkart-inference/internal/tabular"
	"github.com/usestring/superkart-inference/pkg/contenttype"
	"github.com/usestring/superkart-inference/pkg/types"
)

// uploadField is the multipart form field carrying a batch file.
const uploadField = "file"

type rootResponse struct {
	Service      string `json:"service"`
	Status       string `json:"status"`
	Version      string `json:"version,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
}

func (s *Server) root(c echo.Context) error {
	h := s.svc.Health()
	return c.JSON(http.StatusOK, rootResponse{
		Service:      "superkart-inference",
		Status:       h.Status,
		Version:      s.cfg.Version,
		ModelVersion: h.ModelVersion,
	})
}

func (s *Server) health(c echo.Context) error {
	h := s.svc.Health()
	status := http.StatusOK
	if h.Status != service.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, h)
}

func (s *Server) schema(c echo.Context) error {
	return s.respond(c, s.svc.Schema())
}

func (s *Server) modelInfo(c echo.Context) error {
	return s.respond(c, s.svc.ModelInfo())
}

func (s *Server) reload(c echo.Context) error {
	info, err := s.svc.Reload(c.Request().Context())
	if err != nil {
		coded := service.Classify(err)
		if coded.Code == types.CodeModelInference || coded.Code == types.CodeInternal {
			coded = &service.CodedError{Code: types.CodeModelUnavailable, Message: coded.Message, Cause: err}
		}
		return coded
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) predict(c echo.Context) error {
	raw, err := s.readRecord(c)
	if err != nil {
		return err
	}
	res, err := s.svc.PredictSingle(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) transformSingle(c echo.Context) error {
	raw, err := s.readRecord(c)
	if err != nil {
		return err
	}
	res, err := s.svc.TransformSingle(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return s.respond(c, res)
}

// predictBatch accepts a JSON batch and returns per-row results.
func (s *Server) predictBatch(c echo.Context) error {
	body, err := readBody(c.Request().Body)
	if err != nil {
		return err
	}
	tbl, err := tabular.ParseJSON(body, s.svc.MaxBatchRows())
	if err != nil {
		return err
	}
	return s.runBatch(c, tbl, false)
}

// transformBatch accepts a CSV or JSON upload. Rows carry their feature
// vectors, and ?format=csv returns the upload annotated with predictions.
func (s *Server) transformBatch(c echo.Context) error {
	tbl, err := s.readTable(c)
	if err != nil {
		return err
	}
	return s.runBatch(c, tbl, true)
}

func (s *Server) validateBatch(c echo.Context) error {
	tbl, err := s.readTable(c)
	if err != nil {
		return err
	}
	return s.respond(c, s.svc.ValidateBatch(tbl))
}

func (s *Server) runBatch(c echo.Context, tbl *tabular.Table, features bool) error {
	report, err := s.svc.PredictBatch(c.Request().Context(), tbl, includeFeatures(c, features))
	if err != nil {
		return err
	}
	if wantsCSV(c) {
		var buf bytes.Buffer
		if err := tabular.WriteAnnotatedCSV(&buf, tbl, report); err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="predictions.csv"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
	}
	return s.respond(c, report)
}

// respond writes v as JSON, projected through ?jq= when present.
func (s *Server) respond(c echo.Context, v any) error {
	expr := strings.TrimSpace(c.QueryParam("jq"))
	if expr == "" {
		return c.JSON(http.StatusOK, v)
	}
	res, err := s.svc.Project(c.Request().Context(), v, expr)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) readRecord(c echo.Context) (schema.RawRecord, error) {
	body, err := readBody(c.Request().Body)
	if err != nil {
		return nil, err
	}
	return tabular.ParseRecord(body)
}

// readTable decodes a batch upload from a multipart "file" field or from the
// raw body. The format comes from the filename or Content-Type and is
// sniffed from the content when neither says.
func (s *Server) readTable(c echo.Context) (*tabular.Table, error) {
	req := c.Request()
	category := contenttype.Classify(req.Header.Get(echo.HeaderContentType))

	var body []byte
	if category == contenttype.Multipart {
		fh, err := c.FormFile(uploadField)
		if err != nil {
			var he *echo.HTTPError
			if errors.As(err, &he) {
				return nil, he
			}
			return nil, service.ErrInvalidInput(fmt.Sprintf("multipart upload needs a %q field: %v", uploadField, err))
		}
		f, err := fh.Open()
		if err != nil {
			return nil, service.ErrInvalidInput("opening upload: " + err.Error())
		}
		defer f.Close()
		if body, err = readBody(f); err != nil {
			return nil, err
		}
		category = contenttype.FromFilename(fh.Filename)
	} else {
		var err error
		if body, err = readBody(req.Body); err != nil {
			return nil, err
		}
	}

	if category != contenttype.JSON && category != contenttype.CSV {
		category = contenttype.Sniff(body)
	}
	switch category {
	case contenttype.JSON:
		return tabular.ParseJSON(body, s.svc.MaxBatchRows())
	case contenttype.CSV:
		return tabular.ParseCSV(bytes.NewReader(body), s.svc.MaxBatchRows())
	default:
		return nil, tabular.ErrEmpty
	}
}

func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		var he *echo.HTTPError
		var maxBytes *http.MaxBytesError
		if errors.As(err, &he) || errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, service.ErrInvalidInput("reading body: " + err.Error())
	}
	return body, nil
}

// includeFeatures reads ?include_features, falling back to def.
func includeFeatures(c echo.Context, def bool) bool {
	b, err := strconv.ParseBool(c.QueryParam("include_features"))
	if err != nil {
		return def
	}
	return b
}

func wantsCSV(c echo.Context) bool {
	if strings.EqualFold(c.QueryParam("format"), "csv") {
		return true
	}
	return contenttype.Classify(c.Request().Header.Get(echo.HeaderAccept)) == contenttype.CSV
}
