package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/JonMunkholm/ratingprep/internal/logging"
)

// CatalogResponse lists the registered catalogs.
type CatalogResponse struct {
	Default  string         `json:"default"`
	Catalogs []core.Catalog `json:"catalogs"`
}

// CleanResponse is the JSON form of a clean result.
type CleanResponse struct {
	Rows    int                  `json:"rows"`
	Columns []core.ColumnSummary `json:"columns"`
	Report  core.Report          `json:"report"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   s.limiter.Status(),
	})
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Default:  s.cfg.Normalize.Catalog,
		Catalogs: core.Catalogs(),
	})
}

// handleConvert parses the request body as a delimited source and returns it
// comma-separated.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	t, err := s.parseBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeCSV(w, r, t, "converted.csv")
}

// handleClean parses the body, applies a catalog and returns the cleaned table
// as CSV, or a column summary with the clean report when format=json.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("catalog")
	if name == "" {
		name = s.cfg.Normalize.Catalog
	}
	cat, err := core.GetCatalog(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		s.respondError(w, r, fmt.Errorf("%w: unsupported format %q", core.ErrParse, format))
		return
	}

	t, err := s.parseBody(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	threshold := s.cfg.Normalize.CategoryThreshold
	if v := q.Get("threshold"); v != "" {
		threshold, err = strconv.ParseFloat(v, 64)
		if err != nil || threshold <= 0 || threshold > 1 {
			s.respondError(w, r, fmt.Errorf("%w: threshold %q must be in (0, 1]", core.ErrParse, v))
			return
		}
	}

	n := core.NewNormalizer(cat, core.WithCategoryThreshold(threshold))
	t, report, err := n.Clean(r.Context(), t)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, CleanResponse{
			Rows:    t.Len(),
			Columns: core.Summarize(t),
			Report:  report,
		})
		return
	}
	s.writeCSV(w, r, t, "cleaned.csv")
}

// parseBody reads the request body as a delimited source, honoring the
// delimiter and encoding query parameters.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*core.Table, error) {
	q := r.URL.Query()

	delimSpec := q.Get("delimiter")
	if delimSpec == "" {
		delimSpec = s.cfg.Convert.SourceDelimiter
	}
	delim, err := core.ParseDelimiter(delimSpec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
	}

	encoding := q.Get("encoding")
	if encoding == "" {
		encoding = s.cfg.Convert.SourceEncoding
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)
	defer body.Close()

	t, err := core.ParseSource(r.Context(), body, delim, encoding)
	if err != nil {
		return nil, err
	}

	logging.FromContext(r.Context()).Info("source parsed",
		"rows", t.Len(),
		"columns", t.Width(),
		"delimiter", string(delim),
	)
	return t, nil
}

// writeCSV serializes t before sending headers so a failure still yields a
// JSON error.
func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, t *core.Table, filename string) {
	var buf bytes.Buffer
	if err := core.WriteDelimited(&buf, t, ','); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: serialize: %v", core.ErrWrite, err))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Row-Count", strconv.Itoa(t.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "error", err)
	}
}
