package web

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Guilhermefoliveira/csv-validador/internal/audit"
	"github.com/Guilhermefoliveira/csv-validador/internal/core"
	"github.com/Guilhermefoliveira/csv-validador/internal/logging"
	"github.com/Guilhermefoliveira/csv-validador/internal/schema"
)

// validateResponse is the body returned by POST /api/validate.
type validateResponse struct {
	RunID  string      `json:"run_id"`
	Report core.Report `json:"report"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleValidate accepts a multipart upload and runs the full pipeline.
//
// Form fields:
//   - file: the delimited input file (required)
//   - lookup: "false" disables the postal-code cross-check (default true)
//   - header_map: optional JSON object mapping raw column names to canonical fields
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		s.respondError(w, r, fmt.Errorf("parsing upload: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("missing file field: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	headerMap, err := parseHeaderMapField(r.FormValue("header_map"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	lookup := true
	if v := r.FormValue("lookup"); v != "" {
		lookup, err = strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("invalid lookup value %q", v), http.StatusBadRequest)
			return
		}
	}

	// The detector works on a path, so the upload lands in a temp file for
	// the duration of the run.
	path, cleanup, err := spoolUpload(file, header.Filename)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	runID := uuid.NewString()
	logger := logging.WithFields(r.Context(), "run_id", runID, "file", header.Filename)
	logger.Info("validation started", "lookup", lookup)

	start := time.Now()
	result, err := s.pipeline.ValidateFile(r.Context(), path, core.Options{
		HeaderMap: headerMap,
		Lookup:    lookup,
	})
	if err != nil {
		s.respondError(w, r, fmt.Errorf("validation failed: %w", err), http.StatusInternalServerError)
		return
	}
	duration := time.Since(start)

	s.storeRun(&storedRun{
		ID:        runID,
		FileName:  header.Filename,
		CreatedAt: start,
		Result:    result,
	})

	rows := 0
	if len(result.FullRows) > 0 {
		rows = len(result.FullRows) - 1
	}
	if err := s.audit.Record(r.Context(), audit.Run{
		ID:          runID,
		FileName:    header.Filename,
		Rows:        rows,
		RowErrors:   len(result.Report.RowErrors),
		Warnings:    len(result.Report.Warnings),
		Corrections: len(result.Report.Corrections),
		LookupUsed:  lookup,
		Duration:    duration.Milliseconds(),
	}); err != nil {
		logger.Error("recording run history", "error", err)
	}

	logger.Info("validation finished",
		"rows", rows,
		"row_errors", len(result.Report.RowErrors),
		"corrections", len(result.Report.Corrections),
		"duration_ms", duration.Milliseconds(),
	)
	respondJSON(w, http.StatusOK, validateResponse{RunID: runID, Report: result.Report})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	runs, err := s.audit.Recent(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []audit.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.getRun(chi.URLParam(r, "runID"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("unknown run"), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, run.Result.Report)
}

// handleDownload streams the chosen corrected variant as CSV.
// ?variant=format returns the format-only rows; anything else (default
// "full") returns the fully-corrected rows.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	run, ok := s.getRun(chi.URLParam(r, "runID"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("unknown run"), http.StatusNotFound)
		return
	}
	if run.Result.HasCritical() {
		s.respondError(w, r, fmt.Errorf("run produced no output"), http.StatusConflict)
		return
	}

	rows := run.Result.FullRows
	variant := r.URL.Query().Get("variant")
	if variant == "format" {
		rows = run.Result.FormatRows
	}

	base := filepath.Base(run.FileName)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + "_corrected.csv"

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := core.WriteCSV(w, rows); err != nil {
		logging.FromContext(r.Context()).Error("writing download", "error", err)
	}
}

// parseHeaderMapField decodes the optional header_map JSON form field and
// checks every target against the canonical schema.
func parseHeaderMapField(raw string) (schema.HeaderMap, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("parsing header_map: %w", err)
	}
	out := make(schema.HeaderMap, len(m))
	for col, field := range m {
		if field == "" {
			continue
		}
		canonical, ok := schema.Normalize(field)
		if !ok {
			return nil, fmt.Errorf("header_map: %q maps to unknown field %q", col, field)
		}
		out[col] = canonical
	}
	return out, nil
}

// spoolUpload copies the uploaded file to a temp path and returns it with a
// cleanup func.
func spoolUpload(src io.Reader, name string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "validador-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("spooling upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("closing temp file: %w", err)
	}
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
