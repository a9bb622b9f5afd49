package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/smartsync/internal/core"
	"github.com/JonMunkholm/smartsync/internal/logging"
	"github.com/JonMunkholm/smartsync/internal/schema"
	"github.com/JonMunkholm/smartsync/internal/store"
	"github.com/JonMunkholm/smartsync/internal/tabular"
	"github.com/JonMunkholm/smartsync/internal/web/templates"
)

// maxJSONBody caps JSON request bodies (10MB).
const maxJSONBody = 10 << 20

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// IngestResponse is the JSON body of POST /api/ingest.
type IngestResponse struct {
	Ingest    *core.IngestResult  `json:"ingest"`
	Persisted *core.PersistResult `json:"persisted,omitempty"`
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.Schema(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = templates.Index(fields).Render(r.Context(), w)
}

// handleHealth reports run-slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   s.service.LimiterStatus(),
	})
}

// handleSchema returns the active schema as JSON, or YAML with ?format=yaml.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.Schema(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "yaml" {
		out, err := schema.Marshal(fields)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// handleIngest parses an uploaded CSV or XLSX file and runs it through the
// pipeline. With ?persist=true a usable result is written to the store.
//
// Outcomes without usable rows (headers_missing, no_valid_rows) answer 422
// with the full result so callers can show the guidance it carries.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	// Leave room for multipart boundaries and other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: file too large or invalid form: %w", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: no file provided", errBadRequest))
		return
	}
	defer file.Close()

	table, err := tabular.ParseSheet(header.Filename, file, maxSize, s.cfg.Upload.Sheet)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Ingest(ctx, table)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	var persisted *core.PersistResult
	switch res.Outcome {
	case core.OutcomeHeadersMissing, core.OutcomeNoValidRows:
		status = http.StatusUnprocessableEntity
	default:
		if persist, _ := strconv.ParseBool(r.URL.Query().Get("persist")); persist {
			if persisted, err = s.service.Persist(ctx, res); err != nil {
				s.respondError(w, r, err)
				return
			}
		}
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.Outcome == core.OutcomeHeadersMissing {
			w.WriteHeader(status)
			_ = templates.MissingHeaders(res.MissingHeaders).Render(ctx, w)
			return
		}
		w.WriteHeader(status)
		_ = templates.IngestSummary(res, persisted).Render(ctx, w)
		return
	}
	writeJSON(w, status, IngestResponse{Ingest: res, Persisted: persisted})
}

// handleResolveImages records images an external uploader finished.
func (s *Server) handleResolveImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var resolved []core.ResolvedImage
	if err := json.NewDecoder(r.Body).Decode(&resolved); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid resolved image list: %w", errBadRequest, err))
		return
	}

	n, err := s.service.ResolveImages(WithRequestMetadata(r.Context(), r), resolved)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": n})
}

// handleReconcile joins stored products and images. A report with
// unmatched records answers 409 with the report body for JSON clients.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	report, err := s.service.Reconcile(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.ReconcileReport(report).Render(ctx, w)
		return
	}

	status := http.StatusOK
	if report.Err() != nil {
		status = http.StatusConflict
	}
	writeJSON(w, status, report)
}

// handleListings returns the reconciled listings.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.Listings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(recs), "listings": nonNil(recs)})
}

// handleInvalidRows returns the rows the last persisted ingest set aside,
// as JSON or, with ?format=xlsx, as a spreadsheet download.
func (s *Server) handleInvalidRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := s.service.InvalidRows(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, map[string]any{"count": len(recs), "rows": nonNil(recs)})
		return
	}

	fields, err := s.service.Schema(ctx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	headers, rows := core.InvalidRowsSheet(fields, recs)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="invalid_rows.xlsx"`)
	if err := tabular.WriteXLSX(w, "Invalid Rows", headers, rows); err != nil {
		// Headers are already sent.
		logging.FromContext(ctx).Error("invalid rows export failed", "error", err)
	}
}

// handleReset clears pipeline collections. Repeat ?collection= to limit
// the reset; without it every collection is cleared.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var (
		counts map[string]int
		err    error
	)
	if names := r.URL.Query()["collection"]; len(names) > 0 {
		counts, err = s.resetter.Reset(r.Context(), names...)
	} else {
		counts, err = s.resetter.ResetAll(r.Context())
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": counts})
}

func nonNil(recs []store.Record) []store.Record {
	if recs == nil {
		return []store.Record{}
	}
	return recs
}
