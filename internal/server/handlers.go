package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dadoslab/rfbdash/internal/aggregate"
	"github.com/dadoslab/rfbdash/internal/export"
	"github.com/dadoslab/rfbdash/internal/filter"
	"github.com/dadoslab/rfbdash/internal/geodata"
	"github.com/dadoslab/rfbdash/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"rows":      s.snap.Stats.Rows,
		"loaded_at": s.snap.LoadedAt,
	})
}

type codeOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	statuses := make([]codeOption, 0, 5)
	for _, code := range model.AllStatuses() {
		statuses = append(statuses, codeOption{Code: string(code), Label: code.Label()})
	}
	types := make([]codeOption, 0, 2)
	for _, code := range model.AllTypes() {
		types = append(types, codeOption{Code: string(code), Label: code.Label()})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"statuses":       statuses,
		"types":          types,
		"municipalities": s.municipalities,
		"year_min":       s.yearMin,
		"year_max":       s.yearMax,
		"default_top_n":  s.cfg.Dashboard.DefaultTopN,
		"load_stats":     s.snap.Stats,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    aggregate.ComputeSummary(rows),
		"rows":       len(rows),
		"total_rows": len(s.snap.Rows),
	})
}

func (s *Server) handleStatusDistribution(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": aggregate.StatusDistribution(rows),
		"rows":  len(rows),
	})
}

func (s *Server) handleTypeDistribution(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": aggregate.TypeDistribution(rows),
		"rows":  len(rows),
	})
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	items, excluded := aggregate.TopMunicipalities(rows, s.topN(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"excluded": excluded,
		"rows":     len(rows),
	})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}

	var (
		items    []aggregate.YearCount
		excluded int
	)
	switch by := r.URL.Query().Get("by"); by {
	case "", "opening":
		items, excluded = aggregate.OpeningTimeline(rows)
	case "status":
		items, excluded = aggregate.StatusTimeline(rows)
	default:
		writeError(w, eris.Wrapf(filter.ErrInvalidSpec, "timeline: unknown bucket %q", by))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"excluded": excluded,
		"rows":     len(rows),
	})
}

func (s *Server) handleDecades(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	items, excluded := aggregate.DecadeDistribution(rows)
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"excluded": excluded,
		"rows":     len(rows),
	})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	items, excluded := aggregate.TopActivities(rows, s.topN(r), s.snap.ActivityLabel)
	writeJSON(w, http.StatusOK, map[string]any{
		"items":    items,
		"excluded": excluded,
		"rows":     len(rows),
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}
	mc := aggregate.CountByMunicipality(rows)
	ch, err := geodata.BuildChoropleth(s.boundaries, mc.Counts, mc.Display)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.filtered(w, r)
	if !ok {
		return
	}

	limit := s.cfg.Dashboard.PreviewRowCap
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, eris.Wrapf(filter.ErrInvalidSpec, "preview: bad limit %q", raw))
			return
		}
		if n < limit {
			limit = n
		}
	}

	preview := rows
	if len(preview) > limit {
		preview = preview[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  preview,
		"total": len(rows),
	})
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
		return
	}
	records, err := s.exports.ListExports(r.Context(), s.cfg.Dashboard.ExportsHistory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "csv", "text/csv; charset=utf-8", export.CSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSX)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, format, contentType string,
	encode func([]model.Establishment) ([]byte, error)) {

	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "export rate limit exceeded, retry shortly"})
		return
	}

	spec, err := specFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := filter.Apply(s.snap.Rows, spec)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := encode(rows)
	if err != nil {
		writeError(w, err)
		return
	}

	s.recordExport(r, format, len(rows), spec)

	filename := fmt.Sprintf("estabelecimentos_%s.%s", time.Now().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) recordExport(r *http.Request, format string, rows int, spec filter.Spec) {
	if s.exports == nil {
		return
	}
	specJSON, err := json.Marshal(spec)
	if err != nil {
		specJSON = []byte("{}")
	}
	if _, err := s.exports.RecordExport(r.Context(), format, rows, string(specJSON)); err != nil {
		zap.L().Warn("export not recorded", zap.String("format", format), zap.Error(err))
	}
}

// filtered parses the filter spec from the query and applies it. On error
// it writes the response itself and returns ok=false.
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) ([]model.Establishment, bool) {
	spec, err := specFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	rows, err := filter.Apply(s.snap.Rows, spec)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return rows, true
}

func (s *Server) topN(r *http.Request) int {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return s.cfg.Dashboard.DefaultTopN
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return s.cfg.Dashboard.DefaultTopN
	}
	return n
}

// specFromQuery decodes the sidebar state. Multi-value dimensions accept
// repeated parameters and comma-separated lists; absence means no
// restriction on that dimension.
func specFromQuery(q url.Values) (filter.Spec, error) {
	var spec filter.Spec

	for _, v := range splitMulti(q, "status") {
		spec.Statuses = append(spec.Statuses, model.RegistrationStatus(v))
	}
	for _, v := range splitMulti(q, "type") {
		spec.Types = append(spec.Types, model.EstablishmentType(v))
	}
	spec.Municipalities = splitMulti(q, "municipality")

	var err error
	if spec.YearMin, err = yearParam(q, "year_min"); err != nil {
		return filter.Spec{}, err
	}
	if spec.YearMax, err = yearParam(q, "year_max"); err != nil {
		return filter.Spec{}, err
	}

	if err := spec.Validate(); err != nil {
		return filter.Spec{}, err
	}
	return spec, nil
}

func splitMulti(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func yearParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(filter.ErrInvalidSpec, "filter: %s must be a year, got %q", key, raw)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto HTTP statuses: malformed filters
// are the client's fault, everything else is reported as a server error but
// only takes down the requesting widget, never the process.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if eris.Is(err, filter.ErrInvalidSpec) {
		status = http.StatusBadRequest
	}
	if status >= 500 {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
