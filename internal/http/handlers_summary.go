package http

import (
	"bytes"
	"net/http"
	"strconv"

	"timetrack/internal/core"
	"timetrack/internal/report"
)

const noActivityMsg = "No projects with activity in the selected date range"

// summaryFilter parses from/to, answering a validation error on failure.
func (s *Server) summaryFilter(w http.ResponseWriter, r *http.Request) (core.RangeFilter, bool) {
	q := r.URL.Query()
	f, err := s.svc.Summary.ParseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, err)
		return core.RangeFilter{}, false
	}
	return f, true
}

func (s *Server) handleProjectsSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.summaryFilter(w, r)
	if !ok {
		return
	}
	projects, err := s.svc.Summary.Projects(r.Context(), currentUser(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newSummaryResponse(f, toProjectSummaryJSON(projects))
	if len(projects) == 0 {
		resp.Msg = noActivityMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOverviewSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.summaryFilter(w, r)
	if !ok {
		return
	}
	o, err := s.svc.Summary.Overview(r.Context(), currentUser(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(f, toOverviewJSON(o)))
}

func (s *Server) handleProjectsPDF(w http.ResponseWriter, r *http.Request) {
	f, ok := s.summaryFilter(w, r)
	if !ok {
		return
	}
	projects, err := s.svc.Summary.Projects(r.Context(), currentUser(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reports.RenderProjects(&buf, projects, f); err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, report.Filename(report.KindProjects, f), buf.Bytes())
}

func (s *Server) handleOverviewPDF(w http.ResponseWriter, r *http.Request) {
	f, ok := s.summaryFilter(w, r)
	if !ok {
		return
	}
	o, err := s.svc.Summary.Overview(r.Context(), currentUser(r.Context()).ID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.reports.RenderOverview(&buf, o, f); err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, report.Filename(report.KindOverview, f), buf.Bytes())
}

func writePDF(w http.ResponseWriter, filename string, body []byte) {
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
