package http

import (
	"net/http"

	"timetrack/internal/core"
	"timetrack/internal/middleware/metrics"
)

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if issues := s.validator.Check(req); issues != nil {
		writeValidation(w, issues)
		return
	}

	e, err := s.svc.Entries.Create(r.Context(), currentUser(r.Context()).ID, req.input())
	metrics.RecordEntryWrite("create", outcome(err))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Msg: "Time entry created successfully", Data: toEntryJSON(e)})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid time entry id")
	if !ok {
		return
	}
	var req updateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if issues := s.validator.Check(req); issues != nil {
		writeValidation(w, issues)
		return
	}

	e, err := s.svc.Entries.Update(r.Context(), currentUser(r.Context()).ID, id, req.patch())
	metrics.RecordEntryWrite("update", outcome(err))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Time entry updated successfully", Data: toEntryJSON(e)})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid time entry id")
	if !ok {
		return
	}
	e, err := s.svc.Entries.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Time entry fetched successfully", Data: toEntryJSON(e)})
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid time entry id")
	if !ok {
		return
	}
	if err := s.svc.Entries.Delete(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Time entry deleted successfully")
}

func (s *Server) handleListProjectEntries(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectId", "Invalid project id")
	if !ok {
		return
	}
	entries, err := s.svc.Entries.ListByProject(r.Context(), currentUser(r.Context()).ID, projectID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Time entries fetched successfully", Data: out})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := core.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
