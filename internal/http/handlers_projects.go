package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"timetrack/internal/services"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.Projects.List(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]projectJSON, len(projects))
	for i, p := range projects {
		out[i] = toProjectJSON(p)
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Projects fetched successfully", Data: out})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid project id")
	if !ok {
		return
	}
	p, err := s.svc.Projects.Get(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Project fetched successfully", Data: toProjectJSON(p)})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if issues := s.validator.Check(req); issues != nil {
		writeValidation(w, issues)
		return
	}

	p, err := s.svc.Projects.Create(r.Context(), currentUser(r.Context()).ID, services.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		IsBillable:  req.IsBillable,
		HourlyRate:  req.HourlyRate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{Msg: "Project created successfully", Data: toProjectJSON(p)})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid project id")
	if !ok {
		return
	}
	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if issues := s.validator.Check(req); issues != nil {
		writeValidation(w, issues)
		return
	}

	p, err := s.svc.Projects.Update(r.Context(), currentUser(r.Context()).ID, id, services.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		IsBillable:  req.IsBillable,
		HourlyRate:  req.HourlyRate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Msg: "Project updated successfully", Data: toProjectJSON(p)})
}

type deleteProjectResponse struct {
	Msg            string `json:"msg"`
	EntriesRemoved int64  `json:"entriesRemoved"`
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid project id")
	if !ok {
		return
	}
	purged, err := s.svc.Projects.Deactivate(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteProjectResponse{Msg: "Project deleted (soft) successfully", EntriesRemoved: purged})
}

// pathID reads a UUID path parameter, answering 400 with invalidMsg when
// it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param, invalidMsg string) (string, bool) {
	id := chi.URLParam(r, param)
	if uuid.Validate(id) != nil {
		writeMessage(w, http.StatusBadRequest, invalidMsg)
		return "", false
	}
	return id, true
}
