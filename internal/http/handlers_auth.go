package http

import (
	"net/http"

	"timetrack/internal/services"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.normalize()
	if issues := s.validator.Check(req); issues != nil {
		writeValidation(w, issues)
		return
	}

	u, err := s.svc.Auth.Signup(r.Context(), services.SignupInput{Uname: req.Uname, Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataResponse{
		Msg:  "User registered successfully, Please login for access",
		Data: toUserJSON(u),
	})
}

type loginResponse struct {
	Msg   string `json:"msg"`
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.validator.Check(req) != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, _, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Msg: "User logged in successfully", Token: token})
}
