package server

import (
	"net/http"
	"strings"

	"mediloop/internal/auth"
)

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (req resetPasswordRequest) validate() []string {
	var errs []string
	if strings.TrimSpace(req.Token) == "" {
		errs = append(errs, "Reset token is required")
	}
	if req.Password == "" {
		errs = append(errs, "Password is required")
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, "Passwords do not match")
	}
	return errs
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.writeResult(w, s.Auth.VerifyEmail(r.Context(), req.Token))
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	email, ok := s.decodeEmail(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.Auth.ResendVerification(r.Context(), email))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	email, ok := s.decodeEmail(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.Auth.RequestPasswordReset(r.Context(), email))
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(errs, ", "))
		return
	}
	s.writeResult(w, s.Auth.ResetPassword(r.Context(), req.Token, req.Password))
}

func (s *Server) decodeEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	email := strings.TrimSpace(req.Email)
	if !auth.ValidateEmail(email) {
		writeError(w, http.StatusBadRequest, "Please enter a valid email address")
		return "", false
	}
	return email, true
}

// writeResult renders the token-flow envelope; credential failures are 400 here.
func (s *Server) writeResult(w http.ResponseWriter, res auth.Result) {
	if !res.OK() {
		writeError(w, statusFor(res, http.StatusBadRequest), res.Message)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": res.Message})
}
