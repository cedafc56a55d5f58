package server

import (
	"net/http"
	"regexp"
	"strings"

	"mediloop/internal/auth"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

type registerRequest struct {
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Address         string   `json:"address"`
	Password        string   `json:"password"`
	ConfirmPassword string   `json:"confirm_password"`
	UserType        string   `json:"user_type"`
	Terms           flexBool `json:"terms"`
}

func (req *registerRequest) normalize() {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.UserType = strings.TrimSpace(req.UserType)
}

func (req registerRequest) validate() []string {
	var errs []string
	if req.FirstName == "" {
		errs = append(errs, "First name is required")
	} else if auth.TooLong(req.FirstName, auth.MaxNameLength) {
		errs = append(errs, "First name must be at most 50 characters")
	}
	if req.LastName == "" {
		errs = append(errs, "Last name is required")
	} else if auth.TooLong(req.LastName, auth.MaxNameLength) {
		errs = append(errs, "Last name must be at most 50 characters")
	}
	if req.Email == "" {
		errs = append(errs, "Email is required")
	} else if auth.TooLong(req.Email, auth.MaxEmailLength) {
		errs = append(errs, "Email must be at most 100 characters")
	} else if !auth.ValidateEmail(req.Email) {
		errs = append(errs, "Please enter a valid email address")
	}
	if req.Password == "" {
		errs = append(errs, "Password is required")
	} else if err := auth.CheckPasswordLength(req.Password); err != nil {
		errs = append(errs, err.Error())
	}
	if req.Password != req.ConfirmPassword {
		errs = append(errs, "Passwords do not match")
	}
	if auth.TooLong(req.Phone, auth.MaxPhoneLength) {
		errs = append(errs, "Phone number must be at most 20 characters")
	} else if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		errs = append(errs, "Please enter a valid phone number")
	}
	if req.UserType == "" {
		errs = append(errs, "Please select how you want to use MediLoop")
	}
	if !req.Terms {
		errs = append(errs, "You must agree to the Terms of Service and Privacy Policy")
	}
	return errs
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON data. Please check your input.")
		return
	}
	req.normalize()
	if errs := req.validate(); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(errs, ", "))
		return
	}

	res := s.Auth.Register(r.Context(), auth.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Address:   req.Address,
		UserType:  req.UserType,
	})
	if !res.OK() {
		writeError(w, statusFor(res, http.StatusBadRequest), res.Message)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": res.Message})
}

type loginRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Remember flexBool `json:"remember"`
}

func (req loginRequest) validate() []string {
	var errs []string
	if req.Email == "" {
		errs = append(errs, "Email is required")
	} else if !auth.ValidateEmail(req.Email) {
		errs = append(errs, "Please enter a valid email address")
	}
	if req.Password == "" {
		errs = append(errs, "Password is required")
	}
	return errs
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON data. Please check your input.")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if errs := req.validate(); len(errs) > 0 {
		writeError(w, http.StatusBadRequest, strings.Join(errs, ", "))
		return
	}

	c := s.client(r)
	res := s.Auth.Login(r.Context(), c, req.Email, req.Password, bool(req.Remember))
	c.WriteCookies(w)
	if !res.OK() {
		writeError(w, statusFor(res, http.StatusUnauthorized), res.Message)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":  true,
		"message":  res.Message,
		"user":     userPayload(res.User, false),
		"redirect": s.Config.LoginRedirect,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c := s.client(r)
	res := s.Auth.Logout(r.Context(), c)
	c.WriteCookies(w)
	writeJSON(w, http.StatusOK, envelope{
		"success":       true,
		"message":       res.Message,
		"was_logged_in": res.WasLoggedIn,
		"redirect":      s.Config.LogoutRedirect,
	})
}

func (s *Server) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	c := s.client(r)
	res := s.Auth.CurrentUser(r.Context(), c)
	c.WriteCookies(w)

	switch res.Outcome {
	case auth.OutcomeAuthenticated:
		writeJSON(w, http.StatusOK, envelope{
			"success":      true,
			"logged_in":    true,
			"user":         userPayload(res.User, true),
			"session_time": int64(s.now().Sub(res.Session.LoginTime).Seconds()),
		})
	case auth.OutcomeNotLoggedIn, auth.OutcomeSessionInvalid:
		writeJSON(w, http.StatusOK, envelope{
			"success":   true,
			"logged_in": false,
			"message":   res.Message,
		})
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func userPayload(u *auth.User, withVerified bool) envelope {
	p := envelope{
		"id":         u.ID,
		"email":      u.Email,
		"name":       u.FirstName + " " + u.LastName,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"user_type":  string(u.UserType),
	}
	if withVerified {
		p["email_verified"] = u.EmailVerified
	}
	return p
}
