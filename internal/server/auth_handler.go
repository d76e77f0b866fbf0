package server

import (
	"encoding/json"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/markitup/internal/types"
)

// handleToken exchanges the dashboard login for a bearer token
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.jwtService == nil || s.credentials == nil || !s.credentials.Configured() {
		err := &ErrAuthNotConfigured{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var req types.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	if !s.credentials.Verify(req.Username, req.Password) {
		log.Printf("[auth] Rejected login for %q from %s", req.Username, s.extractClientID(r))
		err := &ErrInvalidCredentials{}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	token, err := s.jwtService.GenerateToken(req.Username)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.jsonResponse(w, http.StatusOK, types.TokenResponse{
		Token:     token,
		ExpiresIn: int(s.jwtService.TTL().Seconds()),
	})
}

// extractValidationErrors returns the first validation failure as a message
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return (&ErrValidation{Field: ve.Field(), Message: ve.Tag()}).Error()
		}
	}
	return "validation error: invalid request"
}

// newValidator reports field errors by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
