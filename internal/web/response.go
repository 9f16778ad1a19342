package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/sweeney/irrigation-controller/internal/admin"
	"github.com/sweeney/irrigation-controller/internal/logic"
)

// Response is the envelope for JSON replies to admin actions.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// badRequestError marks a request body that could not be decoded.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// jsonBody reports whether the request body is JSON.
func jsonBody(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/json"
}

// wantsJSON reports whether the client sent or asked for JSON.
func wantsJSON(r *http.Request) bool {
	return jsonBody(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: write response: %v", err)
	}
}

// statusFor maps an admin result to an HTTP status code.
func statusFor(err error) int {
	var ve *logic.ValidationError
	var br *badRequestError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrUnknownPump):
		return http.StatusNotFound
	case errors.Is(err, admin.ErrBusy),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if wantsJSON(r) {
		writeJSON(w, code, Response{Success: false, Message: msg})
		return
	}
	http.Error(w, msg, code)
}

// reply answers an admin action. Successful form posts are redirected back
// to the status page.
func (s *Server) reply(w http.ResponseWriter, r *http.Request, err error, ok string) {
	if err != nil {
		code := statusFor(err)
		msg := err.Error()
		if code == http.StatusServiceUnavailable {
			msg = "controller busy, try again"
		}
		s.fail(w, r, code, msg)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, Response{Success: true, Message: ok})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
