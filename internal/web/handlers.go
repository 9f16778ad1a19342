package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sweeney/irrigation-controller/internal/admin"
	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
)

const maxBodyBytes = 16 << 10

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("http: render index: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleToggleManual(w http.ResponseWriter, r *http.Request) {
	pump := logic.PumpID(chi.URLParam(r, "id"))
	err := s.submit(r, admin.NewRequest(admin.OpToggleManual, pump, nil))
	s.reply(w, r, err, fmt.Sprintf("%s manual state toggled", pump))
}

func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	pump := logic.PumpID(chi.URLParam(r, "id"))
	err := s.submit(r, admin.NewRequest(admin.OpToggleSchedule, pump, nil))
	s.reply(w, r, err, fmt.Sprintf("%s schedule toggled", pump))
}

func (s *Server) handleResetOverride(w http.ResponseWriter, r *http.Request) {
	err := s.submit(r, admin.NewRequest(admin.OpResetOverride, "", nil))
	s.reply(w, r, err, "manual override cleared")
}

func (s *Server) handleReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	pump := logic.PumpID(chi.URLParam(r, "id"))
	windows, err := readWindows(w, r)
	if err != nil {
		s.reply(w, r, &badRequestError{err: err}, "")
		return
	}
	err = s.submit(r, admin.NewRequest(admin.OpReplaceSchedule, pump, windows))
	s.reply(w, r, err, fmt.Sprintf("%s schedule replaced (%d windows)", pump, len(windows)))
}

// submit hands req to the control loop and waits for its result.
func (s *Server) submit(r *http.Request, req *admin.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.Timeout)
	defer cancel()

	log.Printf("admin: queued %s", req)
	err := s.queue.Submit(ctx, req)
	if err != nil {
		log.Printf("admin: %s failed: %v", req, err)
	}
	return err
}

type scheduleRequest struct {
	Windows *[]logic.RawWindow `json:"windows"`
}

// readWindows decodes a schedule submission from either a JSON body or the
// "windows" form field. Range checks are left to the controller.
func readWindows(w http.ResponseWriter, r *http.Request) ([]logic.RawWindow, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if jsonBody(r) {
		var req scheduleRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		if req.Windows == nil {
			return nil, errors.New(`missing "windows"`)
		}
		return *req.Windows, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	if _, ok := r.PostForm["windows"]; !ok {
		return nil, errors.New(`missing "windows"`)
	}
	return logic.ParseWindows(r.PostForm.Get("windows"))
}
