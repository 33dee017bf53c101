// Package web serves a localhost-only single-user review panel; it
// intentionally has no auth/CSRF protection in this mode.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"listingpilot/config"
	"listingpilot/header"
	"listingpilot/journal"
	"listingpilot/review"
	"listingpilot/sheet"
	"listingpilot/transformer"
)

//go:embed templates/*.html
var templateFS embed.FS

// History is the read side of the session journal.
type History interface {
	ListCommits() ([]journal.Commit, error)
	CellOutcomes(batchID uuid.UUID) ([]review.CellOutcome, error)
}

type Server struct {
	controller *review.Controller
	history    History
	cfg        config.Config
	workbook   string

	mux *http.ServeMux
	hub *progressHub
}

type pageView struct {
	Title     string
	Workbook  string
	Mode      string
	Category  string
	SheetName string
	State     StateView
}

type selectionRequest struct {
	Selection   string `json:"selection"`
	Instruction string `json:"instruction,omitempty"`
}

type extractResponse struct {
	Summary review.ExtractSummary `json:"summary"`
	State   StateView             `json:"state"`
}

type commitResponse struct {
	Report     review.CommitReport `json:"report"`
	FlushError string              `json:"flushError,omitempty"`
	State      StateView           `json:"state"`
}

type rowResponse struct {
	Row      int    `json:"row"`
	Title    string `json:"title"`
	Desc     string `json:"description"`
	Tips     string `json:"tips,omitempty"`
	Status   string `json:"status"`
	Workbook string `json:"workbook,omitempty"`
}

// NewServer builds the review panel around controller. history may be nil.
// workbook is only displayed.
func NewServer(controller *review.Controller, history History, cfg config.Config, workbook string) http.Handler {
	server := &Server{
		controller: controller,
		history:    history,
		cfg:        cfg,
		workbook:   workbook,
		hub:        newProgressHub(),
	}
	controller.SetProgressFunc(server.publishProgress)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", server.handleIndex)
	mux.HandleFunc("GET /api/state", server.handleAPIState)
	mux.HandleFunc("POST /api/optimize", server.handleAPIOptimize)
	mux.HandleFunc("POST /api/smart-edit", server.handleAPISmartEdit)
	mux.HandleFunc("POST /api/proposals/select-all", server.handleAPISelectAll)
	mux.HandleFunc("POST /api/proposals/select-none", server.handleAPISelectNone)
	mux.HandleFunc("POST /api/proposals/{id}/toggle", server.handleAPIToggle)
	mux.HandleFunc("POST /api/commit", server.handleAPICommit)
	mux.HandleFunc("POST /api/discard", server.handleAPIDiscard)
	mux.HandleFunc("POST /api/rows/{row}/optimize", server.handleAPIOptimizeRow)
	mux.HandleFunc("GET /api/history", server.handleAPIHistory)
	mux.HandleFunc("GET /api/history/{batch}", server.handleAPIHistoryBatch)
	mux.HandleFunc("GET /ws/progress", server.handleProgressSocket)
	server.mux = mux

	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) publishProgress(p review.Progress) {
	s.hub.broadcast(progressMessage{
		Type:     "progress",
		Progress: p,
		Status:   fmt.Sprintf("Processing row %d of %d...", p.Current, p.Total),
	})
}

func (s *Server) publishState() {
	s.hub.broadcast(progressMessage{Type: "state", Status: s.controller.Status()})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := pageView{
		Title:     "listingpilot review",
		Workbook:  s.workbook,
		Mode:      s.cfg.Transformer.Mode,
		Category:  s.cfg.Transformer.Category,
		SheetName: s.cfg.Sheet.Name,
		State:     buildStateView(s.controller),
	}
	if err := renderTemplate(w, "review.html", view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleAPIState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildStateView(s.controller))
}

func (s *Server) handleAPIOptimize(w http.ResponseWriter, r *http.Request) {
	var body selectionRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sel, err := sheet.ParseSelection(body.Selection)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := s.controller.BulkOptimize(r.Context(), sel)
	s.publishState()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Summary: summary, State: buildStateView(s.controller)})
}

func (s *Server) handleAPISmartEdit(w http.ResponseWriter, r *http.Request) {
	var body selectionRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sel, err := sheet.ParseSelection(body.Selection)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := s.controller.BulkSmartEdit(r.Context(), sel, body.Instruction)
	s.publishState()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Summary: summary, State: buildStateView(s.controller)})
}

func (s *Server) handleAPIToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid proposal id", http.StatusBadRequest)
		return
	}
	s.storeAction(w, func() error { return s.controller.Toggle(id) })
}

func (s *Server) handleAPISelectAll(w http.ResponseWriter, r *http.Request) {
	s.storeAction(w, s.controller.SelectAll)
}

func (s *Server) handleAPISelectNone(w http.ResponseWriter, r *http.Request) {
	s.storeAction(w, s.controller.SelectNone)
}

func (s *Server) handleAPIDiscard(w http.ResponseWriter, r *http.Request) {
	s.storeAction(w, s.controller.Discard)
}

func (s *Server) storeAction(w http.ResponseWriter, action func() error) {
	if err := action(); err != nil {
		writeError(w, err)
		return
	}
	s.publishState()
	writeJSON(w, http.StatusOK, buildStateView(s.controller))
}

func (s *Server) handleAPICommit(w http.ResponseWriter, r *http.Request) {
	report, err := s.controller.Commit(r.Context())
	s.publishState()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := commitResponse{Report: report, State: buildStateView(s.controller)}
	if report.FlushErr != nil {
		resp.FlushError = report.FlushErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIOptimizeRow(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(strings.TrimSpace(r.PathValue("row")))
	if err != nil || row < 1 {
		http.Error(w, "invalid row (expected a 1-based row number)", http.StatusBadRequest)
		return
	}

	result, err := s.controller.OptimizeRow(r.Context(), row-1)
	s.publishState()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rowResponse{
		Row:      row,
		Title:    result.Title,
		Desc:     result.Description,
		Tips:     result.Optimization.Tips,
		Status:   s.controller.Status(),
		Workbook: s.workbook,
	})
}

func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []journal.Commit{})
		return
	}
	commits, err := s.history.ListCommits()
	if err != nil {
		http.Error(w, fmt.Sprintf("list commits: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) handleAPIHistoryBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(strings.TrimSpace(r.PathValue("batch")))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}
	if s.history == nil {
		http.Error(w, "commit not found", http.StatusNotFound)
		return
	}
	outcomes, err := s.history.CellOutcomes(batchID)
	if errors.Is(err, journal.ErrCommitNotFound) {
		http.Error(w, "commit not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("load cell outcomes: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func renderTemplate(w http.ResponseWriter, pageTemplate string, data any) error {
	tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+pageTemplate)
	if err != nil {
		return fmt.Errorf("parse template %s: %w", pageTemplate, err)
	}
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("render template %s: %w", pageTemplate, err)
	}
	return nil
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers with the plain-text status line for err.
func writeError(w http.ResponseWriter, err error) {
	http.Error(w, review.StatusMessage(err), errorStatus(err))
}

func errorStatus(err error) int {
	var apiErr *transformer.APIError
	switch {
	case errors.Is(err, review.ErrBusy), errors.Is(err, review.ErrNothingApproved):
		return http.StatusConflict
	case errors.Is(err, review.ErrEmptySelection),
		errors.Is(err, review.ErrEmptyInstruction),
		errors.Is(err, header.ErrHeaderNotFound),
		errors.Is(err, header.ErrNoCandidateRows):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr), errors.Is(err, transformer.ErrInvalidResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
