package server

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/bobmcallan/satqueue/internal/models"
	"github.com/bobmcallan/satqueue/internal/services/submission"
)

var (
	errSolverMissing       = errors.New("solver binary does not exist")
	errSolverNotFile       = errors.New("solver path is a directory, not a file")
	errSolverNotExecutable = errors.New("solver binary is not executable")
)

// registerRoutes wires the job submission surface plus health/readiness
// probes onto mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/jobs/submit", s.handleSubmit)
	mux.HandleFunc("/jobs/status/", s.handleStatus)
	mux.HandleFunc("/jobs/result/", s.handleResult)
	mux.HandleFunc("/jobs/history", s.handleHistory)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
}

type submitRequest struct {
	Formula  string `json:"formula"`
	Notation string `json:"notation"`
	Mode     string `json:"mode"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req submitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if req.Notation != "" && models.Notation(req.Notation) != models.NotationRPN {
		WriteErrorWithCode(w, http.StatusBadRequest, "unsupported notation: "+req.Notation, string(submission.KindInvalidFormula))
		return
	}

	mode := models.Mode(req.Mode)
	if mode == "" {
		mode = models.ModeRPN
	}

	result, err := s.app.Submission.Submit(r.Context(), req.Formula, mode)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	runID, ok := parseRunID(w, r, "/jobs/status/")
	if !ok {
		return
	}

	result, err := s.app.Submission.GetStatus(r.Context(), runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	runID, ok := parseRunID(w, r, "/jobs/result/")
	if !ok {
		return
	}

	result, err := s.app.Submission.GetResult(r.Context(), runID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	var beforeID int64
	if v := r.URL.Query().Get("before_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	runs, err := s.app.Submission.ListHistory(r.Context(), limit, beforeID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var nextBeforeID *int64
	if len(runs) > 0 {
		last := runs[len(runs)-1].RunID
		nextBeforeID = &last
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":           runs,
		"next_before_id": nextBeforeID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady probes the solver binary's presence/executability and
// Store/Broker connectivity, mirroring the original liveness/readiness
// split.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := checkSolverExecutable(s.app.Config.Solver.PathFast); err != nil {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err := s.app.Store.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "store not reachable: "+err.Error())
		return
	}
	if err := s.app.Broker.Ping(r.Context()); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "broker not reachable: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "solver exists, is a file and is executable, and store/broker are reachable",
	})
}

func checkSolverExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errSolverMissing
	}
	if info.IsDir() {
		return errSolverNotFile
	}
	if info.Mode()&0o111 == 0 {
		return errSolverNotExecutable
	}
	return nil
}

func parseRunID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := PathParam(r, prefix, "")
	runID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid run_id")
		return 0, false
	}
	return runID, true
}

// writeServiceError maps a submission.Error's Kind to its HTTP status.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	svcErr, ok := err.(*submission.Error)
	if !ok {
		WriteErrorWithCode(w, http.StatusInternalServerError, err.Error(), string(submission.KindInternal))
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case submission.KindInvalidFormula, submission.KindResultNotReady:
		status = http.StatusBadRequest
	case submission.KindNotFound:
		status = http.StatusNotFound
	case submission.KindBrokerUnavailable:
		status = http.StatusServiceUnavailable
	}

	WriteErrorWithCode(w, status, svcErr.Message, string(svcErr.Kind))
}
