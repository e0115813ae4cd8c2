package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fmuoria/nexushire/internal/agent"
	apperrors "github.com/fmuoria/nexushire/internal/errors"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/xeipuuv/gojsonschema"
)

const maxProcessBody = 1 << 20

// validateProcessRequest checks body against the embedded request schema.
func (s *Server) validateProcessRequest(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.BadRequest("INVALID_INPUT", fmt.Sprintf("Invalid JSON body: %v", err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return apperrors.BadRequest("VALIDATION_FAILED", strings.Join(msgs, "; "))
}

// handleProcess starts a screening run for the authenticated user.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxProcessBody))
	if err != nil {
		s.respondError(w, r, apperrors.BadRequest("INVALID_INPUT", "Could not read request body"))
		return
	}
	if err := s.validateProcessRequest(body); err != nil {
		s.respondError(w, r, err)
		return
	}

	var req models.ProcessRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.respondError(w, r, apperrors.BadRequest("INVALID_INPUT", err.Error()))
		return
	}

	runID, err := s.runner.Start(r.Context(), agent.Job{UserID: user.ID, Request: req})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "started",
		"run_id": runID,
	})
}

// resolveRun picks the run named by ?run_id=, or the caller's latest run.
// An empty id with a nil error means the caller has no runs yet.
func (s *Server) resolveRun(r *http.Request) (string, error) {
	user := userFrom(r.Context())
	requested := r.URL.Query().Get("run_id")
	runID, err := progress.Resolve(r.Context(), s.runner.Progress(), user.ID, requested)
	if errors.Is(err, progress.ErrRunNotFound) && requested == "" {
		return "", nil
	}
	return runID, runError(err)
}

func runError(err error) error {
	if errors.Is(err, progress.ErrRunNotFound) {
		return apperrors.NotFound("Run")
	}
	return err
}

// handleLogs returns the Progress Log of a run.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	runID, err := s.resolveRun(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logs := []string{}
	if runID != "" {
		if logs, err = s.runner.Progress().Logs(r.Context(), runID); err != nil {
			s.respondError(w, r, runError(err))
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"logs":   logs,
	})
}

// handleResults returns the Results Buffer of a run.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	runID, err := s.resolveRun(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	results := []models.ResultEntry{}
	if runID != "" {
		if results, err = s.runner.Progress().Results(r.Context(), runID); err != nil {
			s.respondError(w, r, runError(err))
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  runID,
		"results": results,
	})
}
