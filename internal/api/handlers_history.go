package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	apperrors "github.com/fmuoria/nexushire/internal/errors"
	"github.com/fmuoria/nexushire/internal/export"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/storage"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// handleHistory lists the caller's batches, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	batches, err := s.batches.ListByUser(r.Context(), user.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	history := make([]models.HistoryEntry, 0, len(batches))
	for _, b := range batches {
		history = append(history, models.NewHistoryEntry(b))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"history": history})
}

// loadBatch returns the {batch_id} batch and its results when the caller owns it.
func (s *Server) loadBatch(r *http.Request) (*models.ScreeningBatch, []models.CandidateResult, error) {
	batchID, err := strconv.ParseInt(mux.Vars(r)["batch_id"], 10, 64)
	if err != nil {
		return nil, nil, apperrors.BadRequest("INVALID_BATCH_ID", "batch_id must be an integer")
	}

	user := userFrom(r.Context())
	batch, err := s.batches.GetForUser(r.Context(), batchID, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, apperrors.NotFound("Batch")
	}
	if err != nil {
		return nil, nil, err
	}

	results, err := s.batches.Results(r.Context(), batch.ID)
	if err != nil {
		return nil, nil, err
	}
	return batch, results, nil
}

// handleBatch returns one batch with its candidate results.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	batch, results, err := s.loadBatch(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entries := make([]models.ResultEntry, 0, len(results))
	for _, res := range results {
		entries = append(entries, models.ResultEntry{Email: res.Email, Status: res.Status})
	}

	respondJSON(w, http.StatusOK, models.BatchDetail{
		Company: batch.CompanyName,
		Role:    batch.RoleName,
		Results: entries,
	})
}

// handleExport streams a batch as an Excel workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	batch, results, err := s.loadBatch(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	report := export.NewReport(*batch, results)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName()))
	if err := export.WriteExcel(w, report); err != nil {
		s.logger.Error("Failed to write export", zap.Int64("batch_id", batch.ID), zap.Error(err))
	}
}
