package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Student handlers

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}

	now := time.Now().UTC()
	st := &models.Student{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Handle:         strings.TrimSpace(req.Handle),
		ContestHistory: []models.ContestResult{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.CreateStudent(r.Context(), st); err != nil {
		slog.Error("failed to create student", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create student")
		return
	}

	respondJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	st, ok := s.studentFromURL(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	st, err := s.repo.UpdateStudent(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		slog.Error("failed to update student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update student")
		return
	}

	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.DeleteStudent(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		slog.Error("failed to delete student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete student")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "student deleted",
	})
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	filters := models.ListFilters{
		Limit:  100, // default
		Offset: 0,
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filters.Limit = limit
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filters.Offset = offset
		}
	}

	students, err := s.repo.ListStudents(r.Context(), filters)
	if err != nil {
		slog.Error("failed to list students", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list students")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"students": students,
		"total":    len(students),
	})
}

// handleGetContests returns the contest history inside a trailing day window
// (default 30 days).
func (s *Server) handleGetContests(w http.ResponseWriter, r *http.Request) {
	st, ok := s.studentFromURL(w, r)
	if !ok {
		return
	}

	since := trailingWindowStart(r, 30)

	filtered := make([]models.ContestResult, 0)
	for _, c := range st.ContestHistory {
		if !c.Date.Before(since) {
			filtered = append(filtered, c)
		}
	}

	respondJSON(w, http.StatusOK, filtered)
}

// handleGetProblems returns the daily solve history inside a trailing day
// window plus the full difficulty buckets.
func (s *Server) handleGetProblems(w http.ResponseWriter, r *http.Request) {
	st, ok := s.studentFromURL(w, r)
	if !ok {
		return
	}

	since := trailingWindowStart(r, 30)

	history := make([]models.DailyCount, 0)
	buckets := models.Buckets{}
	if st.ProblemStats != nil {
		for _, day := range st.ProblemStats.History {
			if !day.Date.Before(since) {
				history = append(history, day)
			}
		}
		buckets = st.ProblemStats.Buckets
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": history,
		"buckets": buckets,
	})
}

func (s *Server) handleReminderToggle(w http.ResponseWriter, r *http.Request) {
	st, ok := s.studentFromURL(w, r)
	if !ok {
		return
	}

	disabled := !st.ReminderDisabled
	if err := s.repo.SetReminderDisabled(r.Context(), st.ID, disabled); err != nil {
		slog.Error("failed to toggle reminder flag", "error", err, "id", st.ID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to toggle reminder flag")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{
		"reminder_disabled": disabled,
	})
}

// studentFromURL loads the student addressed by the {id} URL parameter,
// writing the error response itself when that fails.
func (s *Server) studentFromURL(w http.ResponseWriter, r *http.Request) (*models.Student, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student id is required")
		return nil, false
	}

	st, err := s.repo.GetStudent(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "student not found")
			return nil, false
		}
		slog.Error("failed to get student", "error", err, "id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get student")
		return nil, false
	}

	return st, true
}

// trailingWindowStart resolves the ?days query parameter to a window start,
// truncated to the UTC day so the boundary does not drift with time of day.
func trailingWindowStart(r *http.Request, defaultDays int) time.Time {
	days := defaultDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}
	return time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
}
