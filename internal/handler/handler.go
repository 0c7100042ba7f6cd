package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/learnlite/gradebook/internal/model"
	"github.com/learnlite/gradebook/internal/service"
	"github.com/learnlite/gradebook/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	svc      *service.Service
	validate *validator.Validate
	config   model.ServeConfig
}

// New creates a new Handler.
func New(s *store.Store, svc *service.Service, cfg model.ServeConfig) *Handler {
	return &Handler{
		store:    s,
		svc:      svc,
		validate: validator.New(),
		config:   cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/courses", h.handleListCourses)
		r.Get("/enrollments", h.handleListEnrollments)
		r.Post("/quizzes/{quizID}/attempts", h.handleSubmitAttempt)
		r.Get("/courses/{courseID}/gradebook", h.handleGradebook)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleInstructor, model.UserRoleAdmin))

			r.Post("/courses", h.handleCreateCourse)
			r.Post("/courses/{courseID}/quizzes", h.handleCreateQuiz)
			r.Post("/quizzes/{quizID}/questions", h.handleAppendQuestion)
			r.Post("/quizzes/{quizID}/publish", h.handlePublishQuiz)
			r.Delete("/quizzes/{quizID}", h.handleDeleteQuiz)
			r.Post("/courses/{courseID}/enrollments", h.handleEnroll)
			r.Put("/courses/{courseID}/enrollments/{userID}/progress", h.handleUpdateProgress)
			r.Post("/courses/{courseID}/grades/{userID}/recalculate", h.handleRecalculate)
			r.Get("/courses/{courseID}/grades", h.handleCourseGrades)
			r.Post("/import", h.handleImportContent)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))

			r.Get("/admin/users", h.handleListUsers)
			r.Post("/admin/users", h.handleCreateUser)
			r.Post("/admin/users/{userID}/toggle", h.handleToggleUserActive)
		})
	})
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps service and store errors to HTTP statuses.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrAttemptLimit):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeValid decodes a JSON body into dst and runs struct validation.
func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func urlID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

type submitAttemptRequest struct {
	Answers          []model.AnswerSubmission `json:"answers" validate:"required,dive"`
	TimeSpentSeconds int                      `json:"time_spent_seconds" validate:"min=0"`
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	quizID, ok := urlID(r, "quizID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quiz ID"})
		return
	}

	var req submitAttemptRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	user := model.UserFromContext(r.Context())

	result, err := h.svc.SubmitQuizAttempt(quizID, user.ID, req.Answers, req.TimeSpentSeconds)
	if err != nil {
		respondError(w, err)
		return
	}

	// Keep the course grade current. Submission and recalculation are two
	// separate writes; a failure here leaves the attempt in place and the
	// grade stale until the next recalculation.
	if _, err := h.svc.RecalculateAfterQuizAttempt(user.ID, quizID); err != nil {
		slog.Error("grade recalculation after attempt failed", "quiz_id", quizID, "user_id", user.ID, "error", err)
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleGradebook(w http.ResponseWriter, r *http.Request) {
	courseID, ok := urlID(r, "courseID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid course ID"})
		return
	}

	user := model.UserFromContext(r.Context())
	userID := user.ID

	// Instructors and admins may inspect any student's gradebook.
	if q := r.URL.Query().Get("user_id"); q != "" {
		if user.Role == model.UserRoleStudent {
			respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user_id"})
			return
		}
		userID = id
	}

	view, err := h.svc.StudentGradebook(userID, courseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	courseID, ok := urlID(r, "courseID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid course ID"})
		return
	}
	userID, ok := urlID(r, "userID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user ID"})
		return
	}

	gradeID, err := h.svc.RecalculateCourseGrade(userID, courseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"grade_id": gradeID})
}

func (h *Handler) handleCourseGrades(w http.ResponseWriter, r *http.Request) {
	courseID, ok := urlID(r, "courseID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid course ID"})
		return
	}

	grades, err := h.svc.CourseGrades(courseID)
	if err != nil {
		respondError(w, err)
		return
	}
	if grades == nil {
		grades = []model.CourseGradeSummary{}
	}
	respondJSON(w, http.StatusOK, grades)
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.ListCourses()
	if err != nil {
		respondError(w, err)
		return
	}
	if courses == nil {
		courses = []model.Course{}
	}
	respondJSON(w, http.StatusOK, courses)
}

func (h *Handler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	enrollments, err := h.store.ListEnrollments(user.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if enrollments == nil {
		enrollments = []model.Enrollment{}
	}
	respondJSON(w, http.StatusOK, enrollments)
}
