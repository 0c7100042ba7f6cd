package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnlite/gradebook/internal/model"
)

type createCourseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	id, err := h.store.CreateCourse(model.Course{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"course_id": id})
}

type createQuizRequest struct {
	LessonID     *int64 `json:"lesson_id"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	PassingScore int    `json:"passing_score" validate:"min=0,max=100"`
	TimeLimit    int    `json:"time_limit" validate:"min=0"`
	MaxAttempts  int    `json:"max_attempts" validate:"min=0"`
	Weight       int    `json:"weight" validate:"min=0"`
	Published    bool   `json:"published"`
}

func (h *Handler) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	courseID, ok := urlID(r, "courseID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid course ID"})
		return
	}

	var req createQuizRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	// Reject quizzes for courses that do not exist.
	if _, err := h.store.GetCourse(courseID); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.store.CreateQuiz(model.Quiz{
		CourseID:     courseID,
		LessonID:     req.LessonID,
		Title:        req.Title,
		Description:  req.Description,
		PassingScore: req.PassingScore,
		TimeLimit:    req.TimeLimit,
		MaxAttempts:  req.MaxAttempts,
		Weight:       req.Weight,
		Published:    req.Published,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"quiz_id": id})
}

type appendQuestionRequest struct {
	Type    model.QuestionType `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Prompt  string             `json:"prompt" validate:"required"`
	Options []string           `json:"options"`
	Answer  string             `json:"answer" validate:"required"`
	Points  int                `json:"points" validate:"min=0"`
}

func (h *Handler) handleAppendQuestion(w http.ResponseWriter, r *http.Request) {
	quizID, ok := urlID(r, "quizID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quiz ID"})
		return
	}

	var req appendQuestionRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if _, err := h.store.GetQuiz(quizID); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.store.AppendQuestion(model.QuizQuestion{
		QuizID:  quizID,
		Type:    req.Type,
		Prompt:  req.Prompt,
		Options: req.Options,
		Answer:  req.Answer,
		Points:  req.Points,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"question_id": id})
}

type publishQuizRequest struct {
	Published bool `json:"published"`
}

func (h *Handler) handlePublishQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := urlID(r, "quizID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quiz ID"})
		return
	}

	var req publishQuizRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.store.SetQuizPublished(quizID, req.Published); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := urlID(r, "quizID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid quiz ID"})
		return
	}

	if _, err := h.store.GetQuiz(quizID); err != nil {
		respondError(w, err)
		return
	}
	if err := h.store.DeleteQuiz(quizID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enrollRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := urlID(r, "courseID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid course ID"})
		return
	}

	var req enrollRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if _, err := h.store.GetCourse(courseID); err != nil {
		respondError(w, err)
		return
	}

	id, err := h.store.CreateEnrollment(req.UserID, courseID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"enrollment_id": id})
}

type progressRequest struct {
	Progress float64 `json:"progress" validate:"min=0,max=1"`
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
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

	var req progressRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.store.UpdateEnrollmentProgress(userID, courseID, req.Progress); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleImportContent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "file too large"})
		return
	}

	file, header, err := r.FormFile("content_file")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "no file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read file"})
		return
	}

	imported, skipped, err := h.svc.ImportContent(header.Filename, data)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if skipped {
		respondJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}

	slog.Info("imported content via admin", "filename", header.Filename, "courses", imported)
	respondJSON(w, http.StatusCreated, map[string]any{
		"status":  "imported",
		"courses": imported,
	})
}

type createUserRequest struct {
	Username    string         `json:"username" validate:"required,max=100"`
	DisplayName string         `json:"display_name" validate:"max=200"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        model.UserRole `json:"role" validate:"required,oneof=student instructor admin"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	})
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: fmt.Sprintf("failed to create user: %v", err)})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int64{"user_id": id})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		respondError(w, err)
		return
	}

	type userView struct {
		ID          int64          `json:"id"`
		Username    string         `json:"username"`
		DisplayName string         `json:"display_name"`
		Role        model.UserRole `json:"role"`
		Active      bool           `json:"active"`
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			Active:      u.Active,
		})
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "userID")
	if !ok {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user ID"})
		return
	}

	if err := h.store.ToggleUserActive(id); err != nil {
		slog.Error("failed to toggle user active", "id", id, "error", err)
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
