package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleInstructor is an instructor user role.
	UserRoleInstructor UserRole = "instructor"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType represents the kind of quiz question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// Course groups quizzes under one grade record per student.
type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Quiz is a scored assessment inside a course.
// Only published quizzes count toward the course grade.
type Quiz struct {
	ID           int64  `json:"id"`
	CourseID     int64  `json:"course_id"`
	LessonID     *int64 `json:"lesson_id,omitempty"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	PassingScore int    `json:"passing_score"`
	TimeLimit    int    `json:"time_limit"`
	MaxAttempts  int    `json:"max_attempts"`
	Weight       int    `json:"weight"`
	Published    bool   `json:"published"`
}

// QuizQuestion belongs to a quiz. Order is a dense 0-based sequence,
// assigned at append time.
type QuizQuestion struct {
	ID      int64        `json:"id"`
	QuizID  int64        `json:"quiz_id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
	Points  int          `json:"points"`
	Order   int          `json:"order"`
}

// AnswerSubmission is one submitted answer, matched to a question by ID.
type AnswerSubmission struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuestionResult records how a single question was scored within an attempt.
type QuestionResult struct {
	QuestionID    int64  `json:"question_id"`
	Answer        string `json:"answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
	PointsAwarded int    `json:"points_awarded"`
}

// QuizAttempt is one immutable scored submission of answers to a quiz.
type QuizAttempt struct {
	ID          int64            `json:"id"`
	QuizID      int64            `json:"quiz_id"`
	UserID      int64            `json:"user_id"`
	Score       int              `json:"score"`
	Passed      bool             `json:"passed"`
	TimeSpent   int              `json:"time_spent"`
	Results     []QuestionResult `json:"results"`
	CompletedAt time.Time        `json:"completed_at"`
}

// AttemptResult is returned to the caller after scoring a submission.
type AttemptResult struct {
	AttemptID    int64            `json:"attempt_id"`
	Score        int              `json:"score"`
	Passed       bool             `json:"passed"`
	EarnedPoints int              `json:"earned_points"`
	TotalPoints  int              `json:"total_points"`
	Results      []QuestionResult `json:"results"`
}

// QuizScoreEntry is one quiz's contribution to a course grade.
type QuizScoreEntry struct {
	QuizID   int64   `json:"quiz_id"`
	Score    int     `json:"score"`
	Weight   int     `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// AssignmentScoreEntry is a placeholder for assignment grading.
// Assignment scoring is not implemented; the list is always empty.
type AssignmentScoreEntry struct {
	AssignmentID int64   `json:"assignment_id"`
	Score        int     `json:"score"`
	Weight       int     `json:"weight"`
	Weighted     float64 `json:"weighted"`
}

// CourseGrade is the single mutable grade record per (user, course).
type CourseGrade struct {
	ID               int64                  `json:"id"`
	UserID           int64                  `json:"user_id"`
	CourseID         int64                  `json:"course_id"`
	QuizScores       []QuizScoreEntry       `json:"quiz_scores"`
	AssignmentScores []AssignmentScoreEntry `json:"assignment_scores"`
	FinalGrade       float64                `json:"final_grade"`
	LetterGrade      string                 `json:"letter_grade"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Enrollment ties a user to a course and tracks their progress.
type Enrollment struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CourseID    int64      `json:"course_id"`
	Progress    float64    `json:"progress"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// QuizReport is the per-quiz detail line in a student's gradebook.
type QuizReport struct {
	Quiz         Quiz         `json:"quiz"`
	AttemptCount int          `json:"attempt_count"`
	BestScore    *int         `json:"best_score"`
	LastAttempt  *QuizAttempt `json:"last_attempt,omitempty"`
	Passed       bool         `json:"passed"`
}

// GradebookView is the display-ready report for one student in one course.
type GradebookView struct {
	Course      Course                 `json:"course"`
	Enrollment  Enrollment             `json:"enrollment"`
	Quizzes     []QuizReport           `json:"quizzes"`
	Assignments []AssignmentScoreEntry `json:"assignments"`
	FinalGrade  float64                `json:"final_grade"`
	LetterGrade string                 `json:"letter_grade"`
}

// CourseGradeSummary is one row in an instructor's course grade listing.
type CourseGradeSummary struct {
	UserID      int64   `json:"user_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	FinalGrade  float64 `json:"final_grade"`
	LetterGrade string  `json:"letter_grade"`
}

// ServeConfig holds runtime parameters set via CLI flags.
type ServeConfig struct {
	Addr          string
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
}
