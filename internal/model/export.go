package model

import "time"

// GradeExport is the top-level JSON structure for grade export.
type GradeExport struct {
	ExportedAt time.Time     `json:"exported_at"`
	Grades     []GradeRecord `json:"grades"`
}

// GradeRecord holds one student's course grade for export.
type GradeRecord struct {
	Username    string           `json:"username"`
	DisplayName string           `json:"display_name"`
	CourseTitle string           `json:"course_title"`
	FinalGrade  float64          `json:"final_grade"`
	LetterGrade string           `json:"letter_grade"`
	UpdatedAt   time.Time        `json:"updated_at"`
	QuizScores  []QuizScoreEntry `json:"quiz_scores"`
}

// CourseImport is used for loading course content from JSON.
type CourseImport struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Quizzes     []QuizImport `json:"quizzes"`
}

// QuizImport describes one quiz in a course import file.
type QuizImport struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	PassingScore int              `json:"passing_score"`
	TimeLimit    int              `json:"time_limit"`
	MaxAttempts  int              `json:"max_attempts"`
	Weight       int              `json:"weight"`
	Published    bool             `json:"published"`
	Questions    []QuestionImport `json:"questions"`
}

// QuestionImport describes one question in a course import file.
type QuestionImport struct {
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Answer  string       `json:"answer"`
	Points  int          `json:"points"`
}
