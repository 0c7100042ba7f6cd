// Package service wires the pure grading computations to the store. It owns
// the three grading operations: attempt submission, course grade
// recalculation, and the student gradebook report.
package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/learnlite/gradebook/internal/grading"
	"github.com/learnlite/gradebook/internal/model"
	"github.com/learnlite/gradebook/internal/store"
)

// ErrAttemptLimit is returned when a user has exhausted a quiz's configured
// maximum number of attempts.
var ErrAttemptLimit = errors.New("attempt limit reached")

// Service coordinates grading operations over the store.
type Service struct {
	store *store.Store
}

// New creates a Service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// SubmitQuizAttempt scores a submission and persists one immutable attempt
// record. A quiz with MaxAttempts > 0 rejects submissions once the user has
// that many attempts on record.
func (s *Service) SubmitQuizAttempt(quizID, userID int64, answers []model.AnswerSubmission, timeSpentSeconds int) (*model.AttemptResult, error) {
	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return nil, err
	}

	if quiz.MaxAttempts > 0 {
		count, err := s.store.CountAttempts(quizID, userID)
		if err != nil {
			return nil, err
		}
		if count >= quiz.MaxAttempts {
			return nil, fmt.Errorf("quiz %d allows %d attempts: %w", quizID, quiz.MaxAttempts, ErrAttemptLimit)
		}
	}

	questions, err := s.store.ListQuestions(quizID)
	if err != nil {
		return nil, err
	}

	sc := grading.ScoreAttempt(questions, answers)
	passed := sc.Score >= quiz.PassingScore

	attemptID, err := s.store.InsertAttempt(model.QuizAttempt{
		QuizID:    quizID,
		UserID:    userID,
		Score:     sc.Score,
		Passed:    passed,
		TimeSpent: timeSpentSeconds,
		Results:   sc.Results,
	})
	if err != nil {
		return nil, fmt.Errorf("persist attempt: %w", err)
	}

	slog.Info("scored quiz attempt",
		"attempt_id", attemptID,
		"quiz_id", quizID,
		"user_id", userID,
		"score", sc.Score,
		"passed", passed,
	)

	return &model.AttemptResult{
		AttemptID:    attemptID,
		Score:        sc.Score,
		Passed:       passed,
		EarnedPoints: sc.EarnedPoints,
		TotalPoints:  sc.TotalPoints,
		Results:      sc.Results,
	}, nil
}

// RecalculateCourseGrade recomputes a user's course grade from scratch and
// upserts the single grade record for the (user, course) pair. Quizzes the
// user never attempted contribute nothing; they are not counted as zeros.
func (s *Service) RecalculateCourseGrade(userID, courseID int64) (int64, error) {
	if _, err := s.store.GetCourse(courseID); err != nil {
		return 0, err
	}

	quizzes, err := s.store.ListQuizzesForCourse(courseID, true)
	if err != nil {
		return 0, err
	}

	var entries []model.QuizScoreEntry
	for _, quiz := range quizzes {
		attempts, err := s.store.ListAttempts(quiz.ID, userID)
		if err != nil {
			return 0, err
		}
		if len(attempts) == 0 {
			continue
		}
		best := bestAttempt(attempts)
		entries = append(entries, grading.WeightedEntry(quiz.ID, best.Score, quiz.Weight))
	}

	// Assignment grading is an extension point; the score list stays empty.

	final, letter := grading.ComputeWeightedGrade(entries)

	gradeID, err := s.store.UpsertCourseGrade(model.CourseGrade{
		UserID:      userID,
		CourseID:    courseID,
		QuizScores:  entries,
		FinalGrade:  final,
		LetterGrade: letter,
	})
	if err != nil {
		return 0, fmt.Errorf("persist course grade: %w", err)
	}

	slog.Info("recalculated course grade",
		"user_id", userID,
		"course_id", courseID,
		"final_grade", final,
		"letter_grade", letter,
		"quizzes", len(entries),
	)
	return gradeID, nil
}

// RecalculateAfterQuizAttempt resolves the quiz's parent course and performs
// the same recalculation as RecalculateCourseGrade. Intended to be called
// right after SubmitQuizAttempt so grades stay current.
func (s *Service) RecalculateAfterQuizAttempt(userID, quizID int64) (int64, error) {
	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return 0, err
	}
	return s.RecalculateCourseGrade(userID, quiz.CourseID)
}

// StudentGradebook assembles the display-ready report for one student in one
// course. When no grade record has been persisted yet, the final grade is
// recomputed inline from the best attempts and NOT persisted.
func (s *Service) StudentGradebook(userID, courseID int64) (*model.GradebookView, error) {
	enrollment, err := s.store.GetEnrollment(userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, fmt.Errorf("enrollment for user %d in course %d: %w", userID, courseID, store.ErrNotFound)
	}

	course, err := s.store.GetCourse(courseID)
	if err != nil {
		return nil, err
	}

	quizzes, err := s.store.ListQuizzesForCourse(courseID, true)
	if err != nil {
		return nil, err
	}

	var reports []model.QuizReport
	var entries []model.QuizScoreEntry
	for _, quiz := range quizzes {
		attempts, err := s.store.ListAttempts(quiz.ID, userID)
		if err != nil {
			return nil, err
		}

		report := model.QuizReport{Quiz: quiz, AttemptCount: len(attempts)}
		if len(attempts) > 0 {
			best := bestAttempt(attempts)
			score := best.Score
			report.BestScore = &score
			report.Passed = score >= quiz.PassingScore

			last := lastAttempt(attempts)
			report.LastAttempt = &last

			entries = append(entries, grading.WeightedEntry(quiz.ID, score, quiz.Weight))
		}
		reports = append(reports, report)
	}

	view := &model.GradebookView{
		Course:      course,
		Enrollment:  *enrollment,
		Quizzes:     reports,
		Assignments: []model.AssignmentScoreEntry{},
		LetterGrade: "N/A",
	}

	grade, err := s.store.GetCourseGrade(userID, courseID)
	if err != nil {
		return nil, err
	}
	switch {
	case grade != nil:
		view.FinalGrade = grade.FinalGrade
		view.LetterGrade = grade.LetterGrade
	case len(entries) > 0:
		view.FinalGrade, view.LetterGrade = grading.ComputeWeightedGrade(entries)
	}

	return view, nil
}

// CourseGrades returns the instructor's grade listing for a course, highest
// final grade first.
func (s *Service) CourseGrades(courseID int64) ([]model.CourseGradeSummary, error) {
	if _, err := s.store.GetCourse(courseID); err != nil {
		return nil, err
	}
	return s.store.ListCourseGrades(courseID)
}

// bestAttempt selects the attempt with the highest score. Ties go to the
// earliest attempt, which keeps recalculation deterministic.
func bestAttempt(attempts []model.QuizAttempt) model.QuizAttempt {
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Score > best.Score {
			best = a
		}
	}
	return best
}

// lastAttempt selects the chronologically latest attempt by completion time.
func lastAttempt(attempts []model.QuizAttempt) model.QuizAttempt {
	last := attempts[0]
	for _, a := range attempts[1:] {
		if a.CompletedAt.After(last.CompletedAt) {
			last = a
		}
	}
	return last
}
