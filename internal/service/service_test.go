package service

import (
	"errors"
	"testing"
	"time"

	"github.com/learnlite/gradebook/internal/model"
	"github.com/learnlite/gradebook/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("newTestService: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func seedUser(t *testing.T, s *store.Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         model.UserRoleStudent,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return id
}

func seedCourse(t *testing.T, s *store.Store, title string) int64 {
	t.Helper()
	id, err := s.CreateCourse(model.Course{Title: title})
	if err != nil {
		t.Fatalf("seedCourse: %v", err)
	}
	return id
}

func seedQuiz(t *testing.T, s *store.Store, courseID int64, title string, passingScore, maxAttempts, weight int, published bool) int64 {
	t.Helper()
	id, err := s.CreateQuiz(model.Quiz{
		CourseID:     courseID,
		Title:        title,
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
		Weight:       weight,
		Published:    published,
	})
	if err != nil {
		t.Fatalf("seedQuiz: %v", err)
	}
	return id
}

func seedQuestion(t *testing.T, s *store.Store, quizID int64, answer string, points int) int64 {
	t.Helper()
	id, err := s.AppendQuestion(model.QuizQuestion{
		QuizID: quizID,
		Type:   model.QuestionMultipleChoice,
		Prompt: "prompt",
		Answer: answer,
		Points: points,
	})
	if err != nil {
		t.Fatalf("seedQuestion: %v", err)
	}
	return id
}

// seedAttempt inserts a pre-scored attempt directly, bypassing the scorer.
func seedAttempt(t *testing.T, s *store.Store, quizID, userID int64, score int, completedAt time.Time) {
	t.Helper()
	_, err := s.InsertAttempt(model.QuizAttempt{
		QuizID:      quizID,
		UserID:      userID,
		Score:       score,
		Passed:      score >= 60,
		CompletedAt: completedAt,
	})
	if err != nil {
		t.Fatalf("seedAttempt: %v", err)
	}
}

func TestSubmitQuizAttempt(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Basics", 60, 0, 1, true)
	q1 := seedQuestion(t, s, quizID, "Paris", 5)
	q2 := seedQuestion(t, s, quizID, "true", 5)
	userID := seedUser(t, s, "alice")

	// First submission: only Q1 correct.
	result, err := svc.SubmitQuizAttempt(quizID, userID, []model.AnswerSubmission{
		{QuestionID: q1, Answer: "Paris"},
		{QuestionID: q2, Answer: "false"},
	}, 300)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}
	if result.EarnedPoints != 5 || result.TotalPoints != 10 {
		t.Errorf("expected 5/10 points, got %d/%d", result.EarnedPoints, result.TotalPoints)
	}
	if result.Score != 50 {
		t.Errorf("expected score 50, got %d", result.Score)
	}
	if result.Passed {
		t.Error("expected failed attempt")
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 question results, got %d", len(result.Results))
	}
	if !result.Results[0].Correct || result.Results[1].Correct {
		t.Errorf("unexpected correctness: %+v", result.Results)
	}

	// Second submission: both correct.
	result, err = svc.SubmitQuizAttempt(quizID, userID, []model.AnswerSubmission{
		{QuestionID: q1, Answer: "Paris"},
		{QuestionID: q2, Answer: "true"},
	}, 200)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt second: %v", err)
	}
	if result.Score != 100 || !result.Passed {
		t.Errorf("expected 100/passed, got %d/%v", result.Score, result.Passed)
	}

	// Attempts are immutable, independent records.
	attempts, err := s.ListAttempts(quizID, userID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Score != 50 || attempts[1].Score != 100 {
		t.Errorf("unexpected attempt scores: %+v", attempts)
	}
}

func TestSubmitQuizAttemptQuizNotFound(t *testing.T) {
	svc, s := newTestService(t)
	userID := seedUser(t, s, "alice")

	_, err := svc.SubmitQuizAttempt(9999, userID, nil, 0)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitQuizAttemptMaxAttempts(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Basics", 60, 2, 1, true)
	q1 := seedQuestion(t, s, quizID, "a", 5)
	userID := seedUser(t, s, "alice")

	answers := []model.AnswerSubmission{{QuestionID: q1, Answer: "a"}}
	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitQuizAttempt(quizID, userID, answers, 10); err != nil {
			t.Fatalf("SubmitQuizAttempt %d: %v", i, err)
		}
	}

	_, err := svc.SubmitQuizAttempt(quizID, userID, answers, 10)
	if !errors.Is(err, ErrAttemptLimit) {
		t.Errorf("expected ErrAttemptLimit, got %v", err)
	}

	// The limit is per user.
	bobID := seedUser(t, s, "bob")
	if _, err := svc.SubmitQuizAttempt(quizID, bobID, answers, 10); err != nil {
		t.Errorf("expected bob's attempt to succeed, got %v", err)
	}
}

func TestSubmitQuizAttemptZeroPoints(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Empty", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")

	// No questions at all: score 0, no error.
	result, err := svc.SubmitQuizAttempt(quizID, userID, nil, 0)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}
	if result.Score != 0 || result.Passed {
		t.Errorf("expected score 0 and failed, got %d/%v", result.Score, result.Passed)
	}
}

func TestRecalculateCourseGradeBestAttempt(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")

	now := time.Now()
	for i, score := range []int{40, 95, 70} {
		seedAttempt(t, s, quizID, userID, score, now.Add(time.Duration(i)*time.Minute))
	}

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}

	g, err := s.GetCourseGrade(userID, courseID)
	if err != nil {
		t.Fatalf("GetCourseGrade: %v", err)
	}
	if g == nil {
		t.Fatal("expected grade record")
	}
	if g.FinalGrade != 95 {
		t.Errorf("expected final grade 95 (best attempt), got %v", g.FinalGrade)
	}
	if g.LetterGrade != "A" {
		t.Errorf("expected letter A, got %q", g.LetterGrade)
	}
	if len(g.QuizScores) != 1 || g.QuizScores[0].Score != 95 {
		t.Errorf("unexpected quiz scores: %+v", g.QuizScores)
	}
}

func TestRecalculateCourseGradeSkipsUnattemptedAndUnpublished(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	attempted := seedQuiz(t, s, courseID, "Attempted", 60, 0, 1, true)
	seedQuiz(t, s, courseID, "Untouched", 60, 0, 1, true)
	unpublished := seedQuiz(t, s, courseID, "Draft", 60, 0, 1, false)
	userID := seedUser(t, s, "alice")

	seedAttempt(t, s, attempted, userID, 80, time.Now())
	seedAttempt(t, s, unpublished, userID, 10, time.Now())

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}

	g, _ := s.GetCourseGrade(userID, courseID)
	// Unattempted quizzes are skipped (not zeros) and unpublished quizzes
	// never count, so the only contribution is the 80.
	if g.FinalGrade != 80 {
		t.Errorf("expected final grade 80, got %v", g.FinalGrade)
	}
	if len(g.QuizScores) != 1 {
		t.Errorf("expected 1 quiz score entry, got %d", len(g.QuizScores))
	}
}

func TestRecalculateCourseGradeWeighted(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	q1 := seedQuiz(t, s, courseID, "Q1", 60, 0, 2, true)
	q2 := seedQuiz(t, s, courseID, "Q2", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")

	seedAttempt(t, s, q1, userID, 90, time.Now())
	seedAttempt(t, s, q2, userID, 60, time.Now())

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}

	g, _ := s.GetCourseGrade(userID, courseID)
	// (90*2 + 60*1) / 3 = 80
	if g.FinalGrade != 80 {
		t.Errorf("expected final grade 80, got %v", g.FinalGrade)
	}
	if g.LetterGrade != "B" {
		t.Errorf("expected letter B, got %q", g.LetterGrade)
	}
}

func TestRecalculateCourseGradeNoAttempts(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}
	g, _ := s.GetCourseGrade(userID, courseID)
	if g.FinalGrade != 0 || g.LetterGrade != "F" {
		t.Errorf("expected 0/F, got %v/%q", g.FinalGrade, g.LetterGrade)
	}
}

func TestRecalculateCourseGradeIdempotent(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")
	seedAttempt(t, s, quizID, userID, 85, time.Now())

	firstID, err := svc.RecalculateCourseGrade(userID, courseID)
	if err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}
	first, _ := s.GetCourseGrade(userID, courseID)

	secondID, err := svc.RecalculateCourseGrade(userID, courseID)
	if err != nil {
		t.Fatalf("RecalculateCourseGrade again: %v", err)
	}
	second, _ := s.GetCourseGrade(userID, courseID)

	if firstID != secondID {
		t.Errorf("expected same grade record, got %d then %d", firstID, secondID)
	}
	if first.FinalGrade != second.FinalGrade || first.LetterGrade != second.LetterGrade {
		t.Errorf("grades differ: %+v vs %+v", first, second)
	}
	if len(first.QuizScores) != len(second.QuizScores) {
		t.Errorf("score lists differ: %d vs %d", len(first.QuizScores), len(second.QuizScores))
	}
}

func TestRecalculateCourseGradeCourseNotFound(t *testing.T) {
	svc, s := newTestService(t)
	userID := seedUser(t, s, "alice")

	_, err := svc.RecalculateCourseGrade(userID, 9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	// Nothing was written.
	g, _ := s.GetCourseGrade(userID, 9999)
	if g != nil {
		t.Error("expected no grade record")
	}
}

func TestRecalculateAfterQuizAttempt(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")
	seedAttempt(t, s, quizID, userID, 100, time.Now())

	if _, err := svc.RecalculateAfterQuizAttempt(userID, quizID); err != nil {
		t.Fatalf("RecalculateAfterQuizAttempt: %v", err)
	}

	g, _ := s.GetCourseGrade(userID, courseID)
	if g == nil || g.FinalGrade != 100 || g.LetterGrade != "A" {
		t.Errorf("expected 100/A, got %+v", g)
	}

	_, err := svc.RecalculateAfterQuizAttempt(userID, 9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing quiz, got %v", err)
	}
}

func TestSubmitThenRecalculateEndToEnd(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	q1 := seedQuestion(t, s, quizID, "a", 5)
	q2 := seedQuestion(t, s, quizID, "b", 5)
	userID := seedUser(t, s, "alice")

	// First attempt: Q1 only. Second: both.
	res, err := svc.SubmitQuizAttempt(quizID, userID, []model.AnswerSubmission{{QuestionID: q1, Answer: "a"}}, 60)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt: %v", err)
	}
	if res.Score != 50 || res.Passed {
		t.Fatalf("expected 50/failed, got %d/%v", res.Score, res.Passed)
	}
	res, err = svc.SubmitQuizAttempt(quizID, userID, []model.AnswerSubmission{
		{QuestionID: q1, Answer: "a"},
		{QuestionID: q2, Answer: "b"},
	}, 60)
	if err != nil {
		t.Fatalf("SubmitQuizAttempt second: %v", err)
	}
	if res.Score != 100 || !res.Passed {
		t.Fatalf("expected 100/passed, got %d/%v", res.Score, res.Passed)
	}

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}
	g, _ := s.GetCourseGrade(userID, courseID)
	// Best attempt counts, not the average.
	if g.FinalGrade != 100 || g.LetterGrade != "A" {
		t.Errorf("expected 100.00/A, got %v/%q", g.FinalGrade, g.LetterGrade)
	}
}

func TestStudentGradebook(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")

	// No enrollment yet.
	_, err := svc.StudentGradebook(userID, courseID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound without enrollment, got %v", err)
	}

	if _, err := s.CreateEnrollment(userID, courseID); err != nil {
		t.Fatalf("CreateEnrollment: %v", err)
	}

	now := time.Now()
	seedAttempt(t, s, quizID, userID, 70, now.Add(-time.Hour))
	seedAttempt(t, s, quizID, userID, 90, now.Add(-30*time.Minute))
	seedAttempt(t, s, quizID, userID, 40, now)

	if _, err := svc.RecalculateCourseGrade(userID, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade: %v", err)
	}

	view, err := svc.StudentGradebook(userID, courseID)
	if err != nil {
		t.Fatalf("StudentGradebook: %v", err)
	}
	if view.Course.Title != "Go" {
		t.Errorf("unexpected course: %+v", view.Course)
	}
	if len(view.Quizzes) != 1 {
		t.Fatalf("expected 1 quiz report, got %d", len(view.Quizzes))
	}
	report := view.Quizzes[0]
	if report.AttemptCount != 3 {
		t.Errorf("expected 3 attempts, got %d", report.AttemptCount)
	}
	if report.BestScore == nil || *report.BestScore != 90 {
		t.Errorf("expected best score 90, got %v", report.BestScore)
	}
	if !report.Passed {
		t.Error("expected passed (best 90 >= 60)")
	}
	// Last attempt is chronological, not the best one.
	if report.LastAttempt == nil || report.LastAttempt.Score != 40 {
		t.Errorf("expected last attempt score 40, got %+v", report.LastAttempt)
	}
	if view.FinalGrade != 90 || view.LetterGrade != "A" {
		t.Errorf("expected persisted 90/A, got %v/%q", view.FinalGrade, view.LetterGrade)
	}
	if len(view.Assignments) != 0 {
		t.Errorf("expected empty assignments, got %v", view.Assignments)
	}
}

func TestStudentGradebookInlineFallback(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 0, true) // weight unset
	userID := seedUser(t, s, "alice")
	if _, err := s.CreateEnrollment(userID, courseID); err != nil {
		t.Fatalf("CreateEnrollment: %v", err)
	}
	seedAttempt(t, s, quizID, userID, 85, time.Now())

	// No persisted grade record: fall back to the simple average, computed
	// inline and never written.
	view, err := svc.StudentGradebook(userID, courseID)
	if err != nil {
		t.Fatalf("StudentGradebook: %v", err)
	}
	if view.FinalGrade != 85 || view.LetterGrade != "B" {
		t.Errorf("expected inline 85/B, got %v/%q", view.FinalGrade, view.LetterGrade)
	}

	g, err := s.GetCourseGrade(userID, courseID)
	if err != nil {
		t.Fatalf("GetCourseGrade: %v", err)
	}
	if g != nil {
		t.Error("read path must not persist a grade record")
	}
}

func TestStudentGradebookNoAttempts(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	userID := seedUser(t, s, "alice")
	if _, err := s.CreateEnrollment(userID, courseID); err != nil {
		t.Fatalf("CreateEnrollment: %v", err)
	}

	view, err := svc.StudentGradebook(userID, courseID)
	if err != nil {
		t.Fatalf("StudentGradebook: %v", err)
	}
	if view.FinalGrade != 0 || view.LetterGrade != "N/A" {
		t.Errorf("expected 0/N/A, got %v/%q", view.FinalGrade, view.LetterGrade)
	}
	if view.Quizzes[0].BestScore != nil {
		t.Errorf("expected nil best score, got %v", view.Quizzes[0].BestScore)
	}
	if view.Quizzes[0].Passed {
		t.Error("expected not passed without attempts")
	}
}

func TestCourseGrades(t *testing.T) {
	svc, s := newTestService(t)
	courseID := seedCourse(t, s, "Go")
	quizID := seedQuiz(t, s, courseID, "Q", 60, 0, 1, true)
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")

	seedAttempt(t, s, quizID, alice, 75, time.Now())
	seedAttempt(t, s, quizID, bob, 95, time.Now())
	if _, err := svc.RecalculateCourseGrade(alice, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade alice: %v", err)
	}
	if _, err := svc.RecalculateCourseGrade(bob, courseID); err != nil {
		t.Fatalf("RecalculateCourseGrade bob: %v", err)
	}

	grades, err := svc.CourseGrades(courseID)
	if err != nil {
		t.Fatalf("CourseGrades: %v", err)
	}
	if len(grades) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(grades))
	}
	if grades[0].Username != "bob" || grades[0].LetterGrade != "A" {
		t.Errorf("unexpected top entry: %+v", grades[0])
	}

	_, err = svc.CourseGrades(9999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
