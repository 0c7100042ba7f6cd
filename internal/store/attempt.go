package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/learnlite/gradebook/internal/model"
)

// InsertAttempt stores an immutable attempt with its per-question results
// in one transaction. CompletedAt is set to the insertion time when zero.
func (s *Store) InsertAttempt(a model.QuizAttempt) (int64, error) {
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO attempts (quiz_id, user_id, score, passed, time_spent, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.QuizID, a.UserID, a.Score, a.Passed, a.TimeSpent, a.CompletedAt,
	)
	if err != nil {
		return 0, err
	}
	attemptID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, r := range a.Results {
		_, err := tx.Exec(
			`INSERT INTO attempt_results (attempt_id, question_id, answer, correct_answer, correct, points_awarded)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			attemptID, r.QuestionID, r.Answer, r.CorrectAnswer, r.Correct, r.PointsAwarded,
		)
		if err != nil {
			return 0, err
		}
	}

	return attemptID, tx.Commit()
}

// GetAttempt returns an attempt with its per-question results.
func (s *Store) GetAttempt(id int64) (model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := s.db.QueryRow(
		`SELECT id, quiz_id, user_id, score, passed, time_spent, completed_at FROM attempts WHERE id = ?`, id,
	).Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Passed, &a.TimeSpent, &a.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("attempt %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, err
	}

	a.Results, err = s.attemptResults(id)
	return a, err
}

func (s *Store) attemptResults(attemptID int64) ([]model.QuestionResult, error) {
	rows, err := s.db.Query(
		`SELECT question_id, answer, correct_answer, correct, points_awarded
		 FROM attempt_results WHERE attempt_id = ? ORDER BY id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.QuestionResult
	for rows.Next() {
		var r model.QuestionResult
		if err := rows.Scan(&r.QuestionID, &r.Answer, &r.CorrectAnswer, &r.Correct, &r.PointsAwarded); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListAttempts returns a user's attempts for a quiz in insertion order,
// without per-question results.
func (s *Store) ListAttempts(quizID, userID int64) ([]model.QuizAttempt, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, user_id, score, passed, time_spent, completed_at
		 FROM attempts WHERE quiz_id = ? AND user_id = ? ORDER BY id`, quizID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.QuizAttempt
	for rows.Next() {
		var a model.QuizAttempt
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.Passed, &a.TimeSpent, &a.CompletedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// CountAttempts returns the number of attempts a user has made on a quiz.
func (s *Store) CountAttempts(quizID, userID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM attempts WHERE quiz_id = ? AND user_id = ?`, quizID, userID,
	).Scan(&count)
	return count, err
}
