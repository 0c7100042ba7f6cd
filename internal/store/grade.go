package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/learnlite/gradebook/internal/model"
)

// UpsertCourseGrade inserts or fully replaces the grade record for a
// (user, course) pair. The stored quiz-score list is replaced wholesale,
// not merged, in a single transaction.
func (s *Store) UpsertCourseGrade(g model.CourseGrade) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	var gradeID int64
	err = tx.QueryRow(
		`SELECT id FROM course_grades WHERE user_id = ? AND course_id = ?`, g.UserID, g.CourseID,
	).Scan(&gradeID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.Exec(
			`INSERT INTO course_grades (user_id, course_id, final_grade, letter_grade, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			g.UserID, g.CourseID, g.FinalGrade, g.LetterGrade, now,
		)
		if err != nil {
			return 0, err
		}
		if gradeID, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	default:
		_, err = tx.Exec(
			`UPDATE course_grades SET final_grade = ?, letter_grade = ?, updated_at = ? WHERE id = ?`,
			g.FinalGrade, g.LetterGrade, now, gradeID,
		)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(`DELETE FROM quiz_scores WHERE grade_id = ?`, gradeID); err != nil {
			return 0, err
		}
	}

	for _, e := range g.QuizScores {
		_, err := tx.Exec(
			`INSERT INTO quiz_scores (grade_id, quiz_id, score, weight, weighted) VALUES (?, ?, ?, ?, ?)`,
			gradeID, e.QuizID, e.Score, e.Weight, e.Weighted,
		)
		if err != nil {
			return 0, err
		}
	}

	return gradeID, tx.Commit()
}

// GetCourseGrade returns the grade record for a (user, course) pair,
// or nil if none has been computed yet.
func (s *Store) GetCourseGrade(userID, courseID int64) (*model.CourseGrade, error) {
	var g model.CourseGrade
	err := s.db.QueryRow(
		`SELECT id, user_id, course_id, final_grade, letter_grade, updated_at
		 FROM course_grades WHERE user_id = ? AND course_id = ?`, userID, courseID,
	).Scan(&g.ID, &g.UserID, &g.CourseID, &g.FinalGrade, &g.LetterGrade, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if g.QuizScores, err = s.quizScores(g.ID); err != nil {
		return nil, err
	}
	g.AssignmentScores = []model.AssignmentScoreEntry{}
	return &g, nil
}

func (s *Store) quizScores(gradeID int64) ([]model.QuizScoreEntry, error) {
	rows, err := s.db.Query(
		`SELECT quiz_id, score, weight, weighted FROM quiz_scores WHERE grade_id = ? ORDER BY id`, gradeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.QuizScoreEntry
	for rows.Next() {
		var e model.QuizScoreEntry
		if err := rows.Scan(&e.QuizID, &e.Score, &e.Weight, &e.Weighted); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListCourseGrades returns all grade records for a course joined with user
// detail, highest final grade first.
func (s *Store) ListCourseGrades(courseID int64) ([]model.CourseGradeSummary, error) {
	rows, err := s.db.Query(
		`SELECT g.user_id, u.username, u.display_name, g.final_grade, g.letter_grade
		 FROM course_grades g JOIN users u ON u.id = g.user_id
		 WHERE g.course_id = ? ORDER BY g.final_grade DESC, u.username`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var summaries []model.CourseGradeSummary
	for rows.Next() {
		var c model.CourseGradeSummary
		if err := rows.Scan(&c.UserID, &c.Username, &c.DisplayName, &c.FinalGrade, &c.LetterGrade); err != nil {
			return nil, err
		}
		summaries = append(summaries, c)
	}
	return summaries, rows.Err()
}
