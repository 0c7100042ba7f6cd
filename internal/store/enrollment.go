package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/learnlite/gradebook/internal/model"
)

// CreateEnrollment enrolls a user in a course.
func (s *Store) CreateEnrollment(userID, courseID int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO enrollments (user_id, course_id, progress, started_at) VALUES (?, ?, 0, ?)`,
		userID, courseID, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetEnrollment returns the enrollment for a (user, course) pair, or nil
// if the user is not enrolled.
func (s *Store) GetEnrollment(userID, courseID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := s.db.QueryRow(
		`SELECT id, user_id, course_id, progress, started_at, completed_at
		 FROM enrollments WHERE user_id = ? AND course_id = ?`, userID, courseID,
	).Scan(&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.StartedAt, &e.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEnrollments returns all of a user's enrollments.
func (s *Store) ListEnrollments(userID int64) ([]model.Enrollment, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, course_id, progress, started_at, completed_at
		 FROM enrollments WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Progress, &e.StartedAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// UpdateEnrollmentProgress sets the progress fraction for an enrollment and
// stamps completion when progress reaches 1.
func (s *Store) UpdateEnrollmentProgress(userID, courseID int64, progress float64) error {
	var completedAt any
	if progress >= 1 {
		completedAt = time.Now()
	}
	res, err := s.db.Exec(
		`UPDATE enrollments SET progress = ?, completed_at = ? WHERE user_id = ? AND course_id = ?`,
		progress, completedAt, userID, courseID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("enrollment for user %d in course %d: %w", userID, courseID, ErrNotFound)
	}
	return nil
}
