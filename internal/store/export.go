package store

import (
	"fmt"

	"github.com/learnlite/gradebook/internal/model"
)

// ExportAllGrades builds export-ready grade records for every (user, course)
// grade in the database, joined with user and course detail.
func (s *Store) ExportAllGrades() ([]model.GradeRecord, error) {
	rows, err := s.db.Query(
		`SELECT g.id, g.user_id, g.course_id, g.final_grade, g.letter_grade, g.updated_at
		 FROM course_grades g ORDER BY g.course_id, g.final_grade DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	type gradeRow struct {
		id       int64
		userID   int64
		courseID int64
		record   model.GradeRecord
	}
	var grades []gradeRow
	for rows.Next() {
		var gr gradeRow
		if err := rows.Scan(&gr.id, &gr.userID, &gr.courseID, &gr.record.FinalGrade, &gr.record.LetterGrade, &gr.record.UpdatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, gr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var records []model.GradeRecord
	for _, gr := range grades {
		user, err := s.GetUserByID(gr.userID)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", gr.userID, err)
		}
		if user != nil {
			gr.record.Username = user.Username
			gr.record.DisplayName = user.DisplayName
		}

		course, err := s.GetCourse(gr.courseID)
		if err != nil {
			return nil, fmt.Errorf("get course %d: %w", gr.courseID, err)
		}
		gr.record.CourseTitle = course.Title

		if gr.record.QuizScores, err = s.quizScores(gr.id); err != nil {
			return nil, fmt.Errorf("quiz scores for grade %d: %w", gr.id, err)
		}

		records = append(records, gr.record)
	}

	return records, nil
}
