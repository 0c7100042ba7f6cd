package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/learnlite/gradebook/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS courses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quizzes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		course_id INTEGER NOT NULL,
		lesson_id INTEGER,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		passing_score INTEGER NOT NULL DEFAULT 0,
		time_limit INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 0,
		weight INTEGER NOT NULL DEFAULT 0,
		published BOOLEAN NOT NULL DEFAULT 0,
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		prompt TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		answer TEXT NOT NULL,
		points INTEGER NOT NULL DEFAULT 1,
		ord INTEGER NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id)
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		quiz_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		passed BOOLEAN NOT NULL,
		time_spent INTEGER NOT NULL DEFAULT 0,
		completed_at DATETIME NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quizzes(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS attempt_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		correct BOOLEAN NOT NULL,
		points_awarded INTEGER NOT NULL,
		FOREIGN KEY (attempt_id) REFERENCES attempts(id)
	);

	CREATE TABLE IF NOT EXISTS course_grades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		final_grade REAL NOT NULL DEFAULT 0,
		letter_grade TEXT NOT NULL DEFAULT 'F',
		updated_at DATETIME NOT NULL,
		UNIQUE (user_id, course_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		grade_id INTEGER NOT NULL,
		quiz_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		weight INTEGER NOT NULL,
		weighted REAL NOT NULL,
		FOREIGN KEY (grade_id) REFERENCES course_grades(id)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		course_id INTEGER NOT NULL,
		progress REAL NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		UNIQUE (user_id, course_id),
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (course_id) REFERENCES courses(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateCourse inserts a new course.
func (s *Store) CreateCourse(c model.Course) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO courses (title, description, created_at) VALUES (?, ?, ?)`,
		c.Title, c.Description, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetCourse returns a course by ID.
func (s *Store) GetCourse(id int64) (model.Course, error) {
	var c model.Course
	err := s.db.QueryRow(
		`SELECT id, title, description, created_at FROM courses WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCourses returns all courses.
func (s *Store) ListCourses() ([]model.Course, error) {
	rows, err := s.db.Query(`SELECT id, title, description, created_at FROM courses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// CreateQuiz inserts a new quiz.
func (s *Store) CreateQuiz(q model.Quiz) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO quizzes (course_id, lesson_id, title, description, passing_score, time_limit, max_attempts, weight, published)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.CourseID, q.LessonID, q.Title, q.Description, q.PassingScore, q.TimeLimit, q.MaxAttempts, q.Weight, q.Published,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetQuiz returns a quiz by ID.
func (s *Store) GetQuiz(id int64) (model.Quiz, error) {
	var q model.Quiz
	err := s.db.QueryRow(
		`SELECT id, course_id, lesson_id, title, description, passing_score, time_limit, max_attempts, weight, published
		 FROM quizzes WHERE id = ?`, id,
	).Scan(&q.ID, &q.CourseID, &q.LessonID, &q.Title, &q.Description, &q.PassingScore, &q.TimeLimit, &q.MaxAttempts, &q.Weight, &q.Published)
	if errors.Is(err, sql.ErrNoRows) {
		return q, fmt.Errorf("quiz %d: %w", id, ErrNotFound)
	}
	return q, err
}

// ListQuizzesForCourse returns the quizzes of a course in ID order,
// optionally restricted to published ones.
func (s *Store) ListQuizzesForCourse(courseID int64, publishedOnly bool) ([]model.Quiz, error) {
	query := `SELECT id, course_id, lesson_id, title, description, passing_score, time_limit, max_attempts, weight, published
	          FROM quizzes WHERE course_id = ?`
	if publishedOnly {
		query += ` AND published = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.Query(query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quizzes []model.Quiz
	for rows.Next() {
		var q model.Quiz
		if err := rows.Scan(&q.ID, &q.CourseID, &q.LessonID, &q.Title, &q.Description, &q.PassingScore, &q.TimeLimit, &q.MaxAttempts, &q.Weight, &q.Published); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// SetQuizPublished flips the published flag on a quiz.
func (s *Store) SetQuizPublished(id int64, published bool) error {
	res, err := s.db.Exec(`UPDATE quizzes SET published = ? WHERE id = ?`, published, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("quiz %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteQuiz removes a quiz together with its questions and attempts.
func (s *Store) DeleteQuiz(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM attempt_results WHERE attempt_id IN (SELECT id FROM attempts WHERE quiz_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM attempts WHERE quiz_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE quiz_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM quizzes WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendQuestion adds a question to the end of a quiz. The order index is
// the current question count, so the sequence stays dense and 0-based.
func (s *Store) AppendQuestion(q model.QuizQuestion) (int64, error) {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return 0, fmt.Errorf("marshal options: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var ord int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM questions WHERE quiz_id = ?`, q.QuizID).Scan(&ord); err != nil {
		return 0, err
	}

	res, err := tx.Exec(
		`INSERT INTO questions (quiz_id, type, prompt, options, answer, points, ord)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.QuizID, q.Type, q.Prompt, string(opts), q.Answer, q.Points, ord,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// ListQuestions returns a quiz's questions in question order.
func (s *Store) ListQuestions(quizID int64) ([]model.QuizQuestion, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_id, type, prompt, options, answer, points, ord
		 FROM questions WHERE quiz_id = ? ORDER BY ord`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.QuizQuestion
	for rows.Next() {
		var q model.QuizQuestion
		var opts string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Type, &q.Prompt, &opts, &q.Answer, &q.Points, &q.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %d: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of questions in a quiz.
func (s *Store) QuestionCount(quizID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE quiz_id = ?`, quizID).Scan(&count)
	return count, err
}
