package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examnetshield/examshield/internal/model"
	"github.com/examnetshield/examshield/internal/roster"

	_ "modernc.org/sqlite"
)

var (
	ErrDuplicateQuestionNumber = errors.New("question number already exists for this exam")
	ErrStudentNotFound         = errors.New("invalid registration number or exam")
	ErrIPMismatch              = errors.New("student is registered from a different address")
	ErrNoQuestions             = errors.New("no questions available for this exam")
	ErrExamEnded               = errors.New("exam has already ended")
	ErrExamNotRunning          = errors.New("exam is not running")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls and
	// serializes writers.
	db.SetMaxOpenConns(1)
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
	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		duration REAL NOT NULL,
		reg_prefix TEXT NOT NULL,
		reg_range TEXT NOT NULL,
		is_started INTEGER NOT NULL DEFAULT 0,
		is_ended INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		registration_number TEXT NOT NULL,
		ip_address TEXT,
		allocated_questions TEXT,
		registered_at DATETIME,
		UNIQUE (exam_id, registration_number),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		question_number INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		UNIQUE (exam_id, question_number),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		original_name TEXT NOT NULL,
		stored_name TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id),
		FOREIGN KEY (student_id) REFERENCES students(id)
	);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam stores an exam and one student row per registration number in
// the range start..end.
func (s *Store) CreateExam(e model.Exam, start, end int) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO exams (name, duration, reg_prefix, reg_range, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Name, e.Duration, e.RegPrefix, e.RegRange, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	examID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, reg := range roster.Numbers(e.RegPrefix, start, end) {
		_, err := tx.Exec(
			`INSERT INTO students (exam_id, registration_number) VALUES (?, ?)`,
			examID, reg,
		)
		if err != nil {
			return 0, fmt.Errorf("insert student %s: %w", reg, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	slog.Info("created exam", "id", examID, "name", e.Name, "students", end-start+1)
	return examID, nil
}

// GetExam returns an exam by ID.
func (s *Store) GetExam(id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, name, duration, reg_prefix, reg_range, is_started, is_ended, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Name, &e.Duration, &e.RegPrefix, &e.RegRange, &e.Started, &e.Ended, &e.CreatedAt)
	return e, err
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(
		`SELECT id, name, duration, reg_prefix, reg_range, is_started, is_ended, created_at FROM exams ORDER BY id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Name, &e.Duration, &e.RegPrefix, &e.RegRange, &e.Started, &e.Ended, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// SetExamEnded closes an exam for submissions.
func (s *Store) SetExamEnded(id int64) error {
	res, err := s.db.Exec(`UPDATE exams SET is_ended = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddQuestion stores a question. Question numbers are unique per exam.
func (s *Store) AddQuestion(q model.Question) (int64, error) {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM questions WHERE exam_id = ? AND question_number = ?`, q.ExamID, q.Number,
	).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateQuestionNumber, q.Number)
	}

	res, err := s.db.Exec(
		`INSERT INTO questions (exam_id, question_number, question_text) VALUES (?, ?, ?)`,
		q.ExamID, q.Number, q.Text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListQuestions returns an exam's questions ordered by number.
func (s *Store) ListQuestions(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, question_number, question_text FROM questions WHERE exam_id = ? ORDER BY question_number`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Number, &q.Text); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionTexts returns the question pool of an exam in question number order.
func (s *Store) QuestionTexts(examID int64) ([]string, error) {
	questions, err := s.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(questions))
	for _, q := range questions {
		texts = append(texts, q.Text)
	}
	return texts, nil
}

// NextQuestionNumber returns one past the highest question number of an exam.
func (s *Store) NextQuestionNumber(examID int64) (int, error) {
	var highest sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(question_number) FROM questions WHERE exam_id = ?`, examID).Scan(&highest)
	if err != nil {
		return 0, err
	}
	return int(highest.Int64) + 1, nil
}

// QuestionCount returns the number of questions of an exam.
func (s *Store) QuestionCount(examID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE exam_id = ?`, examID).Scan(&count)
	return count, err
}
