package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/examnetshield/examshield/internal/model"
)

const studentColumns = `id, exam_id, registration_number, ip_address, allocated_questions, registered_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(sc rowScanner) (model.Student, error) {
	var (
		st        model.Student
		ip        sql.NullString
		allocated sql.NullString
	)
	if err := sc.Scan(&st.ID, &st.ExamID, &st.RegistrationNumber, &ip, &allocated, &st.RegisteredAt); err != nil {
		return st, err
	}
	st.IPAddress = ip.String
	if allocated.Valid && allocated.String != "" {
		if err := json.Unmarshal([]byte(allocated.String), &st.AllocatedQuestions); err != nil {
			return st, fmt.Errorf("decode allocated questions of %s: %w", st.RegistrationNumber, err)
		}
	}
	return st, nil
}

// ListStudents returns an exam's students in registration order.
func (s *Store) ListStudents(examID int64) ([]model.Student, error) {
	rows, err := s.db.Query(
		`SELECT `+studentColumns+` FROM students WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var students []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudentByRegNumber returns a student, or nil if the exam has no such
// registration number.
func (s *Store) GetStudentByRegNumber(examID int64, regNumber string) (*model.Student, error) {
	st, err := scanStudent(s.db.QueryRow(
		`SELECT `+studentColumns+` FROM students WHERE exam_id = ? AND registration_number = ?`, examID, regNumber,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// StudentCount returns the number of students of an exam.
func (s *Store) StudentCount(examID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM students WHERE exam_id = ?`, examID).Scan(&count)
	return count, err
}

// RegisterStudent binds a student to the address they first register from.
// Registering again from the same address is a no-op.
func (s *Store) RegisterStudent(examID int64, regNumber, ip string) (*model.Student, error) {
	st, err := s.GetStudentByRegNumber(examID, regNumber)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	if st.IPAddress != "" {
		if st.IPAddress != ip {
			slog.Warn("registration from unexpected address",
				"exam_id", examID, "registration_number", regNumber, "registered_ip", st.IPAddress, "ip", ip)
			return nil, ErrIPMismatch
		}
		return st, nil
	}

	now := time.Now()
	_, err = s.db.Exec(
		`UPDATE students SET ip_address = ?, registered_at = ? WHERE id = ?`,
		ip, now, st.ID,
	)
	if err != nil {
		return nil, err
	}
	st.IPAddress = ip
	st.RegisteredAt = &now
	slog.Info("registered student", "exam_id", examID, "registration_number", regNumber, "ip", ip)
	return st, nil
}
