package store

import (
	"fmt"
	"time"

	"github.com/examnetshield/examshield/internal/model"
)

// AddSubmission records a stored file for a student of a running exam.
func (s *Store) AddSubmission(sub model.Submission) (int64, error) {
	exam, err := s.GetExam(sub.ExamID)
	if err != nil {
		return 0, fmt.Errorf("get exam %d: %w", sub.ExamID, err)
	}
	if !exam.Started || exam.Ended {
		return 0, ErrExamNotRunning
	}

	var enrolled int
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM students WHERE id = ? AND exam_id = ?`, sub.StudentID, sub.ExamID,
	).Scan(&enrolled)
	if err != nil {
		return 0, err
	}
	if enrolled == 0 {
		return 0, ErrStudentNotFound
	}

	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (exam_id, student_id, original_name, stored_name, size, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ExamID, sub.StudentID, sub.OriginalName, sub.StoredName, sub.Size, sub.SubmittedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSubmissions returns an exam's submissions in the order they arrived.
func (s *Store) ListSubmissions(examID int64) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, student_id, original_name, stored_name, size, submitted_at
		 FROM submissions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.OriginalName, &sub.StoredName, &sub.Size, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
