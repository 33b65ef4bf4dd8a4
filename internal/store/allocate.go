package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/examnetshield/examshield/internal/distribute"
	"github.com/examnetshield/examshield/internal/model"
)

// AllocateQuestions assigns one question to every student of an exam and
// marks the exam started. Running it again on a started exam reallocates.
func (s *Store) AllocateQuestions(examID int64, d *distribute.Distributor) (model.AllocationResult, error) {
	result := model.AllocationResult{ExamID: examID}

	exam, err := s.GetExam(examID)
	if err != nil {
		return result, fmt.Errorf("get exam %d: %w", examID, err)
	}
	if exam.Ended {
		return result, ErrExamEnded
	}

	texts, err := s.QuestionTexts(examID)
	if err != nil {
		return result, fmt.Errorf("list questions: %w", err)
	}
	if len(texts) == 0 {
		return result, ErrNoQuestions
	}

	students, err := s.ListStudents(examID)
	if err != nil {
		return result, fmt.Errorf("list students: %w", err)
	}

	assigned, tiers := d.Plan(len(students), texts)

	tx, err := s.db.Begin()
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	for i, st := range students {
		data, err := json.Marshal([]string{assigned[i]})
		if err != nil {
			return result, err
		}
		if _, err := tx.Exec(`UPDATE students SET allocated_questions = ? WHERE id = ?`, string(data), st.ID); err != nil {
			return result, fmt.Errorf("allocate %s: %w", st.RegistrationNumber, err)
		}
	}
	if _, err := tx.Exec(`UPDATE exams SET is_started = 1 WHERE id = ?`, examID); err != nil {
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return result, err
	}

	result.Students = len(students)
	result.Questions = len(texts)
	result.Degraded = distribute.Degraded(tiers)

	slog.Info("allocated questions",
		"exam_id", examID,
		"students", result.Students,
		"questions", result.Questions,
		"degraded", result.Degraded,
	)
	if result.Degraded > 0 {
		slog.Warn("some students share a question with their neighbour or exceed the even share",
			"exam_id", examID, "degraded", result.Degraded)
	}
	return result, nil
}
