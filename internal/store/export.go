package store

import (
	"fmt"
	"time"

	"github.com/examnetshield/examshield/internal/model"
)

// Roster builds one row per student with allocation and submission state.
func (s *Store) Roster(examID int64) ([]model.RosterRow, error) {
	students, err := s.ListStudents(examID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	subs, err := s.ListSubmissions(examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	perStudent := make(map[int64]int)
	for _, sub := range subs {
		perStudent[sub.StudentID]++
	}

	rows := make([]model.RosterRow, 0, len(students))
	for _, st := range students {
		rows = append(rows, model.RosterRow{
			RegistrationNumber: st.RegistrationNumber,
			IPAddress:          st.IPAddress,
			Question:           st.Question(),
			Submissions:        perStudent[st.ID],
		})
	}
	return rows, nil
}

// ExportExam builds the export document for an exam.
func (s *Store) ExportExam(examID int64) (model.ExamExport, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return model.ExamExport{}, fmt.Errorf("get exam %d: %w", examID, err)
	}
	rows, err := s.Roster(examID)
	if err != nil {
		return model.ExamExport{}, err
	}
	return model.ExamExport{
		ExamID:     exam.ID,
		Name:       exam.Name,
		Duration:   exam.Duration,
		Status:     exam.Status(),
		ExportedAt: time.Now().UTC(),
		Students:   rows,
	}, nil
}
