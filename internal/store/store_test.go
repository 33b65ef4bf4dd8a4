package store

import (
	"database/sql"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/examnetshield/examshield/internal/distribute"
	"github.com/examnetshield/examshield/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestExam(t *testing.T, s *Store, prefix string, start, end int) int64 {
	t.Helper()
	id, err := s.CreateExam(model.Exam{
		Name:      "Networks midterm",
		Duration:  1.5,
		RegPrefix: prefix,
		RegRange:  "",
	}, start, end)
	if err != nil {
		t.Fatalf("createTestExam: %v", err)
	}
	return id
}

func addTestQuestion(t *testing.T, s *Store, examID int64, number int, text string) int64 {
	t.Helper()
	id, err := s.AddQuestion(model.Question{ExamID: examID, Number: number, Text: text})
	if err != nil {
		t.Fatalf("addTestQuestion: %v", err)
	}
	return id
}

func testDistributor() *distribute.Distributor {
	return distribute.New(rand.New(rand.NewPCG(1, 2)))
}

func TestExamCRUD(t *testing.T) {
	s := newTestStore(t)

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 0 {
		t.Fatalf("expected no exams, got %d", len(exams))
	}

	id := createTestExam(t, s, "CS", 1, 5)
	e, err := s.GetExam(id)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if e.Name != "Networks midterm" {
		t.Errorf("expected name 'Networks midterm', got %q", e.Name)
	}
	if e.Duration != 1.5 {
		t.Errorf("expected duration 1.5, got %v", e.Duration)
	}
	if e.Started || e.Ended {
		t.Errorf("new exam should be pending, got %s", e.Status())
	}

	students, err := s.ListStudents(id)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	if len(students) != 5 {
		t.Fatalf("expected 5 students, got %d", len(students))
	}
	want := []string{"CS001", "CS002", "CS003", "CS004", "CS005"}
	for i, st := range students {
		if st.RegistrationNumber != want[i] {
			t.Errorf("student %d: expected %s, got %s", i, want[i], st.RegistrationNumber)
		}
		if st.IPAddress != "" || st.RegisteredAt != nil {
			t.Errorf("student %s should not be registered yet", st.RegistrationNumber)
		}
	}

	count, err := s.StudentCount(id)
	if err != nil {
		t.Fatalf("StudentCount: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}

	// Not found.
	_, err = s.GetExam(9999)
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	if err := s.SetExamEnded(id); err != nil {
		t.Fatalf("SetExamEnded: %v", err)
	}
	e, _ = s.GetExam(id)
	if !e.Ended {
		t.Error("expected exam to be ended")
	}
	if err := s.SetExamEnded(9999); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows for unknown exam, got %v", err)
	}

	// ListExams returns newest first.
	second := createTestExam(t, s, "EE", 10, 12)
	exams, err = s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 2 || exams[0].ID != second {
		t.Errorf("expected newest exam first, got %+v", exams)
	}
}

func TestQuestionCRUD(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "CS", 1, 3)

	next, err := s.NextQuestionNumber(examID)
	if err != nil {
		t.Fatalf("NextQuestionNumber: %v", err)
	}
	if next != 1 {
		t.Errorf("expected next number 1, got %d", next)
	}

	addTestQuestion(t, s, examID, 2, "Explain the TCP handshake.")
	addTestQuestion(t, s, examID, 1, "What is a subnet mask?")

	_, err = s.AddQuestion(model.Question{ExamID: examID, Number: 2, Text: "Duplicate"})
	if !errors.Is(err, ErrDuplicateQuestionNumber) {
		t.Errorf("expected ErrDuplicateQuestionNumber, got %v", err)
	}

	// The same number is fine in another exam.
	other := createTestExam(t, s, "EE", 1, 2)
	addTestQuestion(t, s, other, 2, "Ohm's law")

	texts, err := s.QuestionTexts(examID)
	if err != nil {
		t.Fatalf("QuestionTexts: %v", err)
	}
	if len(texts) != 2 || texts[0] != "What is a subnet mask?" || texts[1] != "Explain the TCP handshake." {
		t.Errorf("expected texts ordered by number, got %v", texts)
	}

	count, err := s.QuestionCount(examID)
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 questions, got %d", count)
	}

	next, _ = s.NextQuestionNumber(examID)
	if next != 3 {
		t.Errorf("expected next number 3, got %d", next)
	}
}

func TestRegisterStudent(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "TEST", 1, 3)

	tests := []struct {
		name    string
		reg     string
		ip      string
		wantErr error
	}{
		{"unknown number", "TEST999", "10.0.0.1", ErrStudentNotFound},
		{"first registration", "TEST001", "10.0.0.1", nil},
		{"same address again", "TEST001", "10.0.0.1", nil},
		{"different address", "TEST001", "10.0.0.2", ErrIPMismatch},
		{"other student same address", "TEST002", "10.0.0.1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := s.RegisterStudent(examID, tt.reg, tt.ip)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RegisterStudent error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if st.IPAddress != tt.ip {
				t.Errorf("expected ip %s, got %s", tt.ip, st.IPAddress)
			}
			if st.RegisteredAt == nil {
				t.Error("expected registered_at to be set")
			}
		})
	}

	st, err := s.GetStudentByRegNumber(examID, "TEST001")
	if err != nil {
		t.Fatalf("GetStudentByRegNumber: %v", err)
	}
	if st.IPAddress != "10.0.0.1" {
		t.Errorf("stored ip changed to %q", st.IPAddress)
	}

	st, err = s.GetStudentByRegNumber(examID, "NOPE")
	if err != nil || st != nil {
		t.Errorf("expected nil, nil for unknown student, got %v, %v", st, err)
	}
}

func TestAllocateQuestions(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "CS", 1, 6)

	_, err := s.AllocateQuestions(examID, testDistributor())
	if !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}

	addTestQuestion(t, s, examID, 1, "Q1")
	addTestQuestion(t, s, examID, 2, "Q2")
	addTestQuestion(t, s, examID, 3, "Q3")

	res, err := s.AllocateQuestions(examID, testDistributor())
	if err != nil {
		t.Fatalf("AllocateQuestions: %v", err)
	}
	if res.Students != 6 || res.Questions != 3 || res.Degraded != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	students, err := s.ListStudents(examID)
	if err != nil {
		t.Fatalf("ListStudents: %v", err)
	}
	counts := make(map[string]int)
	for i, st := range students {
		if len(st.AllocatedQuestions) != 1 {
			t.Fatalf("student %s: expected 1 question, got %v", st.RegistrationNumber, st.AllocatedQuestions)
		}
		counts[st.Question()]++
		if i > 0 && st.Question() == students[i-1].Question() {
			t.Errorf("students %s and %s share %q", students[i-1].RegistrationNumber, st.RegistrationNumber, st.Question())
		}
	}
	for _, q := range []string{"Q1", "Q2", "Q3"} {
		if counts[q] != 2 {
			t.Errorf("expected %s twice, got %d", q, counts[q])
		}
	}

	e, _ := s.GetExam(examID)
	if !e.Started {
		t.Error("expected exam to be started")
	}

	if err := s.SetExamEnded(examID); err != nil {
		t.Fatalf("SetExamEnded: %v", err)
	}
	_, err = s.AllocateQuestions(examID, testDistributor())
	if !errors.Is(err, ErrExamEnded) {
		t.Errorf("expected ErrExamEnded, got %v", err)
	}

	_, err = s.AllocateQuestions(9999, testDistributor())
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows for unknown exam, got %v", err)
	}
}

func TestAllocateSingleQuestion(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "CS", 1, 4)
	addTestQuestion(t, s, examID, 1, "Only question")

	if _, err := s.AllocateQuestions(examID, testDistributor()); err != nil {
		t.Fatalf("AllocateQuestions: %v", err)
	}
	students, _ := s.ListStudents(examID)
	for _, st := range students {
		if st.Question() != "Only question" {
			t.Errorf("student %s got %q", st.RegistrationNumber, st.Question())
		}
	}
}

func TestSubmissionsAndRoster(t *testing.T) {
	s := newTestStore(t)
	examID := createTestExam(t, s, "CS", 1, 3)
	addTestQuestion(t, s, examID, 1, "Q1")
	addTestQuestion(t, s, examID, 2, "Q2")

	st, err := s.RegisterStudent(examID, "CS002", "192.168.1.20")
	if err != nil {
		t.Fatalf("RegisterStudent: %v", err)
	}

	sub := model.Submission{
		ExamID:       examID,
		StudentID:    st.ID,
		OriginalName: "answer.py",
		StoredName:   "0f8c.py",
		Size:         120,
	}
	_, err = s.AddSubmission(sub)
	if !errors.Is(err, ErrExamNotRunning) {
		t.Fatalf("expected ErrExamNotRunning before start, got %v", err)
	}

	if _, err := s.AllocateQuestions(examID, testDistributor()); err != nil {
		t.Fatalf("AllocateQuestions: %v", err)
	}
	if _, err := s.AddSubmission(sub); err != nil {
		t.Fatalf("AddSubmission: %v", err)
	}
	sub.StoredName = "1a2b.py"
	if _, err := s.AddSubmission(sub); err != nil {
		t.Fatalf("AddSubmission second: %v", err)
	}

	subs, err := s.ListSubmissions(examID)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].OriginalName != "answer.py" || subs[0].Size != 120 || subs[0].SubmittedAt.IsZero() {
		t.Errorf("unexpected submission %+v", subs[0])
	}

	rows, err := s.Roster(examID)
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 roster rows, got %d", len(rows))
	}
	if rows[1].RegistrationNumber != "CS002" || rows[1].IPAddress != "192.168.1.20" || rows[1].Submissions != 2 {
		t.Errorf("unexpected row %+v", rows[1])
	}
	if rows[0].Submissions != 0 || rows[0].IPAddress != "" {
		t.Errorf("unexpected row %+v", rows[0])
	}
	for _, r := range rows {
		if r.Question == "" {
			t.Errorf("student %s has no question", r.RegistrationNumber)
		}
	}

	export, err := s.ExportExam(examID)
	if err != nil {
		t.Fatalf("ExportExam: %v", err)
	}
	if export.Status != "started" || len(export.Students) != 3 {
		t.Errorf("unexpected export %+v", export)
	}

	if err := s.SetExamEnded(examID); err != nil {
		t.Fatalf("SetExamEnded: %v", err)
	}
	_, err = s.AddSubmission(sub)
	if !errors.Is(err, ErrExamNotRunning) {
		t.Errorf("expected ErrExamNotRunning after end, got %v", err)
	}
}

func TestImportedFileHash(t *testing.T) {
	s := newTestStore(t)

	// Missing file returns empty string.
	hash, err := s.GetImportedFileHash("/some/path.xlsx")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/some/path.xlsx", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, err = s.GetImportedFileHash("/some/path.xlsx")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	// Update existing.
	if err := s.SetImportedFileHash("/some/path.xlsx", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/some/path.xlsx")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}

func TestSubmissionStudentFromOtherExam(t *testing.T) {
	s := newTestStore(t)
	examA := createTestExam(t, s, "CS", 1, 2)
	examB := createTestExam(t, s, "EE", 1, 2)
	addTestQuestion(t, s, examA, 1, "Q1")
	if _, err := s.AllocateQuestions(examA, testDistributor()); err != nil {
		t.Fatalf("AllocateQuestions: %v", err)
	}

	other, err := s.GetStudentByRegNumber(examB, "EE001")
	if err != nil || other == nil {
		t.Fatalf("GetStudentByRegNumber: %v, %v", other, err)
	}

	tests := []struct {
		name      string
		studentID int64
	}{
		{"student of another exam", other.ID},
		{"unknown student", 9999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddSubmission(model.Submission{
				ExamID:       examA,
				StudentID:    tt.studentID,
				OriginalName: "answer.txt",
				StoredName:   "x.txt",
			})
			if !errors.Is(err, ErrStudentNotFound) {
				t.Fatalf("expected ErrStudentNotFound, got %v", err)
			}
		})
	}

	subs, err := s.ListSubmissions(examA)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected no submissions, got %d", len(subs))
	}
}
