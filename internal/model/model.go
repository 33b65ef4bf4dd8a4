package model

import (
	"time"
)

// Exam is a named assessment with a registration number range.
type Exam struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,max=100"`
	Duration  float64   `json:"duration" validate:"gt=0,lte=24"` // hours
	RegPrefix string    `json:"reg_prefix" validate:"required,max=10,printascii"`
	RegRange  string    `json:"reg_range" validate:"required,max=20"`
	Started   bool      `json:"started"`
	Ended     bool      `json:"ended"`
	CreatedAt time.Time `json:"created_at"`
}

// Status returns a short lifecycle label for listings.
func (e Exam) Status() string {
	switch {
	case e.Ended:
		return "ended"
	case e.Started:
		return "started"
	default:
		return "pending"
	}
}

// Student is one registration slot of an exam.
type Student struct {
	ID                 int64      `json:"id"`
	ExamID             int64      `json:"exam_id"`
	RegistrationNumber string     `json:"registration_number"`
	IPAddress          string     `json:"ip_address,omitempty"` // empty until first registration
	AllocatedQuestions []string   `json:"allocated_questions,omitempty"`
	RegisteredAt       *time.Time `json:"registered_at,omitempty"`
}

// Question returns the allocated question, or "" if none was allocated yet.
func (s Student) Question() string {
	if len(s.AllocatedQuestions) == 0 {
		return ""
	}
	return s.AllocatedQuestions[0]
}

// Question is one question text of an exam.
type Question struct {
	ID     int64  `json:"id"`
	ExamID int64  `json:"exam_id"`
	Number int    `json:"number" validate:"gt=0"`
	Text   string `json:"text" validate:"required"`
}

// Submission is a file handed in by a student.
type Submission struct {
	ID           int64     `json:"id"`
	ExamID       int64     `json:"exam_id"`
	StudentID    int64     `json:"student_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Size         int64     `json:"size"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// QuestionImport is used for loading questions from JSON.
type QuestionImport struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// AllocationResult summarizes one "start exam" run.
type AllocationResult struct {
	ExamID    int64 `json:"exam_id"`
	Students  int   `json:"students"`
	Questions int   `json:"questions"`
	Degraded  int   `json:"degraded"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	DBPath         string
	UploadDir      string
	MaxUploadBytes int64
	Lang           string
	LLMURL         string // empty disables question drafting
	LLMKey         string
	LLMModel       string
}
