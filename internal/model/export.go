package model

import "time"

// ExamExport is the top-level JSON structure for a roster export.
type ExamExport struct {
	ExamID     int64       `json:"exam_id"`
	Name       string      `json:"name"`
	Duration   float64     `json:"duration"`
	Status     string      `json:"status"`
	ExportedAt time.Time   `json:"exported_at"`
	Students   []RosterRow `json:"students"`
}

// RosterRow holds one student's allocation and submission state.
type RosterRow struct {
	RegistrationNumber string `json:"registration_number"`
	IPAddress          string `json:"ip_address"`
	Question           string `json:"question"`
	Submissions        int    `json:"submissions"`
}
