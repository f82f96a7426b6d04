package exam

import "time"

// Attempt status values. An attempt only ever moves ONGOING -> COMPLETED.
const (
	StatusOngoing   = "ONGOING"
	StatusCompleted = "COMPLETED"
)

const (
	// GraceBuffer is the tolerance after expiry during which a late
	// submission is still accepted (logged, never rejected).
	GraceBuffer = 10 * time.Second

	// ReleaseDelay is the fixed interval between submission and result
	// release eligibility.
	ReleaseDelay = 24 * time.Hour

	// PassMark is the percentage score at or above which the owning user's
	// stage advances when the result is released.
	PassMark = 70.0
)

type Question struct {
	ID            string   `json:"id"`
	ExamID        string   `json:"exam_id,omitempty"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option,omitempty"` // 0-based; stripped when served to candidates
	Position      int      `json:"position,omitempty"`
}

type Exam struct {
	ID          string     `json:"id"`
	Stage       int        `json:"stage"`
	Subject     string     `json:"subject"`
	DurationSec int        `json:"duration_sec"`
	Questions   []Question `json:"questions,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

type ExamSummary struct {
	ID          string `json:"id"`
	Stage       int    `json:"stage"`
	Subject     string `json:"subject"`
	DurationSec int    `json:"duration_sec"`
}

// Attempt is one candidate's time-boxed run at one exam. Timestamps are unix
// seconds. Score, SubmitTime and ResultReleaseAt stay nil until submission.
type Attempt struct {
	ID              string   `json:"id"`
	ExamID          string   `json:"exam_id"`
	UserID          string   `json:"user_id"`
	Status          string   `json:"status"` // ONGOING|COMPLETED
	Score           *float64 `json:"score,omitempty"`
	StartTime       int64    `json:"start_time"`
	ExpiresAt       int64    `json:"expires_at"`
	SubmitTime      *int64   `json:"submit_time,omitempty"`
	ResultReleaseAt *int64   `json:"result_release_at,omitempty"`
	IsProcessed     bool     `json:"is_processed"`
}

// Answer is one selected option for one question within an attempt.
// At most one row per (attempt, question); resubmission overwrites.
type Answer struct {
	AttemptID      string `json:"attempt_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
}
