package exam

import "context"

type AttemptListOpts struct {
	ExamID string // filter by exam
	UserID string // filter by candidate
	Status string // optional: ONGOING|COMPLETED
	Stage  int    // optional: restrict to exams of one stage
	Limit  int
	Offset int
}

type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)     // candidate-safe (no correct options)
	GetExamFull(ctx context.Context, id string) (Exam, error) // with answer keys, for grading/seed
	ListExamsByStage(ctx context.Context, stage int) ([]ExamSummary, error)

	// StartAttempt returns the existing ONGOING attempt for (user, exam) if
	// one exists, otherwise creates it. Never yields two ONGOING rows for
	// the same pair, even under concurrent calls.
	StartAttempt(ctx context.Context, userID, examID string) (Attempt, error)

	// SubmitAttempt scores and completes an attempt atomically. Submitting
	// an already-COMPLETED attempt is a no-op returning the stored result.
	SubmitAttempt(ctx context.Context, userID, attemptID string, answers map[string]int) (Attempt, error)

	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
