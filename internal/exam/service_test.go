package exam_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stagegate/stagegate/internal/exam"
)

func seedMathExam(t *testing.T, store *exam.MemoryStore) exam.Exam {
	t.Helper()
	e := exam.Exam{
		Stage:       1,
		Subject:     "Mathematics",
		DurationSec: 1800,
		Questions: []exam.Question{
			{Text: "q1", Options: []string{"a", "b"}, CorrectOption: 0},
			{Text: "q2", Options: []string{"a", "b"}, CorrectOption: 1},
			{Text: "q3", Options: []string{"a", "b"}, CorrectOption: 1},
		},
	}
	if err := store.PutExam(context.Background(), e); err != nil {
		t.Fatalf("put exam: %v", err)
	}
	list, err := store.ListExamsByStage(context.Background(), 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("list exams: %v (%d)", err, len(list))
	}
	full, err := store.GetExamFull(context.Background(), list[0].ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	return full
}

func TestStartAttemptIdempotent(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)
	ctx := context.Background()

	a1, err := store.StartAttempt(ctx, "u1", e.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	a2, err := store.StartAttempt(ctx, "u1", e.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if a1.ID != a2.ID {
		t.Fatalf("double start created a second attempt: %s vs %s", a1.ID, a2.ID)
	}
	if a1.Status != exam.StatusOngoing {
		t.Fatalf("status = %s, want ONGOING", a1.Status)
	}
	if a1.ExpiresAt != a1.StartTime+1800 {
		t.Fatalf("expires_at = %d, want start+1800", a1.ExpiresAt)
	}
}

func TestStartAttemptUnknownExam(t *testing.T) {
	store := exam.NewMemoryStore()
	_, err := store.StartAttempt(context.Background(), "u1", "missing")
	if !errors.Is(err, exam.ErrExamNotFound) {
		t.Fatalf("err = %v, want ErrExamNotFound", err)
	}
}

func TestSubmitAttemptScoresAndCompletes(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)
	ctx := context.Background()

	a, err := store.StartAttempt(ctx, "u1", e.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	answers := map[string]int{
		e.Questions[0].ID: 0, // correct
		e.Questions[1].ID: 1, // correct
		e.Questions[2].ID: 0, // wrong
	}
	got, err := store.SubmitAttempt(ctx, "u1", a.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != exam.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	if got.Score == nil || *got.Score != 66.7 {
		t.Fatalf("score = %v, want 66.7", got.Score)
	}
	if got.SubmitTime == nil || got.ResultReleaseAt == nil {
		t.Fatal("submit_time and result_release_at must be set together")
	}
	if *got.ResultReleaseAt != *got.SubmitTime+int64(exam.ReleaseDelay/time.Second) {
		t.Fatalf("release_at = %d, want submit+24h", *got.ResultReleaseAt)
	}
	if got.IsProcessed {
		t.Fatal("fresh submission must not be processed")
	}
}

func TestSubmitAttemptIdempotent(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)
	ctx := context.Background()

	a, _ := store.StartAttempt(ctx, "u1", e.ID)
	first, err := store.SubmitAttempt(ctx, "u1", a.ID, map[string]int{e.Questions[0].ID: 0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A different answer map after completion must not change anything.
	all := map[string]int{
		e.Questions[0].ID: 0,
		e.Questions[1].ID: 1,
		e.Questions[2].ID: 1,
	}
	second, err := store.SubmitAttempt(ctx, "u1", a.ID, all)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if *second.Score != *first.Score {
		t.Fatalf("resubmit changed score: %v -> %v", *first.Score, *second.Score)
	}
	if *second.ResultReleaseAt != *first.ResultReleaseAt {
		t.Fatal("resubmit changed result_release_at")
	}
	if *second.SubmitTime != *first.SubmitTime {
		t.Fatal("resubmit changed submit_time")
	}
}

func TestSubmitAttemptOwnership(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)
	ctx := context.Background()

	a, _ := store.StartAttempt(ctx, "u1", e.ID)
	_, err := store.SubmitAttempt(ctx, "intruder", a.ID, nil)
	if !errors.Is(err, exam.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	_, err = store.SubmitAttempt(ctx, "u1", "missing", nil)
	if !errors.Is(err, exam.ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmitAttemptLateStillAccepted(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)
	ctx := context.Background()

	base := time.Now()
	store.SetClock(func() time.Time { return base })
	a, _ := store.StartAttempt(ctx, "u1", e.ID)

	// Well past expiry plus the grace buffer.
	store.SetClock(func() time.Time { return base.Add(1900*time.Second + exam.GraceBuffer) })
	got, err := store.SubmitAttempt(ctx, "u1", a.ID, map[string]int{e.Questions[0].ID: 0})
	if err != nil {
		t.Fatalf("late submit rejected: %v", err)
	}
	if got.Status != exam.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}

func TestGetExamStripsCorrectOptions(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedMathExam(t, store)

	safe, err := store.GetExam(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	for _, q := range safe.Questions {
		if q.CorrectOption != 0 {
			t.Fatalf("candidate payload leaked correct option for %s", q.ID)
		}
	}
}
