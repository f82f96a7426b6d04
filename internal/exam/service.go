package exam

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stagegate/stagegate/internal/grading"
)

// MemoryStore is a mutex-guarded map-backed Store for dev mode and tests.
// It mirrors the SQL store's lifecycle semantics, including submission
// idempotence and the conditional release claim.
type MemoryStore struct {
	mu       sync.RWMutex
	exams    map[string]Exam
	attempts map[string]Attempt
	answers  map[string]map[string]int // attemptID -> questionID -> selected
	stages   map[string]int            // userID -> current stage

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		exams:    map[string]Exam{},
		attempts: map[string]Attempt{},
		answers:  map[string]map[string]int{},
		stages:   map[string]int{},
		now:      time.Now,
	}
}

// SetClock overrides the store's notion of now. Test hook.
func (m *MemoryStore) SetClock(now func() time.Time) { m.now = now }

func (m *MemoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	for i := range e.Questions {
		if e.Questions[i].ID == "" {
			e.Questions[i].ID = uuid.NewString()
		}
		e.Questions[i].ExamID = e.ID
	}
	m.exams[e.ID] = e
	return nil
}

func (m *MemoryStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := m.GetExamFull(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	e.Questions = stripKeys(e.Questions)
	return e, nil
}

func (m *MemoryStore) GetExamFull(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *MemoryStore) ListExamsByStage(_ context.Context, stage int) ([]ExamSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ExamSummary{}
	for _, e := range m.exams {
		if e.Stage == stage {
			out = append(out, ExamSummary{ID: e.ID, Stage: e.Stage, Subject: e.Subject, DurationSec: e.DurationSec})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

func (m *MemoryStore) StartAttempt(_ context.Context, userID, examID string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[examID]
	if !ok {
		return Attempt{}, ErrExamNotFound
	}
	for _, a := range m.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == StatusOngoing {
			return a, nil
		}
	}
	now := m.now().Unix()
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    StatusOngoing,
		StartTime: now,
		ExpiresAt: now + int64(e.DurationSec),
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *MemoryStore) SubmitAttempt(_ context.Context, userID, attemptID string, answers map[string]int) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.UserID != userID {
		return Attempt{}, ErrForbidden
	}
	if a.Status == StatusCompleted {
		return a, nil
	}
	e, ok := m.exams[a.ExamID]
	if !ok {
		return Attempt{}, ErrExamNotFound
	}

	now := m.now()
	if now.Unix() > a.ExpiresAt+int64(GraceBuffer.Seconds()) {
		log.Printf("late submission accepted: attempt=%s user=%s over by %ds",
			a.ID, a.UserID, now.Unix()-a.ExpiresAt)
	}

	score := grading.Score(gradingQs(e.Questions), answers)

	stored := m.answers[attemptID]
	if stored == nil {
		stored = map[string]int{}
		m.answers[attemptID] = stored
	}
	for qid, sel := range answers {
		stored[qid] = sel
	}

	submit := now.Unix()
	release := submit + int64(ReleaseDelay.Seconds())
	a.Status = StatusCompleted
	a.Score = &score
	a.SubmitTime = &submit
	a.ResultReleaseAt = &release
	a.IsProcessed = false
	m.attempts[attemptID] = a
	return a, nil
}

func (m *MemoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.ExamID != "" && a.ExamID != opts.ExamID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		if opts.Stage != 0 {
			if e, ok := m.exams[a.ExamID]; !ok || e.Stage != opts.Stage {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime > out[j].StartTime })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Attempt{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Eligible and Release let the memory store back the release scheduler the
// same way the SQL store does.

func (m *MemoryStore) Eligible(_ context.Context, now time.Time) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := now.Add(-ReleaseDelay).Unix()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.Status != StatusCompleted || a.IsProcessed {
			continue
		}
		switch {
		case a.ResultReleaseAt != nil && *a.ResultReleaseAt <= now.Unix():
			out = append(out, a)
		case a.ResultReleaseAt == nil && a.SubmitTime != nil && *a.SubmitTime <= cutoff:
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) Release(_ context.Context, attemptID, userID string, promote bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return false, ErrAttemptNotFound
	}
	if a.IsProcessed || a.Status != StatusCompleted {
		return false, nil
	}
	a.IsProcessed = true
	m.attempts[attemptID] = a
	if promote {
		m.stages[userID]++
	}
	return true, nil
}

// Stage reports how many promotions a user accumulated. Test accessor.
func (m *MemoryStore) Stage(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stages[userID]
}

func gradingQs(qs []Question) []grading.Q {
	out := make([]grading.Q, len(qs))
	for i, q := range qs {
		out[i] = grading.Q{ID: q.ID, CorrectOption: q.CorrectOption}
	}
	return out
}

func stripKeys(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.CorrectOption = 0
		out[i] = q
	}
	return out
}
