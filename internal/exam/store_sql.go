package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stagegate/stagegate/internal/grading"
)

// SQLStore implements Store against sqlite or postgres. All multi-write
// operations run inside a single transaction; correctness under concurrent
// requests rests on those transactions plus the partial unique index on
// ONGOING attempts.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

// SetClock overrides the store's notion of now. Test hook.
func (s *SQLStore) SetClock(now func() time.Time) { s.now = now }

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO exams (id,stage,subject,duration_sec,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET stage=EXCLUDED.stage, subject=EXCLUDED.subject, duration_sec=EXCLUDED.duration_sec`,
		e.ID, e.Stage, e.Subject, e.DurationSec, s.now().Unix())
	if err != nil {
		return fmt.Errorf("put exam: %w", err)
	}
	for i, q := range e.Questions {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		oj, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO questions (id,exam_id,text,options_json,correct_option,position)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, options_json=EXCLUDED.options_json, correct_option=EXCLUDED.correct_option, position=EXCLUDED.position`,
			q.ID, e.ID, q.Text, string(oj), q.CorrectOption, i)
		if err != nil {
			return fmt.Errorf("put question: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := s.GetExamFull(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	e.Questions = stripKeys(e.Questions)
	return e, nil
}

func (s *SQLStore) GetExamFull(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,stage,subject,duration_sec,created_at FROM exams WHERE id=$1`, id)
	var e Exam
	if err := row.Scan(&e.ID, &e.Stage, &e.Subject, &e.DurationSec, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, err
	}
	qs, err := s.questionsForExam(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	e.Questions = qs
	return e, nil
}

func (s *SQLStore) questionsForExam(ctx context.Context, examID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,exam_id,text,options_json,correct_option,position FROM questions WHERE exam_id=$1 ORDER BY position`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		var q Question
		var oj string
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &oj, &q.CorrectOption, &q.Position); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListExamsByStage(ctx context.Context, stage int) ([]ExamSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,stage,subject,duration_sec FROM exams WHERE stage=$1 ORDER BY subject`, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ExamSummary{}
	for rows.Next() {
		var e ExamSummary
		if err := rows.Scan(&e.ID, &e.Stage, &e.Subject, &e.DurationSec); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) StartAttempt(ctx context.Context, userID, examID string) (Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	var durationSec int
	err = tx.QueryRowContext(ctx, `SELECT duration_sec FROM exams WHERE id=$1`, examID).Scan(&durationSec)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrExamNotFound
	}
	if err != nil {
		return Attempt{}, err
	}

	// Double-start returns the existing row unchanged.
	if a, err := scanAttempt(tx.QueryRowContext(ctx,
		attemptColumns+` WHERE user_id=$1 AND exam_id=$2 AND status=$3`,
		userID, examID, StatusOngoing)); err == nil {
		return a, tx.Commit()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, err
	}

	now := s.now().Unix()
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		UserID:    userID,
		Status:    StatusOngoing,
		StartTime: now,
		ExpiresAt: now + int64(durationSec),
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO attempts (id,exam_id,user_id,status,start_time,expires_at,is_processed)
		VALUES ($1,$2,$3,$4,$5,$6,0)`,
		a.ID, a.ExamID, a.UserID, a.Status, a.StartTime, a.ExpiresAt)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		// The ux_attempts_ongoing index rejects a second ONGOING row when two
		// starts race; hand back whichever row won.
		if isUniqueViolation(err) {
			return s.ongoingAttempt(ctx, userID, examID)
		}
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) ongoingAttempt(ctx context.Context, userID, examID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		attemptColumns+` WHERE user_id=$1 AND exam_id=$2 AND status=$3`,
		userID, examID, StatusOngoing))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) SubmitAttempt(ctx context.Context, userID, attemptID string, answers map[string]int) (Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, ErrForbidden
	}
	if a.Status == StatusCompleted {
		return a, nil
	}

	e, err := s.GetExamFull(ctx, a.ExamID)
	if err != nil {
		return Attempt{}, err
	}

	now := s.now()
	if now.Unix() > a.ExpiresAt+int64(GraceBuffer.Seconds()) {
		log.Printf("late submission accepted: attempt=%s user=%s over by %ds",
			a.ID, a.UserID, now.Unix()-a.ExpiresAt)
	}

	score := grading.Score(gradingQs(e.Questions), answers)
	submit := now.Unix()
	release := submit + int64(ReleaseDelay.Seconds())

	known := make(map[string]bool, len(e.Questions))
	for _, q := range e.Questions {
		known[q.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	for qid, sel := range answers {
		if !known[qid] {
			continue
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO answers (attempt_id,question_id,selected_option)
			VALUES ($1,$2,$3)
			ON CONFLICT (attempt_id,question_id) DO UPDATE SET selected_option=EXCLUDED.selected_option`,
			attemptID, qid, sel)
		if err != nil {
			return Attempt{}, fmt.Errorf("save answer: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE attempts
		SET status=$1, score=$2, submit_time=$3, result_release_at=$4, is_processed=0
		WHERE id=$5 AND status=$6`,
		StatusCompleted, score, submit, release, attemptID, StatusOngoing)
	if err != nil {
		return Attempt{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Attempt{}, err
	}
	if n == 0 {
		// A concurrent submit completed the attempt first; its result stands.
		tx.Rollback()
		return s.GetAttempt(ctx, attemptID)
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}

	a.Status = StatusCompleted
	a.Score = &score
	a.SubmitTime = &submit
	a.ResultReleaseAt = &release
	a.IsProcessed = false
	return a, nil
}

const attemptColumns = `SELECT id,exam_id,user_id,status,score,start_time,expires_at,submit_time,result_release_at,is_processed FROM attempts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var score sql.NullFloat64
	var submit, release sql.NullInt64
	var processed int
	if err := row.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &score,
		&a.StartTime, &a.ExpiresAt, &submit, &release, &processed); err != nil {
		return Attempt{}, err
	}
	if score.Valid {
		a.Score = &score.Float64
	}
	if submit.Valid {
		a.SubmitTime = &submit.Int64
	}
	if release.Valid {
		a.ResultReleaseAt = &release.Int64
	}
	a.IsProcessed = processed != 0
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, attemptColumns+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT a.id,a.exam_id,a.user_id,a.status,a.score,a.start_time,a.expires_at,a.submit_time,a.result_release_at,a.is_processed
		FROM attempts a`
	var conds []string
	var args []any
	if opts.Stage != 0 {
		q += ` JOIN exams e ON e.id=a.exam_id`
		args = append(args, opts.Stage)
		conds = append(conds, fmt.Sprintf("e.stage=$%d", len(args)))
	}
	if opts.UserID != "" {
		args = append(args, opts.UserID)
		conds = append(conds, fmt.Sprintf("a.user_id=$%d", len(args)))
	}
	if opts.ExamID != "" {
		args = append(args, opts.ExamID)
		conds = append(conds, fmt.Sprintf("a.exam_id=$%d", len(args)))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		conds = append(conds, fmt.Sprintf("a.status=$%d", len(args)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY a.start_time DESC"
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" LIMIT $%d", len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
