package release

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stagegate/stagegate/internal/exam"
)

// SQLStore runs the release queries against the shared attempts/users
// tables. Separate from the exam store so the scheduler's write surface
// stays the two statements below.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// Eligible selects completed, unprocessed attempts past their release time.
// The null result_release_at branch covers rows written before that column
// existed; those fall back to submit_time plus the fixed delay.
func (s *SQLStore) Eligible(ctx context.Context, now time.Time) ([]exam.Attempt, error) {
	cutoff := now.Add(-exam.ReleaseDelay).Unix()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id,exam_id,user_id,status,score,start_time,expires_at,submit_time,result_release_at,is_processed
		FROM attempts
		WHERE status=$1 AND is_processed=0
		  AND (result_release_at <= $2 OR (result_release_at IS NULL AND submit_time <= $3))`,
		exam.StatusCompleted, now.Unix(), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []exam.Attempt{}
	for rows.Next() {
		var a exam.Attempt
		var score sql.NullFloat64
		var submit, release sql.NullInt64
		var processed int
		if err := rows.Scan(&a.ID, &a.ExamID, &a.UserID, &a.Status, &score,
			&a.StartTime, &a.ExpiresAt, &submit, &release, &processed); err != nil {
			return nil, err
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
		out = append(out, a)
	}
	return out, rows.Err()
}

// Release claims one attempt and applies its promotion in a single
// transaction. The affected-row count of the conditional update is the
// concurrency guard: zero rows means a concurrent tick already claimed it.
func (s *SQLStore) Release(ctx context.Context, attemptID, userID string, promote bool) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE attempts SET is_processed=1 WHERE id=$1 AND is_processed=0 AND status=$2`,
		attemptID, exam.StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("claim attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if promote {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET current_stage=current_stage+1 WHERE id=$1`, userID); err != nil {
			return false, fmt.Errorf("promote user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
