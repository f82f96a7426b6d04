// Package eventlog records append-only operational events, currently the
// best-effort proctoring signals reported by exam clients (tab switches,
// copy attempts). It is a deterrent audit trail, not a security boundary.
package eventlog

import (
	"context"
	"database/sql"
	"time"
)

type Event struct {
	Offset    int64  `json:"offset"`
	Type      string `json:"typ"`
	Key       string `json:"key"` // natural key: attemptID
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, typ, key, dataJSON string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, dataJSON, time.Now().Unix())
	return err
}

func (r *Repo) ListByKey(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT "offset", typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY "offset" DESC LIMIT $2`,
		key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
