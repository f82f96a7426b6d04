package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stagegate/stagegate/internal/eventlog"
	"github.com/stagegate/stagegate/internal/exam"
	"github.com/stagegate/stagegate/internal/rbac"
)

// POST /exams/{examID}/start
// Idempotent: a second start for the same (user, exam) returns the existing
// ONGOING attempt.
func StartAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		a, err := store.StartAttempt(r.Context(), userID, chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// POST /attempts/{attemptID}/submit  { "answers": { questionID: selectedOption } }
// Partial maps are allowed; unanswered questions score as incorrect.
// Resubmitting a completed attempt returns the stored result unchanged.
func SubmitAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		var req struct {
			Answers map[string]int `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a, err := store.SubmitAttempt(r.Context(), userID, chi.URLParam(r, "attemptID"), req.Answers)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, a)
	}
}

// GET /attempts/{attemptID} — owner or admin.
func GetAttemptHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if role != "admin" && a.UserID != rbac.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, a)
	}
}

// GET /attempts?exam_id=...&status=...&stage=N&limit=50&offset=0
// Candidates only ever see their own attempts; admins may filter by user_id.
func ListAttemptsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		userID := r.URL.Query().Get("user_id")
		if role != "admin" {
			userID = sub
		}
		list, err := store.ListAttempts(r.Context(), exam.AttemptListOpts{
			ExamID: r.URL.Query().Get("exam_id"),
			UserID: userID,
			Status: r.URL.Query().Get("status"),
			Stage:  parseIntDefault(r.URL.Query().Get("stage"), 0),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		})
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, list)
	}
}

// POST /attempts/{attemptID}/events  { "typ": "tab_hidden", "detail": "..." }
// Best-effort proctoring deterrent signal from the client; recording it must
// never fail the exam flow, so errors are logged and swallowed.
func AttemptEventHandler(store exam.Store, events *eventlog.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if a.UserID != rbac.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Typ    string `json:"typ"`
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Typ == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		data, _ := json.Marshal(map[string]string{"detail": req.Detail, "user_id": a.UserID})
		if err := events.Append(r.Context(), req.Typ, attemptID, string(data)); err != nil {
			log.Printf("event log append failed: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// GET /attempts/{attemptID}/events — admin view of the deterrent audit trail.
func ListAttemptEventsHandler(events *eventlog.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := events.ListByKey(r.Context(), chi.URLParam(r, "attemptID"),
			parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out)
	}
}
