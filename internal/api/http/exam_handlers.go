package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stagegate/stagegate/internal/exam"
)

// GET /exams?stage=N
func ListExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage := parseIntDefault(r.URL.Query().Get("stage"), 1)
		out, err := store.ListExamsByStage(r.Context(), stage)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, out)
	}
}

// GET /exams/{examID} — candidate-safe: no correct options in the payload.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, e)
	}
}

// POST /exams/bootstrap — admin; creates any missing stage-1 default exams.
func BootstrapExamsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := exam.EnsureDefaultStage1Exams(r.Context(), store); err != nil {
			writeErr(w, err)
			return
		}
		exams, err := store.ListExamsByStage(r.Context(), 1)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "exams": exams})
	}
}
