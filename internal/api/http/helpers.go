package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/stagegate/stagegate/internal/exam"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain sentinels onto HTTP statuses; anything unrecognized
// is a 500 so store failures never masquerade as client errors.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrExamNotFound), errors.Is(err, exam.ErrAttemptNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
