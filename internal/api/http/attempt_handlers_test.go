package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/stagegate/stagegate/internal/api/http"
	"github.com/stagegate/stagegate/internal/exam"
	"github.com/stagegate/stagegate/internal/rbac"
	"github.com/stagegate/stagegate/internal/release"
)

// identity pins the subject and role the way JWTMiddleware would.
func identity(userID, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithSubject(r.Context(), userID)
			ctx = rbac.WithRole(ctx, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(store *exam.MemoryStore, p *release.Processor, userID, role string) http.Handler {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(identity(userID, role))
		pr.With(rbac.Require("exam:view")).Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("attempt:start")).Post("/exams/{examID}/start", api.StartAttemptHandler(store))
		pr.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).Get("/attempts/{attemptID}", api.GetAttemptHandler(store))
	})
	r.Get("/cron/release-results", api.ReleaseResultsHandler(p, ""))
	return r
}

func seedExam(t *testing.T, store *exam.MemoryStore) exam.Exam {
	t.Helper()
	ctx := context.Background()
	if err := store.PutExam(ctx, exam.Exam{
		Stage: 1, Subject: "Mathematics", DurationSec: 1800,
		Questions: []exam.Question{
			{Text: "q1", Options: []string{"a", "b"}, CorrectOption: 0},
			{Text: "q2", Options: []string{"a", "b"}, CorrectOption: 1},
			{Text: "q3", Options: []string{"a", "b"}, CorrectOption: 1},
		},
	}); err != nil {
		t.Fatal(err)
	}
	list, err := store.ListExamsByStage(ctx, 1)
	if err != nil || len(list) != 1 {
		t.Fatalf("seed: %v", err)
	}
	full, err := store.GetExamFull(ctx, list[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	return full
}

func TestStartSubmitFlow(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedExam(t, store)
	p := release.New(store, nil)
	srv := httptest.NewServer(newTestRouter(store, p, "u1", "candidate"))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/exams/"+e.ID+"/start", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("start status = %d", res.StatusCode)
	}
	var a exam.Attempt
	if err := json.NewDecoder(res.Body).Decode(&a); err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if a.Status != exam.StatusOngoing || a.UserID != "u1" {
		t.Fatalf("attempt = %+v", a)
	}

	body, _ := json.Marshal(map[string]any{"answers": map[string]int{
		e.Questions[0].ID: 0,
		e.Questions[1].ID: 1,
		e.Questions[2].ID: 0,
	}})
	res, err = http.Post(srv.URL+"/attempts/"+a.ID+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != 200 {
		t.Fatalf("submit status = %d", res.StatusCode)
	}
	var done exam.Attempt
	if err := json.NewDecoder(res.Body).Decode(&done); err != nil {
		t.Fatal(err)
	}
	if done.Status != exam.StatusCompleted || done.Score == nil || *done.Score != 66.7 {
		t.Fatalf("submit result = %+v", done)
	}
}

func TestSubmitUnknownAttemptIs404(t *testing.T) {
	store := exam.NewMemoryStore()
	seedExam(t, store)
	srv := httptest.NewServer(newTestRouter(store, release.New(store, nil), "u1", "candidate"))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/attempts/missing/submit", "application/json",
		bytes.NewReader([]byte(`{"answers":{}}`)))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestForeignAttemptIsForbidden(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedExam(t, store)
	a, err := store.StartAttempt(context.Background(), "owner", e.ID)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(newTestRouter(store, release.New(store, nil), "intruder", "candidate"))
	defer srv.Close()

	res, err := http.Post(srv.URL+"/attempts/"+a.ID+"/submit", "application/json",
		bytes.NewReader([]byte(`{"answers":{}}`)))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("submit status = %d, want 403", res.StatusCode)
	}

	res, err = http.Get(srv.URL + "/attempts/" + a.ID)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("get status = %d, want 403", res.StatusCode)
	}
}

func TestReleaseEndpointCounts(t *testing.T) {
	store := exam.NewMemoryStore()
	e := seedExam(t, store)
	ctx := context.Background()

	base := time.Now().Add(-exam.ReleaseDelay - time.Hour)
	store.SetClock(func() time.Time { return base })
	a, err := store.StartAttempt(ctx, "u1", e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SubmitAttempt(ctx, "u1", a.ID, map[string]int{
		e.Questions[0].ID: 0,
		e.Questions[1].ID: 1,
		e.Questions[2].ID: 1,
	}); err != nil {
		t.Fatal(err)
	}
	store.SetClock(time.Now)

	srv := httptest.NewServer(newTestRouter(store, release.New(store, nil), "u1", "candidate"))
	defer srv.Close()

	for i, want := range []int{1, 0} {
		res, err := http.Get(srv.URL + "/cron/release-results")
		if err != nil {
			t.Fatal(err)
		}
		var out map[string]int
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if out["released"] != want {
			t.Fatalf("call %d: released = %d, want %d", i+1, out["released"], want)
		}
	}
	if store.Stage("u1") != 1 {
		t.Fatalf("u1 promotions = %d, want 1 (scored 100)", store.Stage("u1"))
	}
}

func TestReleaseEndpointToken(t *testing.T) {
	store := exam.NewMemoryStore()
	r := chi.NewRouter()
	r.Get("/cron/release-results", api.ReleaseResultsHandler(release.New(store, nil), "s3cret"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/cron/release-results")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("unauthenticated status = %d, want 403", res.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/cron/release-results", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", res.StatusCode)
	}
}
