package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyplan/studyplan/internal/plan"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	err error
}

func (s stubGenerator) Generate(context.Context, PlanRequest) (*plan.Response, error) {
	return nil, s.err
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := New(Options{Version: "2.0.0"}).Handler()
	rec := do(t, h, http.MethodGet, "/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Version != "2.0.0" {
		t.Errorf("health = %+v", got)
	}
}

func TestCreatePlan_Success(t *testing.T) {
	h := New(Options{}).Handler()
	rec := do(t, h, http.MethodPost, "/plan", `{"subjects":["Python","DSA","Web Development"],"hours":3,"days_per_week":2}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	resp, err := plan.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("response does not decode: %v", err)
	}

	if len(resp.Plan) != 2 || resp.Plan[0].Day != "Monday" || resp.Plan[1].Day != "Tuesday" {
		t.Fatalf("days = %+v", resp.Plan)
	}
	day := resp.Plan[0]
	if day.TotalHours != 3 || len(day.Sessions) != 3 {
		t.Fatalf("day = %+v", day)
	}
	wantTypes := []plan.SessionType{plan.SessionConcept, plan.SessionPractice, plan.SessionRevision}
	for i, s := range day.Sessions {
		if s.SessionType != wantTypes[i] || s.DurationHours != 1 {
			t.Errorf("session %d = %+v", i, s)
		}
	}
	if day.Sessions[1].Notes != "Apply knowledge through practical exercises in DSA" {
		t.Errorf("notes = %q", day.Sessions[1].Notes)
	}

	entries := resp.Resources.Entries()
	if len(entries) != 3 || entries[0].Subject != "Python" || entries[2].Subject != "Web Development" {
		t.Fatalf("resources = %+v", entries)
	}
	web := entries[2].Links
	if web.YouTubeSearch != "https://www.youtube.com/results?search_query=Web+Development+course" {
		t.Errorf("youtube = %q", web.YouTubeSearch)
	}
	if web.PDFSearch != "https://www.google.com/search?q=Web+Development+notes+pdf" {
		t.Errorf("pdf = %q", web.PDFSearch)
	}
	if web.FreeCodeCamp != "https://www.freecodecamp.org/learn/" || web.Description != "Learning resources for Web Development" {
		t.Errorf("links = %+v", web)
	}
}

func TestCreatePlan_DefaultDays(t *testing.T) {
	h := New(Options{}).Handler()
	rec := do(t, h, http.MethodPost, "/plan", `{"subjects":["Math"],"hours":2}`, nil)
	resp, err := plan.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Plan) != defaultDaysPerWeek || resp.Plan[5].Day != "Saturday" {
		t.Errorf("expected Monday..Saturday, got %d days", len(resp.Plan))
	}
}

func TestCreatePlan_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLoc string
		wantMsg string
	}{
		{"hours too high", `{"subjects":["Python"],"hours":15}`, "hours", "less than or equal to 12"},
		{"hours zero", `{"subjects":["Python"],"hours":0}`, "hours", "field required"},
		{"no subjects", `{"subjects":[],"hours":3}`, "subjects", "at least 1 items"},
		{"too many subjects", `{"subjects":["a","b","c","d","e","f","g","h","i"],"hours":3}`, "subjects", "at most 8 items"},
		{"blank subject", `{"subjects":["a",""],"hours":3}`, "subjects[1]", "field required"},
		{"days out of range", `{"subjects":["a"],"hours":3,"days_per_week":9}`, "days_per_week", "less than or equal to 7"},
		{"wrong type", `{"subjects":["a"],"hours":"three"}`, "hours", "not a valid"},
		{"not json", `subjects=a`, "", "invalid JSON body"},
	}

	h := New(Options{}).Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/plan", tt.body, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			var body struct {
				Detail []detailItem `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("detail is not a list: %v (%s)", err, rec.Body.String())
			}
			if len(body.Detail) == 0 {
				t.Fatal("empty detail")
			}
			item := body.Detail[0]
			if tt.wantLoc != "" && item.Loc[len(item.Loc)-1] != tt.wantLoc {
				t.Errorf("loc = %v, want ...%s", item.Loc, tt.wantLoc)
			}
			if !strings.Contains(item.Msg, tt.wantMsg) {
				t.Errorf("msg = %q, want it to contain %q", item.Msg, tt.wantMsg)
			}
		})
	}
}

func TestCreatePlan_GeneratorErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"invalid input", ErrInvalidPlanInput, http.StatusUnprocessableEntity, "Invalid input: invalid plan input"},
		{"wrapped invalid input", errors.Join(ErrInvalidPlanInput), http.StatusUnprocessableEntity, "Invalid input"},
		{"internal", errors.New("template missing"), http.StatusInternalServerError, "Failed to generate study plan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(Options{Generator: stubGenerator{err: tt.err}}).Handler()
			rec := do(t, h, http.MethodPost, "/plan", `{"subjects":["a"],"hours":1}`, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d", rec.Code)
			}
			var body struct {
				Detail string `json:"detail"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(body.Detail, tt.wantDetail) {
				t.Errorf("detail = %q, want prefix %q", body.Detail, tt.wantDetail)
			}
		})
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	h := New(Options{}).Handler()

	rec := do(t, h, http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "abc-123", "Origin": "http://localhost:5173"})
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rec = do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestMiddleware_RateLimit(t *testing.T) {
	h := New(Options{RateLimitPerMinute: 2}).Handler()
	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestSchedule(t *testing.T) {
	days, err := Schedule([]string{"a", "b", "c"}, 1, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 7 || days[6].Day != "Sunday" {
		t.Fatalf("days = %d", len(days))
	}
	if d := days[0].Sessions[0].DurationHours; d != 0.33 {
		t.Errorf("duration = %v, want 0.33", d)
	}

	for _, tc := range []struct {
		subjects []string
		hours    float64
		days     int
	}{
		{nil, 1, 1},
		{[]string{"a"}, 0, 1},
		{[]string{"a"}, 1, 0},
		{[]string{"a"}, 1, 8},
	} {
		if _, err := Schedule(tc.subjects, tc.hours, tc.days); !errors.Is(err, ErrInvalidPlanInput) {
			t.Errorf("Schedule(%v, %v, %v) error = %v", tc.subjects, tc.hours, tc.days, err)
		}
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Options{}).Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
