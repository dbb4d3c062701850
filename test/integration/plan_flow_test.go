package integration

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/export"
	"github.com/studyplan/studyplan/internal/plan"
)

func TestPlanFlow_GenerateAndExport(t *testing.T) {
	st := setupStack(t, nil)
	ctx := context.Background()

	state, err := st.ctrl.Generate(ctx, controller.Input{
		Subjects:    "Python, DSA, Web Development",
		Hours:       "3",
		DaysPerWeek: "2",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if state.Phase != controller.PhaseSuccess || !state.SuccessFlag {
		t.Fatalf("state = %+v", state)
	}

	m := state.Model
	if m.DayCount() != 2 || m.SessionCount() != 6 || m.TotalHours() != 6 {
		t.Errorf("model: %d days, %d sessions, %vh", m.DayCount(), m.SessionCount(), m.TotalHours())
	}
	if got := m.Subjects(); !reflect.DeepEqual(got, []string{"Python", "DSA", "Web Development"}) {
		t.Errorf("subjects = %v", got)
	}

	// Success flag drops on its own.
	st.clock.Advance(controller.DefaultSuccessFlagTTL)
	if st.ctrl.Snapshot().SuccessFlag {
		t.Error("success flag still raised after the delay")
	}
	if !st.ctrl.Snapshot().HasPlan() {
		t.Error("plan must survive the flag dropping")
	}

	path, err := st.exporter.ExportTo(st.ctrl.Snapshot().Model, "/exports")
	if err != nil {
		t.Fatalf("ExportTo() error = %v", err)
	}
	if path != "/exports/study-plan-2025-06-02.json" {
		t.Errorf("path = %q", path)
	}

	data, err := st.fs.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("{\n  \"plan\": [")) {
		t.Errorf("unexpected export layout:\n%s", data)
	}
	back, err := plan.Decode(data)
	if err != nil {
		t.Fatalf("exported file does not decode: %v", err)
	}
	if !reflect.DeepEqual(*back, m.Response()) {
		t.Error("exported plan differs from the displayed one")
	}
}

func TestPlanFlow_ExportWithoutPlan(t *testing.T) {
	st := setupStack(t, nil)

	_, err := st.exporter.ExportTo(st.ctrl.Snapshot().Model, "/exports")
	if !errors.Is(err, export.ErrNoData) {
		t.Fatalf("ExportTo() error = %v, want ErrNoData", err)
	}
	if ok, _ := st.fs.Exists("/exports"); ok {
		t.Error("nothing should be written without a plan")
	}
}

func TestPlanFlow_ServerRejection(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantMalfmt bool
	}{
		{"detail string", http.StatusUnprocessableEntity, `{"detail":"Invalid input: hours too high"}`, "Invalid input: hours too high", true},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","hours"],"msg":"too high"}]}`, "hours: too high", true},
		{"server error", http.StatusInternalServerError, `oops`, "Server error: 500", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := setupStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))

			state, err := st.ctrl.Generate(context.Background(), controller.Input{Subjects: "Math", Hours: "2", DaysPerWeek: "3"})
			var f *controller.Failure
			if !errors.As(err, &f) {
				t.Fatalf("Generate() error = %v, want *Failure", err)
			}
			if f.Kind != controller.KindServerRejected || f.StatusCode != tt.status {
				t.Errorf("failure = %+v", f)
			}
			if f.Message != tt.wantMsg || f.Malformed != tt.wantMalfmt {
				t.Errorf("message = %q malformed = %v", f.Message, f.Malformed)
			}
			if state.Phase != controller.PhaseFailure || state.HasPlan() {
				t.Errorf("state = %+v", state)
			}
		})
	}
}

func TestPlanFlow_InvalidBody(t *testing.T) {
	st := setupStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plan":"soon"}`))
	}))

	_, err := st.ctrl.Generate(context.Background(), controller.Input{Subjects: "Math", Hours: "2", DaysPerWeek: "3"})
	var f *controller.Failure
	if !errors.As(err, &f) || !f.InvalidBody {
		t.Fatalf("Generate() error = %v, want invalid body failure", err)
	}
}

func TestPlanFlow_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	st := setupStackAt(t, "http://"+addr)
	_, err = st.ctrl.Generate(context.Background(), controller.Input{Subjects: "Math", Hours: "2", DaysPerWeek: "3"})
	var f *controller.Failure
	if !errors.As(err, &f) {
		t.Fatalf("Generate() error = %v, want *Failure", err)
	}
	if f.Kind != controller.KindUnreachable || f.StatusCode != 0 {
		t.Errorf("failure = %+v", f)
	}
	if !strings.Contains(f.Message, addr) {
		t.Errorf("message %q should name %s", f.Message, addr)
	}
}

func TestPlanFlow_LatestRequestWins(t *testing.T) {
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	var slowBody = `{"plan":[{"day":"Monday","sessions":[],"total_hours":0}],"resources":{}}`
	var fastBody = `{"plan":[{"day":"Friday","sessions":[{"subject":"Chemistry","session_type":"concept","duration_hours":1,"notes":""}],"total_hours":1}],"resources":{}}`

	st := setupStack(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := fastBody
		if strings.Contains(readAll(r), "Biology") {
			arrived <- struct{}{}
			<-release
			body = slowBody
		}
		_, _ = w.Write([]byte(body))
	}))
	var releaseOnce sync.Once
	unblock := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(unblock)

	firstDone := make(chan error, 1)
	go func() {
		_, err := st.ctrl.Generate(context.Background(), controller.Input{Subjects: "Biology", Hours: "2", DaysPerWeek: "1"})
		firstDone <- err
	}()
	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the service")
	}

	state, err := st.ctrl.Generate(context.Background(), controller.Input{Subjects: "Chemistry", Hours: "1", DaysPerWeek: "1"})
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	unblock()

	select {
	case err := <-firstDone:
		if !errors.Is(err, controller.ErrSuperseded) {
			t.Errorf("first Generate() error = %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first Generate did not return")
	}

	final := st.ctrl.Snapshot()
	if final.Seq != state.Seq || final.Model.Days()[0].Day != "Friday" {
		t.Errorf("stale response overwrote the newer plan: %+v", final.Model.Days())
	}
}
