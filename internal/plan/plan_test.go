package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const samplePlan = `{
  "plan": [
    {
      "day": "Monday",
      "total_hours": 3,
      "sessions": [
        {"subject": "Python", "session_type": "concept", "duration_hours": 1.5, "notes": "Master core concepts and theory of Python"},
        {"subject": "DSA", "session_type": "practice", "duration_hours": 1.5, "notes": "Apply knowledge through practical exercises in DSA"}
      ]
    },
    {
      "day": "Tuesday",
      "total_hours": 3,
      "sessions": [
        {"subject": "Python", "session_type": "mock-interview", "duration_hours": 3, "notes": "Something new"}
      ]
    }
  ],
  "resources": {
    "Python": {
      "subject": "Python",
      "youtube_search": "https://www.youtube.com/results?search_query=Python+course",
      "pdf_search": "https://www.google.com/search?q=Python+notes+pdf",
      "freecodecamp": "https://www.freecodecamp.org/learn/",
      "description": "Learning resources for Python"
    },
    "Extra": {
      "youtube_search": "https://example.com/a?x=1&y=2",
      "pdf_search": "",
      "freecodecamp": ""
    }
  }
}`

func TestDecode_Valid(t *testing.T) {
	resp, err := Decode([]byte(samplePlan))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(resp.Plan) != 2 {
		t.Fatalf("len(Plan) = %d, want 2", len(resp.Plan))
	}
	if resp.Plan[0].Day != "Monday" || len(resp.Plan[0].Sessions) != 2 {
		t.Errorf("unexpected first day: %+v", resp.Plan[0])
	}
	if got := resp.Plan[1].Sessions[0].SessionType; got != "mock-interview" {
		t.Errorf("unknown session type should be kept verbatim, got %q", got)
	}
	if resp.Resources.Len() != 2 {
		t.Errorf("Resources.Len() = %d, want 2", resp.Resources.Len())
	}
}

func TestDecode_FailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantSub string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "empty object", body: `{}`, wantSub: "plan is required"},
		{name: "missing resources", body: `{"plan": []}`, wantSub: "resources is required"},
		{name: "null resources", body: `{"plan": [], "resources": null}`, wantSub: "resources is required"},
		{name: "null plan", body: `{"plan": null, "resources": {}}`, wantSub: "plan is required"},
		{name: "missing day label", body: `{"plan": [{"total_hours": 1, "sessions": []}], "resources": {}}`, wantSub: "plan[0].day is required"},
		{name: "missing sessions", body: `{"plan": [{"day": "Monday", "total_hours": 1}], "resources": {}}`, wantSub: "plan[0].sessions is required"},
		{name: "missing subject", body: `{"plan": [{"day": "Monday", "total_hours": 1, "sessions": [{"session_type": "concept"}]}], "resources": {}}`, wantSub: "subject is required"},
		{name: "negative hours", body: `{"plan": [{"day": "Monday", "total_hours": -1, "sessions": []}], "resources": {}}`, wantSub: "total_hours"},
		{name: "wrong type", body: `{"plan": "soon", "resources": {}}`},
		{name: "resources not an object", body: `{"plan": [], "resources": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("error %v should wrap ErrMalformed", err)
			}
			if tt.wantSub != "" && !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestDecode_EmptyPlanAndResourcesAccepted(t *testing.T) {
	resp, err := Decode([]byte(`{"plan": [], "resources": {}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(resp.Plan) != 0 || resp.Resources.Len() != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestResources_PreserveOrder(t *testing.T) {
	var r Resources
	if err := json.Unmarshal([]byte(`{"Zeta": {"youtube_search": "z"}, "Alpha": {"youtube_search": "a"}, "Mid": {}}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	var subjects []string
	for _, e := range r.Entries() {
		subjects = append(subjects, e.Subject)
	}
	if !reflect.DeepEqual(subjects, []string{"Zeta", "Alpha", "Mid"}) {
		t.Errorf("Entries() order = %v", subjects)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	z := strings.Index(string(out), `"Zeta"`)
	a := strings.Index(string(out), `"Alpha"`)
	m := strings.Index(string(out), `"Mid"`)
	if !(z < a && a < m) {
		t.Errorf("marshaled order not preserved: %s", out)
	}
}

func TestResources_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	r := NewResources(
		ResourceEntry{Subject: "A", Links: ResourceLinks{YouTubeSearch: "1"}},
		ResourceEntry{Subject: "B"},
		ResourceEntry{Subject: "A", Links: ResourceLinks{YouTubeSearch: "2"}},
	)
	entries := r.Entries()
	if len(entries) != 2 || entries[0].Subject != "A" || entries[0].Links.YouTubeSearch != "2" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestModel_MissingResourceIsAbsent(t *testing.T) {
	resp, err := Decode([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(*resp)

	if _, ok := m.Links("DSA"); ok {
		t.Error("DSA has no resources and should report ok=false")
	}
	links, ok := m.Links("Python")
	if !ok || !links.HasAny() {
		t.Errorf("Python links missing: %+v", links)
	}
	extra, ok := m.Links("Extra")
	if !ok || extra.PDFSearch != "" {
		t.Errorf("extra subject should be kept: %+v", extra)
	}
}

func TestModel_Accessors(t *testing.T) {
	resp, err := Decode([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(*resp)

	if m.DayCount() != 2 {
		t.Errorf("DayCount() = %d", m.DayCount())
	}
	if m.SessionCount() != 3 {
		t.Errorf("SessionCount() = %d", m.SessionCount())
	}
	if m.TotalHours() != 6 {
		t.Errorf("TotalHours() = %v", m.TotalHours())
	}
	if got := m.Subjects(); !reflect.DeepEqual(got, []string{"Python", "DSA"}) {
		t.Errorf("Subjects() = %v", got)
	}
}

func TestModel_IsReadOnly(t *testing.T) {
	resp, err := Decode([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(*resp)

	resp.Plan[0].Day = "changed after construction"
	days := m.Days()
	days[0].Sessions[0].Subject = "changed through accessor"
	snapshot := m.Response()
	snapshot.Plan[1].Day = "changed through Response()"

	got := m.Days()
	if got[0].Day != "Monday" || got[0].Sessions[0].Subject != "Python" || got[1].Day != "Tuesday" {
		t.Errorf("model was mutated: %+v", got)
	}
}

func TestModel_MarshalRoundTrip(t *testing.T) {
	resp, err := Decode([]byte(samplePlan))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(*resp)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	data := buf.Bytes()
	if strings.Contains(string(data), `\u0026`) || !strings.Contains(string(data), "x=1&y=2") {
		t.Errorf("URLs should not be HTML-escaped: %s", data)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(round trip) error = %v", err)
	}
	if !reflect.DeepEqual(*back, m.Response()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *back, m.Response())
	}
}

func TestSessionType(t *testing.T) {
	tests := []struct {
		in    SessionType
		known bool
		label string
	}{
		{SessionConcept, true, "Concept"},
		{SessionPractice, true, "Practice"},
		{SessionRevision, true, "Revision"},
		{"Revision", true, "Revision"},
		{"mock-interview", false, "Mock-interview"},
		{"", false, "Study"},
		{"écrit", false, "Écrit"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := tt.in.Known(); got != tt.known {
				t.Errorf("Known() = %v, want %v", got, tt.known)
			}
			if got := tt.in.Label(); got != tt.label {
				t.Errorf("Label() = %q, want %q", got, tt.label)
			}
		})
	}
}
