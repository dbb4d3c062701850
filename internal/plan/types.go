// Package plan holds the study plan returned by the plan service.
//
// Response mirrors the wire contract of POST /plan. Decode is the only
// way a Response enters the program: it validates presence of every
// required field and fails closed. Model wraps a decoded Response in a
// read-only view for rendering and export.
package plan

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SessionType tags a study session. The set is open: values other than
// the known ones are kept verbatim and rendered with a fallback.
type SessionType string

const (
	SessionConcept  SessionType = "concept"
	SessionPractice SessionType = "practice"
	SessionRevision SessionType = "revision"
)

// Known reports whether t is one of the recognized session types.
func (t SessionType) Known() bool {
	switch t.normalized() {
	case SessionConcept, SessionPractice, SessionRevision:
		return true
	}
	return false
}

// Label returns a display label: the type with its first letter
// upper-cased, or "Study" when the type is empty.
func (t SessionType) Label() string {
	s := strings.TrimSpace(string(t))
	if s == "" {
		return "Study"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func (t SessionType) normalized() SessionType {
	return SessionType(strings.ToLower(strings.TrimSpace(string(t))))
}

// Response is the body of a successful POST /plan.
type Response struct {
	Plan      []DayPlan `json:"plan" validate:"required,dive"`
	Resources Resources `json:"resources"`
}

// DayPlan is one scheduled study day.
type DayPlan struct {
	Day        string    `json:"day" validate:"required"`
	TotalHours float64   `json:"total_hours" validate:"gte=0"`
	Sessions   []Session `json:"sessions" validate:"required,dive"`
}

// Session is a single study block within a day.
type Session struct {
	Subject       string      `json:"subject" validate:"required"`
	SessionType   SessionType `json:"session_type"`
	DurationHours float64     `json:"duration_hours" validate:"gte=0"`
	Notes         string      `json:"notes"`
}

// ResourceLinks are the learning links for one subject. Any link may be
// empty; renderers skip empty links.
type ResourceLinks struct {
	Subject       string `json:"subject,omitempty"`
	YouTubeSearch string `json:"youtube_search"`
	PDFSearch     string `json:"pdf_search"`
	FreeCodeCamp  string `json:"freecodecamp"`
	Description   string `json:"description,omitempty"`
}

// HasAny reports whether at least one link is set.
func (l ResourceLinks) HasAny() bool {
	return l.YouTubeSearch != "" || l.PDFSearch != "" || l.FreeCodeCamp != ""
}
