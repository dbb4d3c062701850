// Package render draws plans and controller state on a terminal.
//
// Rendering never fails on plan content: unknown session types get a
// fallback icon, empty links are skipped and subjects without resources
// are simply not listed.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/studyplan/studyplan/internal/controller"
	"github.com/studyplan/studyplan/internal/plan"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	dayColor     = color.New(color.FgCyan, color.Bold)
	subjectColor = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	linkColor    = color.New(color.FgCyan, color.Underline)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	pendingColor = color.New(color.FgYellow)

	typeColors = map[plan.SessionType]*color.Color{
		plan.SessionConcept:  color.New(color.FgMagenta),
		plan.SessionPractice: color.New(color.FgGreen),
		plan.SessionRevision: color.New(color.FgYellow),
	}
)

// SuccessBanner is shown while the controller's success flag is raised.
const SuccessBanner = "Study plan generated successfully!"

// SessionIcon returns the icon for t, with a generic book for unknown types.
func SessionIcon(t plan.SessionType) string {
	switch plan.SessionType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case plan.SessionConcept:
		return "💡"
	case plan.SessionPractice:
		return "💻"
	case plan.SessionRevision:
		return "🔄"
	default:
		return "📚"
	}
}

// Hours formats a duration in hours the way the service sends it: 1.5h, 3h.
func Hours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64) + "h"
}

type Printer struct {
	out io.Writer
}

func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Plan writes the weekly schedule followed by the learning resources.
func (p *Printer) Plan(m *plan.Model) {
	if m == nil {
		_, _ = dimColor.Fprintln(p.out, "  No plan yet. Run generate first.")
		return
	}
	p.Schedule(m)
	p.Resources(m)
}

func (p *Printer) Schedule(m *plan.Model) {
	p.section(fmt.Sprintf("Weekly Schedule (%s, %s, %s total)",
		count(m.DayCount(), "day", "days"),
		count(m.SessionCount(), "session", "sessions"),
		Hours(m.TotalHours())))

	days := m.Days()
	if len(days) == 0 {
		_, _ = dimColor.Fprintln(p.out, "  No study days scheduled")
		return
	}
	for _, d := range days {
		_, _ = dayColor.Fprintf(p.out, "  %s", d.Day)
		_, _ = dimColor.Fprintf(p.out, " · %s\n", Hours(d.TotalHours))
		if len(d.Sessions) == 0 {
			_, _ = dimColor.Fprintln(p.out, "    Rest day")
			continue
		}
		for _, s := range d.Sessions {
			p.session(s)
		}
		fmt.Fprintln(p.out)
	}
}

func (p *Printer) session(s plan.Session) {
	fmt.Fprintf(p.out, "    %s ", SessionIcon(s.SessionType))
	_, _ = subjectColor.Fprint(p.out, s.Subject)
	fmt.Fprint(p.out, "  ")
	clr, ok := typeColors[plan.SessionType(strings.ToLower(string(s.SessionType)))]
	if !ok {
		clr = dimColor
	}
	_, _ = clr.Fprint(p.out, s.SessionType.Label())
	_, _ = dimColor.Fprintf(p.out, " · %s\n", Hours(s.DurationHours))
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		_, _ = dimColor.Fprintf(p.out, "       %s\n", notes)
	}
}

// Resources lists the links the service returned, in its order.
func (p *Printer) Resources(m *plan.Model) {
	p.section("Learning Resources")

	entries := m.Resources()
	if len(entries) == 0 {
		_, _ = dimColor.Fprintln(p.out, "  No resources provided")
		return
	}
	for _, e := range entries {
		_, _ = subjectColor.Fprintf(p.out, "  %s\n", e.Subject)
		if d := strings.TrimSpace(e.Links.Description); d != "" {
			_, _ = dimColor.Fprintf(p.out, "    %s\n", d)
		}
		if !e.Links.HasAny() {
			_, _ = dimColor.Fprintln(p.out, "    No links")
			continue
		}
		p.link("▶️", "YouTube Courses", e.Links.YouTubeSearch)
		p.link("📄", "PDF Notes", e.Links.PDFSearch)
		p.link("💻", "FreeCodeCamp", e.Links.FreeCodeCamp)
	}
}

func (p *Printer) link(icon, label, url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	fmt.Fprintf(p.out, "    %s %s: ", icon, label)
	_, _ = linkColor.Fprintln(p.out, url)
}

// Status writes one line describing the controller state.
func (p *Printer) Status(s controller.State) {
	switch s.Phase {
	case controller.PhaseIdle:
		_, _ = dimColor.Fprintln(p.out, "No plan generated yet")
	case controller.PhaseSubmitting:
		_, _ = pendingColor.Fprintln(p.out, "⏳ Generating plan...")
	case controller.PhaseFailure:
		if s.Failure != nil {
			p.Failure(s.Failure)
		}
	case controller.PhaseSuccess:
		if s.SuccessFlag {
			_, _ = successColor.Fprintf(p.out, "✓ %s\n", SuccessBanner)
		} else if s.Model != nil {
			_, _ = dimColor.Fprintf(p.out, "Plan ready: %s, %s\n",
				count(s.Model.DayCount(), "day", "days"),
				count(s.Model.SessionCount(), "session", "sessions"))
		}
	}
}

func (p *Printer) Failure(f *controller.Failure) {
	_, _ = errorColor.Fprintf(p.out, "✗ %s\n", f.Message)
}

func (p *Printer) section(title string) {
	fmt.Fprintln(p.out)
	_, _ = headerColor.Fprintf(p.out, "▸ %s\n", title)
	fmt.Fprintln(p.out)
}

func count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
