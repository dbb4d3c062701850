package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/studyplan/studyplan/internal/plan"
)

// ErrInvalidPlanInput is returned by a Generator for inputs it cannot
// plan for; the handler answers 422.
var ErrInvalidPlanInput = errors.New("invalid plan input")

var weekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var sessionRotation = []plan.SessionType{plan.SessionConcept, plan.SessionPractice, plan.SessionRevision}

const (
	youtubeBase      = "https://www.youtube.com/results"
	googleBase       = "https://www.google.com/search"
	freeCodeCampBase = "https://www.freecodecamp.org/learn/"
)

// Generator produces a plan for a validated request.
type Generator interface {
	Generate(ctx context.Context, req PlanRequest) (*plan.Response, error)
}

// TemplateGenerator builds plans from fixed templates: every study day
// has one session per subject, session types rotate by subject position
// and each subject gets an equal share of the daily hours.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(ctx context.Context, req PlanRequest) (*plan.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	days, err := Schedule(req.Subjects, req.Hours, req.days())
	if err != nil {
		return nil, err
	}
	res, err := Resources(req.Subjects)
	if err != nil {
		return nil, err
	}
	return &plan.Response{Plan: days, Resources: res}, nil
}

// Schedule lays out daysPerWeek days starting on Monday.
func Schedule(subjects []string, dailyHours float64, daysPerWeek int) ([]plan.DayPlan, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: at least one subject is required", ErrInvalidPlanInput)
	}
	if dailyHours <= 0 {
		return nil, fmt.Errorf("%w: daily hours must be positive", ErrInvalidPlanInput)
	}
	if daysPerWeek < 1 || daysPerWeek > len(weekDays) {
		return nil, fmt.Errorf("%w: days per week must be between 1 and 7", ErrInvalidPlanInput)
	}

	perSubject := roundHours(dailyHours / float64(len(subjects)))
	days := make([]plan.DayPlan, 0, daysPerWeek)
	for i := 0; i < daysPerWeek; i++ {
		sessions := make([]plan.Session, 0, len(subjects))
		for j, subject := range subjects {
			st := sessionRotation[j%len(sessionRotation)]
			sessions = append(sessions, plan.Session{
				Subject:       subject,
				SessionType:   st,
				DurationHours: perSubject,
				Notes:         sessionNotes(subject, st),
			})
		}
		days = append(days, plan.DayPlan{
			Day:        weekDays[i],
			TotalHours: dailyHours,
			Sessions:   sessions,
		})
	}
	return days, nil
}

// Resources builds search links for every non-blank subject, in order.
func Resources(subjects []string) (plan.Resources, error) {
	if len(subjects) == 0 {
		return plan.Resources{}, fmt.Errorf("%w: at least one subject is required", ErrInvalidPlanInput)
	}
	entries := make([]plan.ResourceEntry, 0, len(subjects))
	for _, subject := range subjects {
		if strings.TrimSpace(subject) == "" {
			continue
		}
		entries = append(entries, plan.ResourceEntry{
			Subject: subject,
			Links: plan.ResourceLinks{
				Subject:       subject,
				YouTubeSearch: youtubeBase + "?" + url.Values{"search_query": {subject + " course"}}.Encode(),
				PDFSearch:     googleBase + "?" + url.Values{"q": {subject + " notes pdf"}}.Encode(),
				FreeCodeCamp:  freeCodeCampBase,
				Description:   "Learning resources for " + subject,
			},
		})
	}
	return plan.NewResources(entries...), nil
}

func sessionNotes(subject string, st plan.SessionType) string {
	switch st {
	case plan.SessionConcept:
		return "Master core concepts and theory of " + subject
	case plan.SessionPractice:
		return "Apply knowledge through practical exercises in " + subject
	case plan.SessionRevision:
		return "Review and consolidate learning in " + subject
	default:
		return "Study " + subject
	}
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
