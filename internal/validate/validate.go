// Package validate turns raw study-plan form fields into a Request.
//
// Validation is pure: the same inputs always yield the same Request or
// the same Rejection, and nothing outside the return values is touched.
// Rules are applied in a fixed order and the first failing rule wins.
package validate

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	// MaxSubjects is the largest number of subjects a plan may cover.
	MaxSubjects = 8

	MinDailyHours = 0.5
	MaxDailyHours = 12.0

	MinDaysPerWeek = 1
	MaxDaysPerWeek = 7
)

// ErrInvalidInput matches every Rejection via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Rule identifies the validation rule that rejected the input.
type Rule string

const (
	RuleSubjectsRequired Rule = "subjects_required"
	RuleTooManySubjects  Rule = "too_many_subjects"
	RuleDailyHours       Rule = "daily_hours"
	RuleDaysPerWeek      Rule = "days_per_week"
)

var ruleMessages = map[Rule]string{
	RuleSubjectsRequired: "at least one subject required",
	RuleTooManySubjects:  "maximum 8 subjects",
	RuleDailyHours:       "daily hours out of range",
	RuleDaysPerWeek:      "days per week out of range",
}

// Rejection explains why raw input did not produce a Request.
type Rejection struct {
	Rule    Rule
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Is reports ErrInvalidInput as a match so callers can test the class.
func (r *Rejection) Is(target error) bool {
	return target == ErrInvalidInput
}

func reject(rule Rule) *Rejection {
	return &Rejection{Rule: rule, Message: ruleMessages[rule]}
}

// Request is a validated plan request. The zero value is not valid;
// Requests are only produced by Validate.
type Request struct {
	subjects    []string
	dailyHours  float64
	daysPerWeek int
}

// Subjects returns a copy of the trimmed subjects in input order.
func (r Request) Subjects() []string {
	out := make([]string, len(r.subjects))
	copy(out, r.subjects)
	return out
}

// DailyHours returns the validated daily study hours.
func (r Request) DailyHours() float64 { return r.dailyHours }

// DaysPerWeek returns the validated number of study days.
func (r Request) DaysPerWeek() int { return r.daysPerWeek }

// Validate checks the raw form fields and returns a Request or a *Rejection.
func Validate(rawSubjects, rawHours, rawDaysPerWeek string) (Request, error) {
	subjects := SplitSubjects(rawSubjects)
	if len(subjects) == 0 {
		return Request{}, reject(RuleSubjectsRequired)
	}
	if len(subjects) > MaxSubjects {
		return Request{}, reject(RuleTooManySubjects)
	}

	hours, ok := parseNumber(rawHours)
	if !ok || hours < MinDailyHours || hours > MaxDailyHours {
		return Request{}, reject(RuleDailyHours)
	}

	days, ok := parseNumber(rawDaysPerWeek)
	if !ok || days != math.Trunc(days) || days < MinDaysPerWeek || days > MaxDaysPerWeek {
		return Request{}, reject(RuleDaysPerWeek)
	}

	return Request{
		subjects:    subjects,
		dailyHours:  hours,
		daysPerWeek: int(days),
	}, nil
}

// SplitSubjects splits a comma separated list, trims every entry and
// drops empty ones while keeping the original order.
func SplitSubjects(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
