package plan

// Model is a read-only view over a decoded Response. It owns a private
// copy of the response; every accessor hands out copies so callers can
// never mutate the model in place.
type Model struct {
	resp Response
}

// NewModel wraps resp. The response is deep-copied.
func NewModel(resp Response) *Model {
	return &Model{resp: cloneResponse(resp)}
}

// Response returns a deep copy of the underlying response.
func (m *Model) Response() Response {
	return cloneResponse(m.resp)
}

// Days returns the scheduled days in service order.
func (m *Model) Days() []DayPlan {
	return cloneDays(m.resp.Plan)
}

// DayCount returns the number of scheduled days.
func (m *Model) DayCount() int {
	return len(m.resp.Plan)
}

// SessionCount returns the number of sessions across all days.
func (m *Model) SessionCount() int {
	n := 0
	for _, d := range m.resp.Plan {
		n += len(d.Sessions)
	}
	return n
}

// TotalHours sums total_hours over every day.
func (m *Model) TotalHours() float64 {
	var total float64
	for _, d := range m.resp.Plan {
		total += d.TotalHours
	}
	return total
}

// Subjects returns every distinct session subject in order of first appearance.
func (m *Model) Subjects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range m.resp.Plan {
		for _, s := range d.Sessions {
			if !seen[s.Subject] {
				seen[s.Subject] = true
				out = append(out, s.Subject)
			}
		}
	}
	return out
}

// Links returns the resource links for subject, if the service sent any.
func (m *Model) Links(subject string) (ResourceLinks, bool) {
	return m.resp.Resources.Get(subject)
}

// Resources returns every subject's links in service order.
func (m *Model) Resources() []ResourceEntry {
	return m.resp.Resources.Entries()
}

// MarshalJSON encodes the full response in field order.
func (m *Model) MarshalJSON() ([]byte, error) {
	return marshalRaw(m.resp)
}

func cloneResponse(r Response) Response {
	return Response{
		Plan:      cloneDays(r.Plan),
		Resources: NewResources(r.Resources.Entries()...),
	}
}

func cloneDays(days []DayPlan) []DayPlan {
	if days == nil {
		return nil
	}
	out := make([]DayPlan, len(days))
	for i, d := range days {
		out[i] = d
		if d.Sessions != nil {
			out[i].Sessions = append([]Session(nil), d.Sessions...)
			if len(d.Sessions) == 0 {
				out[i].Sessions = []Session{}
			}
		}
	}
	return out
}
