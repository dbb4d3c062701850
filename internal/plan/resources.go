package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Resources maps subject names to their links and remembers the order
// in which the service sent them. It marshals back to a JSON object in
// that same order.
type Resources struct {
	order []string
	links map[string]ResourceLinks
}

// NewResources builds Resources from subject/links pairs in order.
// A repeated subject replaces the earlier links but keeps its position.
func NewResources(entries ...ResourceEntry) Resources {
	var r Resources
	for _, e := range entries {
		r.set(e.Subject, e.Links)
	}
	return r
}

// ResourceEntry is one subject and its links.
type ResourceEntry struct {
	Subject string
	Links   ResourceLinks
}

func (r *Resources) set(subject string, links ResourceLinks) {
	if r.links == nil {
		r.links = make(map[string]ResourceLinks)
	}
	if _, ok := r.links[subject]; !ok {
		r.order = append(r.order, subject)
	}
	r.links[subject] = links
}

// Len returns the number of subjects with resources.
func (r Resources) Len() int { return len(r.order) }

// Get returns the links for subject.
func (r Resources) Get(subject string) (ResourceLinks, bool) {
	l, ok := r.links[subject]
	return l, ok
}

// Entries returns all subjects and links in service order.
func (r Resources) Entries() []ResourceEntry {
	out := make([]ResourceEntry, 0, len(r.order))
	for _, s := range r.order {
		out = append(out, ResourceEntry{Subject: s, Links: r.links[s]})
	}
	return out
}

// MarshalJSON writes the resources as an object with keys in service order.
func (r Resources) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, subject := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalRaw(subject)
		if err != nil {
			return nil, err
		}
		val, err := marshalRaw(r.links[subject])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order.
func (r *Resources) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("resources: expected object, got %v", tok)
	}

	out := Resources{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		subject, ok := tok.(string)
		if !ok {
			return fmt.Errorf("resources: expected subject key, got %v", tok)
		}
		var links ResourceLinks
		if err := dec.Decode(&links); err != nil {
			return fmt.Errorf("resources[%q]: %w", subject, err)
		}
		out.set(subject, links)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// marshalRaw encodes v without escaping '&', '<' and '>' so search URLs
// survive export unchanged.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
