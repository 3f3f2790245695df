package model

import (
	"sort"
	"time"
)

// Case is an ordered sequence of events sharing one case identifier.
// Events are ordered by timestamp; ties keep original log order.
type Case struct {
	ID     string
	Events []Event

	// Attributes holds case-level attributes lifted from CasePrefix keys.
	Attributes []Attribute
}

// Activities returns the ordered activity labels of the case.
// A case with zero events yields an empty, non-nil sequence.
func (c *Case) Activities() []string {
	labels := make([]string, len(c.Events))
	for i := range c.Events {
		labels[i] = c.Events[i].Activity
	}
	return labels
}

// Contains reports whether any event of the case carries the activity label.
func (c *Case) Contains(activity string) bool {
	for i := range c.Events {
		if c.Events[i].Activity == activity {
			return true
		}
	}
	return false
}

// Start returns the timestamp of the first event, or zero time for an
// empty case.
func (c *Case) Start() time.Time {
	if len(c.Events) == 0 {
		return time.Time{}
	}
	return time.Unix(0, c.Events[0].Timestamp).UTC()
}

// End returns the timestamp of the last event, or zero time for an
// empty case.
func (c *Case) End() time.Time {
	if len(c.Events) == 0 {
		return time.Time{}
	}
	return time.Unix(0, c.Events[len(c.Events)-1].Timestamp).UTC()
}

// Duration returns the elapsed time between the first and last event.
func (c *Case) Duration() time.Duration {
	if len(c.Events) == 0 {
		return 0
	}
	return c.End().Sub(c.Start())
}

// Attr returns the value of the named case attribute and whether it is set.
func (c *Case) Attr(key string) (string, bool) {
	for _, a := range c.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Log is an in-memory event log: the ordered collection of cases.
// Case order follows first appearance in the source.
type Log struct {
	Cases []*Case
}

// EventCount returns the total number of events across all cases.
func (l *Log) EventCount() int {
	n := 0
	for _, c := range l.Cases {
		n += len(c.Events)
	}
	return n
}

// Activities returns the distinct activity labels in first-appearance order.
func (l *Log) Activities() []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, c := range l.Cases {
		for i := range c.Events {
			a := c.Events[i].Activity
			if _, ok := seen[a]; !ok {
				seen[a] = struct{}{}
				labels = append(labels, a)
			}
		}
	}
	return labels
}

// Resources returns the distinct non-empty resource identifiers in
// first-appearance order.
func (l *Log) Resources() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range l.Cases {
		for i := range c.Events {
			r := c.Events[i].Resource
			if r == "" {
				continue
			}
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				names = append(names, r)
			}
		}
	}
	return names
}

// Builder assembles a Log from a stream of events. Events are grouped by
// case ID preserving first-appearance case order; each case is sorted by
// timestamp with a stable sort so that ties keep original log order.
type Builder struct {
	cases map[string]*Case
	order []string
}

// NewBuilder creates an empty log builder.
func NewBuilder() *Builder {
	return &Builder{cases: make(map[string]*Case)}
}

// Add appends one event to its case, creating the case on first sight.
// Case-level attributes (CasePrefix keys) are lifted onto the case; the
// first observed value wins.
func (b *Builder) Add(e *Event) {
	c, ok := b.cases[e.CaseID]
	if !ok {
		c = &Case{ID: e.CaseID}
		b.cases[e.CaseID] = c
		b.order = append(b.order, e.CaseID)
	}

	ev := Event{
		CaseID:    e.CaseID,
		Activity:  e.Activity,
		Timestamp: e.Timestamp,
		Resource:  e.Resource,
		Lifecycle: e.Lifecycle,
	}
	for _, a := range e.Attributes {
		if len(a.Key) > len(CasePrefix) && a.Key[:len(CasePrefix)] == CasePrefix {
			key := a.Key[len(CasePrefix):]
			if _, exists := c.Attr(key); !exists {
				c.Attributes = append(c.Attributes, Attribute{Key: key, Value: a.Value, Type: a.Type})
			}
			continue
		}
		ev.Attributes = append(ev.Attributes, a)
	}
	c.Events = append(c.Events, ev)
}

// AddCase registers a case that has no events yet. Used for traces that
// declare a case ID but contain zero events; such cases still count.
func (b *Builder) AddCase(id string) {
	if _, ok := b.cases[id]; ok {
		return
	}
	b.cases[id] = &Case{ID: id}
	b.order = append(b.order, id)
}

// Build finalizes the log. Each case is sorted by timestamp (stable).
func (b *Builder) Build() *Log {
	log := &Log{Cases: make([]*Case, 0, len(b.order))}
	for _, id := range b.order {
		c := b.cases[id]
		sort.SliceStable(c.Events, func(i, j int) bool {
			return c.Events[i].Timestamp < c.Events[j].Timestamp
		})
		log.Cases = append(log.Cases, c)
	}
	return log
}
