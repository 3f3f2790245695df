// Package model defines the core event log data structures for tracelens.
package model

// Standard XES attribute keys.
const (
	KeyCaseID    = "case:concept:name"
	KeyActivity  = "concept:name"
	KeyTimestamp = "time:timestamp"
	KeyResource  = "org:resource"
	KeyLifecycle = "lifecycle:transition"

	// CasePrefix marks attributes that belong to the case rather than
	// to an individual event when events are flattened to rows.
	CasePrefix = "case:"
)

// LifecycleComplete is the lifecycle transition marking a finished activity.
const LifecycleComplete = "complete"

// Event is a single recorded activity occurrence within a case.
// Timestamps are stored as int64 nanoseconds since Unix epoch.
// Events are immutable once loaded.
type Event struct {
	// CaseID identifies the process instance (trace) this event belongs to.
	CaseID string

	// Activity is the activity label (concept:name).
	Activity string

	// Timestamp in nanoseconds since Unix epoch. Zero if absent.
	Timestamp int64

	// Resource is the actor performing the activity (org:resource).
	Resource string

	// Lifecycle is the lifecycle transition (lifecycle:transition),
	// e.g. "start", "complete", "schedule". Empty if absent.
	Lifecycle string

	// Attributes holds the remaining event-level key-value pairs.
	// Attributes prefixed with CasePrefix are case-level values
	// propagated by the parser.
	Attributes []Attribute

	// CaseOnly marks a placeholder for a trace that declared a case
	// identifier but contained no events. Such a record is not an
	// event; it only registers the empty case.
	CaseOnly bool
}

// Attribute is a key-value pair of event or case metadata.
type Attribute struct {
	Key   string
	Value string
	Type  AttrType
}

// AttrType indicates the semantic type of an attribute value.
type AttrType uint8

const (
	AttrTypeString AttrType = iota
	AttrTypeInt
	AttrTypeFloat
	AttrTypeBool
	AttrTypeTimestamp
)

// String returns the XES element name for the attribute type.
func (t AttrType) String() string {
	switch t {
	case AttrTypeInt:
		return "int"
	case AttrTypeFloat:
		return "float"
	case AttrTypeBool:
		return "boolean"
	case AttrTypeTimestamp:
		return "date"
	default:
		return "string"
	}
}

// Attr returns the value of the named event attribute and whether it is set.
// The dedicated fields (activity, timestamp, resource, lifecycle) are not
// reachable through Attr.
func (e *Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
