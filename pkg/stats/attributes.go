package stats

import (
	"sort"

	"github.com/tracelens/tracelens/internal/model"
)

// DefaultCaseLevelThreshold is the fraction of cases in which an
// attribute must be constant to be classified as case-level.
const DefaultCaseLevelThreshold = 0.8

// DefaultMaxSamples bounds the sample values listed per attribute.
const DefaultMaxSamples = 20

// AttributeScope tells where an attribute was observed.
type AttributeScope uint8

const (
	ScopeEvent AttributeScope = iota
	ScopeCase
)

// String returns the scope name.
func (s AttributeScope) String() string {
	if s == ScopeCase {
		return "case"
	}
	return "event"
}

// AttributeInfo describes one attribute of the log.
type AttributeInfo struct {
	Key         string
	Scope       AttributeScope
	Occurrences int
	Distinct    int

	// Samples holds up to DefaultMaxSamples distinct values in
	// first-appearance order.
	Samples []string
}

// InventoryAttributes lists every attribute of the log with occurrence
// counts and sample values. Case attributes and event attributes are
// reported separately; results are sorted by key within each scope,
// case scope first.
func InventoryAttributes(log *model.Log, maxSamples int) []AttributeInfo {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	type acc struct {
		info     AttributeInfo
		distinct map[string]struct{}
	}
	collect := func(accs map[string]*acc, scope AttributeScope, key, value string) {
		a, ok := accs[key]
		if !ok {
			a = &acc{
				info:     AttributeInfo{Key: key, Scope: scope},
				distinct: make(map[string]struct{}),
			}
			accs[key] = a
		}
		a.info.Occurrences++
		if _, seen := a.distinct[value]; !seen {
			a.distinct[value] = struct{}{}
			if len(a.info.Samples) < maxSamples {
				a.info.Samples = append(a.info.Samples, value)
			}
		}
	}

	caseAccs := make(map[string]*acc)
	eventAccs := make(map[string]*acc)
	for _, c := range log.Cases {
		for _, a := range c.Attributes {
			collect(caseAccs, ScopeCase, a.Key, a.Value)
		}
		for i := range c.Events {
			for _, a := range c.Events[i].Attributes {
				collect(eventAccs, ScopeEvent, a.Key, a.Value)
			}
		}
	}

	flatten := func(accs map[string]*acc) []AttributeInfo {
		out := make([]AttributeInfo, 0, len(accs))
		for _, a := range accs {
			a.info.Distinct = len(a.distinct)
			out = append(out, a.info)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out
	}

	return append(flatten(caseAccs), flatten(eventAccs)...)
}

// Constancy describes how stable an event attribute is within cases.
type Constancy struct {
	Key string

	// CasesObserved is the number of cases in which the attribute
	// appears at least once.
	CasesObserved int

	// ConstantCases is the number of observed cases where the attribute
	// holds a single distinct value. Cases where the attribute is
	// absent do not count against constancy.
	ConstantCases int

	// ConstantFraction is ConstantCases over CasesObserved.
	ConstantFraction float64

	// ConstantInAllCases is true when every observed case is constant.
	ConstantInAllCases bool
}

// AnalyzeConstancy reports per-attribute constancy across cases, sorted
// by descending constant fraction, ties by key.
func AnalyzeConstancy(log *model.Log) []Constancy {
	type caseState struct {
		observed map[string]struct{} // cases where key appeared
		varied   map[string]struct{} // cases where key had >1 value
	}
	states := make(map[string]*caseState)

	for _, c := range log.Cases {
		firstValue := make(map[string]string)
		for i := range c.Events {
			for _, a := range c.Events[i].Attributes {
				st, ok := states[a.Key]
				if !ok {
					st = &caseState{
						observed: make(map[string]struct{}),
						varied:   make(map[string]struct{}),
					}
					states[a.Key] = st
				}
				st.observed[c.ID] = struct{}{}
				if prev, seen := firstValue[a.Key]; !seen {
					firstValue[a.Key] = a.Value
				} else if prev != a.Value {
					st.varied[c.ID] = struct{}{}
				}
			}
		}
	}

	out := make([]Constancy, 0, len(states))
	for key, st := range states {
		c := Constancy{
			Key:           key,
			CasesObserved: len(st.observed),
			ConstantCases: len(st.observed) - len(st.varied),
		}
		if c.CasesObserved > 0 {
			c.ConstantFraction = float64(c.ConstantCases) / float64(c.CasesObserved)
		}
		c.ConstantInAllCases = c.ConstantCases == c.CasesObserved
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ConstantFraction != out[j].ConstantFraction {
			return out[i].ConstantFraction > out[j].ConstantFraction
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// AttributeLevel classifies an event attribute as case-level or
// event-level.
type AttributeLevel struct {
	Key       string
	CaseLevel bool
	Constancy Constancy
}

// ClassifyLevels marks attributes whose constant fraction reaches the
// threshold as case-level: their value is a property of the case, not
// of the individual events carrying it.
func ClassifyLevels(log *model.Log, threshold float64) []AttributeLevel {
	if threshold <= 0 {
		threshold = DefaultCaseLevelThreshold
	}
	constancy := AnalyzeConstancy(log)
	out := make([]AttributeLevel, 0, len(constancy))
	for _, c := range constancy {
		out = append(out, AttributeLevel{
			Key:       c.Key,
			CaseLevel: c.ConstantFraction >= threshold,
			Constancy: c,
		})
	}
	return out
}
