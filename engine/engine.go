package engine

import (
	"rulemerge/parser"
)

// Source is one upstream list as handed over by the fetch layer.
type Source struct {
	Name  string
	Lines []string
}

// SourceStats reports what was extracted from one source.
type SourceStats struct {
	Name         string
	Raw          int // Lines received
	Valid        int // Unique rules extracted
	Repeated     int // Valid rules repeated within the source
	Invalid      int // Recognized lines that failed validation
	Unrecognized int // Lines no branch understood
}

// Result is the final, sorted rule list of a run plus its counters.
type Result struct {
	Rules   []string
	Stats   Stats
	Sources []SourceStats
	Kinds   map[parser.Kind]int
}

// Removed is the total number of redundant rules dropped by the pipeline.
func (r *Result) Removed() int {
	return r.Stats.Total()
}

// Aggregate classifies every line of one source with c and keeps the first
// rule of every identity key.
func Aggregate(c parser.Classifier, name string, lines []string) ([]string, SourceStats) {
	st := SourceStats{Name: name, Raw: len(lines)}
	seen := make(map[parser.Key]struct{})
	var rules []string

	for _, line := range lines {
		res := c.Classify(line)
		switch res.Status {
		case parser.StatusInvalid:
			st.Invalid++
			continue
		case parser.StatusUnrecognized:
			st.Unrecognized++
			continue
		case parser.StatusSkipped:
			continue
		}

		key := res.Rule.Key()
		if _, ok := seen[key]; ok {
			st.Repeated++
			continue
		}
		seen[key] = struct{}{}
		rules = append(rules, res.Rule.String())
	}

	st.Valid = len(rules)
	return rules, st
}

// Run pools the sources in the given order, reduces the pool and sorts the
// survivors by kind priority.
func Run(c parser.Classifier, sources []Source) *Result {
	res := &Result{
		Kinds: make(map[parser.Kind]int),
	}

	var pool []string
	for _, src := range sources {
		rules, st := Aggregate(c, src.Name, src.Lines)
		pool = append(pool, rules...)
		res.Sources = append(res.Sources, st)
	}

	reduced := Reduce(pool)
	parser.SortRules(reduced.Rules)

	for _, rule := range reduced.Rules {
		kind, _, _, _ := parser.SplitFields(rule)
		res.Kinds[parser.ParseKind(kind)]++
	}

	res.Rules = reduced.Rules
	res.Stats = reduced.Stats
	return res
}
