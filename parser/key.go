package parser

import (
	"cmp"
	"slices"
	"strings"
)

// Key is the identity of a rule for exact-duplicate detection. It is
// comparable and meant to be used as a map key, not for ordering.
type Key struct {
	Kind      string
	Value     string
	Modifiers string // Sorted, lower-cased, comma-joined, no-resolve excluded
	NoResolve bool

	// Parsed is false for strings that could not be split into fields; Raw
	// then holds the whole string.
	Parsed bool
	Raw    string
}

func newKey(kind, value string, mods []string, noResolve bool) Key {
	lowered := make([]string, 0, len(mods))
	for _, m := range mods {
		if strings.EqualFold(m, NoResolve) {
			noResolve = true
			continue
		}
		lowered = append(lowered, strings.ToLower(m))
	}
	slices.Sort(lowered)
	return Key{
		Kind:      strings.ToUpper(kind),
		Value:     strings.ToLower(value),
		Modifiers: strings.Join(lowered, ","),
		NoResolve: noResolve,
		Parsed:    true,
	}
}

// RuleKey derives the identity key of a canonical rule string. A string with
// fewer than two fields is its own key.
func RuleKey(rule string) Key {
	kind, value, mods, ok := SplitFields(rule)
	if !ok {
		return Key{Raw: rule}
	}
	return newKey(kind, value, mods, false)
}

// RulePriority ranks a rule string by kind. Unparsable or unknown kinds rank
// 99.
func RulePriority(rule string) int {
	kind, _, _, ok := SplitFields(rule)
	if !ok {
		return 99
	}
	return ParseKind(kind).Priority()
}

// SortRules orders rules by kind priority, then case-insensitively by text.
func SortRules(rules []string) {
	slices.SortStableFunc(rules, func(a, b string) int {
		if c := cmp.Compare(RulePriority(a), RulePriority(b)); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
	})
}

// SplitFields splits type,value[,mods...] and trims every field. It does not
// check the kind.
func SplitFields(line string) (kind, value string, mods []string, ok bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return "", "", nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.ToUpper(parts[0]), parts[1], parts[2:], true
}
