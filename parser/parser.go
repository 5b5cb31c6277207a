package parser

import (
	"fmt"
	"net/netip"
	"strings"
)

// Status tells which classification branch a line ended in.
type Status int

const (
	StatusSkipped      Status = iota // blank or comment
	StatusValid                      // recognized and valid
	StatusInvalid                    // recognized but invalid
	StatusUnrecognized               // no branch matched
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "unrecognized"
	}
}

// Result is the outcome of classifying one raw line. Rule is only set when
// Status is StatusValid; Err explains StatusInvalid.
type Result struct {
	Status Status
	Rule   Rule
	Err    error
}

var canonicalPrefixes = []string{
	"DOMAIN,",
	"DOMAIN-SUFFIX,",
	"DOMAIN-KEYWORD,",
	"IP-CIDR,",
	"IP-CIDR6,",
}

// Classifier turns raw lines of an upstream list into canonical rules.
// The zero value understands the typed form, bare IP forms, leading-dot
// suffixes and plain domains. Extended adds wildcard suffixes (*.d, +.d),
// AdGuard ||d^ lines and hosts entries.
type Classifier struct {
	Extended bool
}

// NormalizeLine returns the canonical rule for a raw line, or false if the
// line is dropped.
func NormalizeLine(line string) (string, bool) {
	res := Classify(line)
	if res.Status != StatusValid {
		return "", false
	}
	return res.Rule.String(), true
}

// Classify classifies a line with the default Classifier.
func Classify(line string) Result {
	return Classifier{}.Classify(line)
}

// Classify classifies one raw line. Branches are tried in order and the
// first match wins.
func (c Classifier) Classify(line string) Result {
	line = strings.TrimSpace(line)

	// 1. Blank or comment
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
		return Result{Status: StatusSkipped}
	}

	// 2. Already typed
	if hasCanonicalPrefix(line) {
		rule, err := ParseRule(line)
		if err != nil {
			return invalid(err)
		}
		return valid(rule)
	}

	// 3-5. Bare IP forms
	if ValidIPv4CIDR(line) {
		return valid(Rule{Kind: KindCIDR, Value: line})
	}
	if ValidIPv6CIDR(line) {
		return valid(Rule{Kind: KindCIDR6, Value: line})
	}
	if ValidPureIPv4(line) {
		return valid(Rule{Kind: KindDomain, Value: line})
	}

	// 6. Leading dot
	if strings.HasPrefix(line, ".") {
		return suffixRule(strings.TrimPrefix(line, "."))
	}

	if c.Extended {
		if res, ok := classifyExtended(line); ok {
			return res
		}
	}

	// 7. Plain domain
	domain := strings.ToLower(line)
	if ValidDomain(domain) {
		return valid(Rule{Kind: KindDomain, Value: domain})
	}
	return Result{Status: StatusUnrecognized}
}

// classifyExtended handles the wildcard, AdGuard and hosts forms. It reports
// false when none of them applies.
func classifyExtended(line string) (Result, bool) {
	for _, prefix := range []string{"*.", "+."} {
		if strings.HasPrefix(line, prefix) {
			return suffixRule(strings.TrimPrefix(line, prefix)), true
		}
	}

	// AdGuard domain form: ||example.com^
	if strings.HasPrefix(line, "@@") || strings.Contains(line, "$") {
		return Result{Status: StatusUnrecognized}, true
	}
	if strings.HasPrefix(line, "||") {
		pattern := strings.TrimSuffix(strings.TrimPrefix(line, "||"), "^")
		return suffixRule(pattern), true
	}

	// Hosts form: 0.0.0.0 example.com
	if fields := strings.Fields(line); len(fields) >= 2 {
		ip, err := netip.ParseAddr(fields[0])
		if err != nil || !(ip.IsUnspecified() || ip.IsLoopback()) {
			return Result{Status: StatusUnrecognized}, true
		}
		domain := strings.ToLower(fields[1])
		if !ValidDomain(domain) {
			return invalid(fmt.Errorf("%w: hosts entry %q", ErrInvalidValue, fields[1])), true
		}
		return valid(Rule{Kind: KindDomain, Value: domain}), true
	}
	return Result{}, false
}

// ParseRule parses an already typed line KIND,value[,mods...] into a
// validated Rule. no-resolve is dropped for domain kinds and moved last for
// IP kinds.
func ParseRule(line string) (Rule, error) {
	kindStr, value, params, ok := SplitFields(line)
	if !ok {
		return Rule{}, ErrTooFewFields
	}

	kind := ParseKind(kindStr)
	if kind == KindUnknown {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kindStr)
	}

	var (
		mods      []string
		noResolve bool
		seen      = make(map[string]bool)
	)
	for _, p := range params {
		lower := strings.ToLower(p)
		if p == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		if lower == NoResolve {
			// Domain rules never resolve, the flag is meaningless there
			noResolve = !kind.IsDomain()
			continue
		}
		mods = append(mods, p)
	}

	switch kind {
	case KindKeyword, KindDomain, KindSuffix:
		value = strings.ToLower(value)
		if !ValidPureIPv4(value) && !ValidDomain(value) {
			return Rule{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, kind, value)
		}
	case KindCIDR:
		if !ValidIPv4CIDR(value) {
			return Rule{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, kind, value)
		}
	case KindCIDR6:
		if !ValidIPv6CIDR(value) {
			return Rule{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, kind, value)
		}
	}

	return Rule{Kind: kind, Value: value, Modifiers: mods, NoResolve: noResolve}, nil
}

func hasCanonicalPrefix(line string) bool {
	upper := strings.ToUpper(line)
	for _, prefix := range canonicalPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

func suffixRule(pattern string) Result {
	domain := strings.ToLower(pattern)
	if !ValidDomain(domain) {
		return invalid(fmt.Errorf("%w: suffix %q", ErrInvalidValue, pattern))
	}
	return valid(Rule{Kind: KindSuffix, Value: domain})
}

func valid(r Rule) Result {
	return Result{Status: StatusValid, Rule: r}
}

func invalid(err error) Result {
	return Result{Status: StatusInvalid, Err: err}
}
