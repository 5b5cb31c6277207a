package parser

import "strings"

// Kind distinguishes the five supported rule types.
type Kind int

const (
	KindUnknown Kind = iota
	KindKeyword      // DOMAIN-KEYWORD,ads
	KindDomain       // DOMAIN,ads.example.com
	KindSuffix       // DOMAIN-SUFFIX,example.com
	KindCIDR         // IP-CIDR,10.0.0.0/8
	KindCIDR6        // IP-CIDR6,2001:db8::/32
)

// NoResolve is the only modifier the engine understands. It is always
// emitted last.
const NoResolve = "no-resolve"

// Kinds lists the supported kinds in output priority order.
var Kinds = []Kind{KindKeyword, KindDomain, KindSuffix, KindCIDR, KindCIDR6}

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "DOMAIN-KEYWORD"
	case KindDomain:
		return "DOMAIN"
	case KindSuffix:
		return "DOMAIN-SUFFIX"
	case KindCIDR:
		return "IP-CIDR"
	case KindCIDR6:
		return "IP-CIDR6"
	default:
		return "UNKNOWN"
	}
}

// Priority is the sort rank of the kind in the final output.
func (k Kind) Priority() int {
	switch k {
	case KindKeyword:
		return 1
	case KindDomain:
		return 2
	case KindSuffix:
		return 3
	case KindCIDR:
		return 4
	case KindCIDR6:
		return 5
	default:
		return 99
	}
}

// IsDomain reports whether the kind carries a domain-shaped value.
func (k Kind) IsDomain() bool {
	return k == KindKeyword || k == KindDomain || k == KindSuffix
}

// ParseKind maps a rule type token (any case) to its Kind.
func ParseKind(s string) Kind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DOMAIN-KEYWORD":
		return KindKeyword
	case "DOMAIN":
		return KindDomain
	case "DOMAIN-SUFFIX":
		return KindSuffix
	case "IP-CIDR":
		return KindCIDR
	case "IP-CIDR6":
		return KindCIDR6
	}
	return KindUnknown
}

// Rule is a validated canonical rule. Values are never mutated after
// construction.
type Rule struct {
	Kind      Kind
	Value     string
	Modifiers []string // Without no-resolve, in source order
	NoResolve bool
}

// String renders the canonical form KIND,value[,modifier...] with
// no-resolve last.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(r.Kind.String())
	b.WriteByte(',')
	b.WriteString(r.Value)
	for _, m := range r.Modifiers {
		b.WriteByte(',')
		b.WriteString(m)
	}
	if r.NoResolve {
		b.WriteByte(',')
		b.WriteString(NoResolve)
	}
	return b.String()
}

// Key returns the identity key of the rule.
func (r Rule) Key() Key {
	return newKey(r.Kind.String(), r.Value, r.Modifiers, r.NoResolve)
}
