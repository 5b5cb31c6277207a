package engine

import (
	"strings"

	"github.com/miekg/dns"

	"rulemerge/parser"
)

// domainEntry pairs a decoded domain with the rule it came from.
type domainEntry struct {
	labels []string
	rule   string
}

func (d domainEntry) name() string {
	return strings.Join(d.labels, ".")
}

// cidrEntry pairs a decoded IPv4 network with the rule it came from.
type cidrEntry struct {
	network uint32
	prefix  int
	policy  policy
	rule    string
}

// policy is the non-value part of a rule's identity.
type policy struct {
	modifiers string
	noResolve bool
}

func policyOf(rule string) policy {
	key := parser.RuleKey(rule)
	return policy{modifiers: key.Modifiers, noResolve: key.NoResolve}
}

// batch is the working set of the pipeline, bucketed by kind so the
// containment passes never re-parse rule strings.
type batch struct {
	keywords []string
	domains  []domainEntry
	suffixes []domainEntry
	cidrs    []cidrEntry
	cidr6s   []string
}

// classify buckets rules by kind. Rules that cannot be decoded are dropped
// and counted as malformed.
func classify(rules []string) (batch, int) {
	var (
		b         batch
		malformed int
	)
	for _, rule := range rules {
		kindStr, value, _, ok := parser.SplitFields(rule)
		if !ok {
			malformed++
			continue
		}

		kind := parser.ParseKind(kindStr)
		switch kind {
		case parser.KindKeyword:
			b.keywords = append(b.keywords, rule)
		case parser.KindDomain, parser.KindSuffix:
			labels := dns.SplitDomainName(strings.ToLower(value))
			if len(labels) == 0 {
				malformed++
				continue
			}
			entry := domainEntry{labels: labels, rule: rule}
			if kind == parser.KindDomain {
				b.domains = append(b.domains, entry)
			} else {
				b.suffixes = append(b.suffixes, entry)
			}
		case parser.KindCIDR:
			network, prefix, ok := parser.DecodeCIDR(value)
			if !ok {
				malformed++
				continue
			}
			b.cidrs = append(b.cidrs, cidrEntry{
				network: network,
				prefix:  prefix,
				policy:  policyOf(rule),
				rule:    rule,
			})
		case parser.KindCIDR6:
			b.cidr6s = append(b.cidr6s, rule)
		default:
			malformed++
		}
	}
	return b, malformed
}
