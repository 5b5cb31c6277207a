package engine

import (
	"cmp"
	"slices"

	"rulemerge/parser"
)

// Stats counts the rules removed by each pass of the pipeline.
type Stats struct {
	Duplicates    int // identity-equal to an earlier rule
	CIDRCovered   int // IP-CIDR inside a broader IP-CIDR
	DomainCovered int // DOMAIN at or below a DOMAIN-SUFFIX
	SuffixCovered int // DOMAIN-SUFFIX below a broader DOMAIN-SUFFIX
	CrossKind     int // DOMAIN IPv4 literal inside an IP-CIDR

	// Malformed rules are dropped while bucketing and are not part of Total.
	Malformed int
}

// Total is the number of rules removed as redundant.
func (s Stats) Total() int {
	return s.Duplicates + s.CIDRCovered + s.DomainCovered + s.SuffixCovered + s.CrossKind
}

// Reduction is the output of Reduce.
type Reduction struct {
	Rules []string // Staged in kind order, not sorted
	Stats Stats
}

// Reduce removes duplicate and covered rules from a pool of canonical rules.
// The pass order is fixed; every pass reads only the output of earlier ones.
func Reduce(rules []string) Reduction {
	var st Stats

	unique, n := dedupe(rules)
	st.Duplicates = n

	b, malformed := classify(unique)
	st.Malformed = malformed

	cidrs, n := collapseCIDRs(b.cidrs)
	st.CIDRCovered = n

	domains, n := dropSuffixCovered(b.domains, b.suffixes)
	st.DomainCovered = n

	suffixes, n := collapseSuffixes(b.suffixes)
	st.SuffixCovered = n

	domains, n = dropCIDRCovered(domains, cidrs)
	st.CrossKind = n

	out := merge(batch{
		keywords: b.keywords,
		domains:  domains,
		suffixes: suffixes,
		cidrs:    cidrs,
		cidr6s:   b.cidr6s,
	})
	return Reduction{Rules: out, Stats: st}
}

// dedupe keeps the first rule for every identity key, in input order.
func dedupe(rules []string) ([]string, int) {
	seen := make(map[parser.Key]struct{}, len(rules))
	kept := make([]string, 0, len(rules))
	for _, rule := range rules {
		key := parser.RuleKey(rule)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, rule)
	}
	return kept, len(rules) - len(kept)
}

// collapseCIDRs drops every IPv4 block contained in a strictly broader kept
// block. Blocks are visited broadest first, so a block can only be covered by
// one that was already kept. A block naming the same network as a kept block
// of equal prefix is dropped only when its policy matches too.
func collapseCIDRs(in []cidrEntry) ([]cidrEntry, int) {
	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b cidrEntry) int {
		return cmp.Compare(a.prefix, b.prefix)
	})

	idx := make(cidrIndex)
	same := make(map[sameBlock]struct{})
	kept := make([]cidrEntry, 0, len(sorted))
	for _, c := range sorted {
		if c.prefix > 0 && idx.covers(c.network, c.prefix-1) {
			continue
		}
		sb := sameBlock{
			cidrKey: cidrKey{bits: networkBits(c.network, c.prefix), prefix: c.prefix},
			policy:  c.policy,
		}
		if _, ok := same[sb]; ok {
			continue
		}
		same[sb] = struct{}{}
		idx.add(c)
		kept = append(kept, c)
	}
	return kept, len(in) - len(kept)
}

// dropSuffixCovered drops DOMAIN rules whose name, or an ancestor of at least
// two labels, is a DOMAIN-SUFFIX value.
func dropSuffixCovered(domains, suffixes []domainEntry) ([]domainEntry, int) {
	trie := newSuffixTrie()
	for _, s := range suffixes {
		trie.insert(s.labels)
	}

	kept := make([]domainEntry, 0, len(domains))
	for _, d := range domains {
		if trie.covered(d.labels, min(2, len(d.labels)), len(d.labels)) {
			continue
		}
		kept = append(kept, d)
	}
	return kept, len(domains) - len(kept)
}

// collapseSuffixes drops DOMAIN-SUFFIX rules below a broader kept suffix.
// Suffixes are visited by ascending label count.
func collapseSuffixes(suffixes []domainEntry) ([]domainEntry, int) {
	sorted := slices.Clone(suffixes)
	slices.SortStableFunc(sorted, func(a, b domainEntry) int {
		return cmp.Compare(len(a.labels), len(b.labels))
	})

	trie := newSuffixTrie()
	kept := make([]domainEntry, 0, len(sorted))
	for _, s := range sorted {
		if trie.covered(s.labels, 1, len(s.labels)-1) {
			continue
		}
		trie.insert(s.labels)
		kept = append(kept, s)
	}
	return kept, len(suffixes) - len(kept)
}

// dropCIDRCovered drops DOMAIN rules that are IPv4 literals inside a kept
// IP-CIDR block. Names that are not dotted quads are always kept.
func dropCIDRCovered(domains []domainEntry, cidrs []cidrEntry) ([]domainEntry, int) {
	if len(cidrs) == 0 {
		return domains, 0
	}

	idx := make(cidrIndex, len(cidrs))
	for _, c := range cidrs {
		idx.add(c)
	}

	kept := make([]domainEntry, 0, len(domains))
	for _, d := range domains {
		addr, ok := parser.ParseIPv4(d.name())
		if ok && idx.covers(addr, 32) {
			continue
		}
		kept = append(kept, d)
	}
	return kept, len(domains) - len(kept)
}

// merge stages the surviving rules in kind order.
func merge(b batch) []string {
	out := make([]string, 0, len(b.keywords)+len(b.domains)+len(b.suffixes)+len(b.cidrs)+len(b.cidr6s))
	out = append(out, b.keywords...)
	for _, d := range b.domains {
		out = append(out, d.rule)
	}
	for _, s := range b.suffixes {
		out = append(out, s.rule)
	}
	for _, c := range b.cidrs {
		out = append(out, c.rule)
	}
	return append(out, b.cidr6s...)
}

// cidrKey is a block reduced to its network bits.
type cidrKey struct {
	bits   uint32
	prefix int
}

// sameBlock identifies a block by network and policy, ignoring host bits.
type sameBlock struct {
	cidrKey
	policy policy
}

// cidrIndex answers "is addr inside any indexed block of prefix <= n" with
// one lookup per prefix length.
type cidrIndex map[cidrKey]struct{}

func networkBits(addr uint32, prefix int) uint32 {
	return addr >> uint(32-prefix)
}

func (idx cidrIndex) add(c cidrEntry) {
	idx[cidrKey{bits: networkBits(c.network, c.prefix), prefix: c.prefix}] = struct{}{}
}

func (idx cidrIndex) covers(addr uint32, maxPrefix int) bool {
	for p := 0; p <= maxPrefix; p++ {
		if _, ok := idx[cidrKey{bits: networkBits(addr, p), prefix: p}]; ok {
			return true
		}
	}
	return false
}
