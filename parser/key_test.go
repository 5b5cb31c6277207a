package parser

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestRuleKey(t *testing.T) {
	same := [][2]string{
		{"DOMAIN,Example.com", "domain,example.com"},
		{"IP-CIDR,10.0.0.0/8,REJECT,DIRECT", "ip-cidr,10.0.0.0/8,direct,reject"},
		{"IP-CIDR,10.0.0.0/8,no-resolve,REJECT", "IP-CIDR,10.0.0.0/8,REJECT,NO-RESOLVE"},
		{"DOMAIN , example.com", "DOMAIN,example.com"},
	}
	for _, pair := range same {
		assert.Equal(t, RuleKey(pair[0]), RuleKey(pair[1]), "%q vs %q", pair[0], pair[1])
	}

	different := [][2]string{
		{"IP-CIDR,10.0.0.0/8", "IP-CIDR,10.0.0.0/8,no-resolve"},
		{"DOMAIN,example.com", "DOMAIN-SUFFIX,example.com"},
		{"DOMAIN,example.com", "DOMAIN,example.com,REJECT"},
		{"garbage-one", "garbage-two"},
		{"DOMAIN", "DOMAIN,"},
		{"", ","},
		{"", ",,"},
		{",", ",,x"},
	}
	for _, pair := range different {
		assert.NotEqual(t, RuleKey(pair[0]), RuleKey(pair[1]), "%q vs %q", pair[0], pair[1])
	}
}

func TestRuleKeyMatchesRule(t *testing.T) {
	r, err := ParseRule("IP-CIDR,10.0.0.0/8,no-resolve,REJECT")
	assert.NoError(t, err)
	assert.Equal(t, RuleKey(r.String()), r.Key())
}

func TestRulePriority(t *testing.T) {
	assert.Equal(t, 1, RulePriority("DOMAIN-KEYWORD,ads.com"))
	assert.Equal(t, 2, RulePriority("DOMAIN,ads.com"))
	assert.Equal(t, 3, RulePriority("domain-suffix,ads.com"))
	assert.Equal(t, 4, RulePriority("IP-CIDR,10.0.0.0/8"))
	assert.Equal(t, 5, RulePriority("IP-CIDR6,::/0"))
	assert.Equal(t, 99, RulePriority("GEOIP,CN"))
	assert.Equal(t, 99, RulePriority("nonsense"))
}

func TestSortRules(t *testing.T) {
	rules := []string{
		"IP-CIDR6,2001:db8::/32",
		"DOMAIN-SUFFIX,b.com",
		"IP-CIDR,10.0.0.0/8",
		"DOMAIN,B.com",
		"DOMAIN,a.com",
		"DOMAIN-KEYWORD,ad.x",
		"DOMAIN-SUFFIX,A.com",
	}
	SortRules(rules)
	assert.Equal(t, []string{
		"DOMAIN-KEYWORD,ad.x",
		"DOMAIN,a.com",
		"DOMAIN,B.com",
		"DOMAIN-SUFFIX,A.com",
		"DOMAIN-SUFFIX,b.com",
		"IP-CIDR,10.0.0.0/8",
		"IP-CIDR6,2001:db8::/32",
	}, rules)
}

func flipCase(s string, mask []bool) string {
	var b strings.Builder
	for i, r := range s {
		if len(mask) > 0 && mask[i%len(mask)] {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

func TestRuleKeyProperties(t *testing.T) {
	bases := []string{
		"DOMAIN,ads.example.com",
		"DOMAIN-SUFFIX,example.org,REJECT",
		"IP-CIDR,10.0.0.0/8,REJECT,no-resolve",
		"IP-CIDR6,2001:db8::/32,DIRECT",
		"DOMAIN-KEYWORD,ad.track",
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("key ignores letter case", prop.ForAll(
		func(i int, mask []bool) bool {
			base := bases[i]
			return RuleKey(base) == RuleKey(flipCase(base, mask))
		},
		gen.IntRange(0, len(bases)-1),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("key ignores modifier order", prop.ForAll(
		func(swap bool) bool {
			a, b := "IP-CIDR,10.0.0.0/8,REJECT,DIRECT", "IP-CIDR,10.0.0.0/8,DIRECT,REJECT"
			if swap {
				a, b = b, a
			}
			return RuleKey(a) == RuleKey(b)
		},
		gen.Bool(),
	))

	properties.Property("priority follows the kind", prop.ForAll(
		func(i int, mask []bool) bool {
			base := bases[i]
			return RulePriority(flipCase(base, mask)) == RulePriority(base)
		},
		gen.IntRange(0, len(bases)-1),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
