package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	domainChars = regexp.MustCompile(`^[a-z0-9.\-]+$`)
	cidr4Shape  = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}/\d{1,2}$`)
)

// ValidDomain is a pragmatic syntactic check, not an RFC validator. The value
// must already be lower-cased.
func ValidDomain(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	if !domainChars.MatchString(s) {
		return false
	}
	if strings.Contains(s, "..") || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}

	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}
	}

	// An all-digit TLD means the token is IPv4-shaped.
	return !allDigits(labels[len(labels)-1])
}

// ValidIPv4CIDR accepts a.b.c.d/m with octets 0-255 and mask 0-32. Leading
// zeros in octets are tolerated.
func ValidIPv4CIDR(s string) bool {
	if !cidr4Shape.MatchString(s) {
		return false
	}
	_, _, ok := DecodeCIDR(s)
	return ok
}

// ValidIPv6CIDR only checks the shape addr/mask with a colon in the address
// and a mask in 0-128.
func ValidIPv6CIDR(s string) bool {
	idx := strings.LastIndex(s, "/")
	if idx == -1 {
		return false
	}
	mask, err := strconv.Atoi(s[idx+1:])
	if err != nil || mask < 0 || mask > 128 {
		return false
	}
	return strings.Contains(s[:idx], ":")
}

// ValidPureIPv4 accepts a dotted quad without mask and without leading zeros.
func ValidPureIPv4(s string) bool {
	_, ok := ParseIPv4(s)
	return ok
}

// ParseIPv4 decodes a strict dotted quad into its 32-bit value.
func ParseIPv4(s string) (uint32, bool) {
	if strings.Contains(s, "/") {
		return 0, false
	}
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}

	var ip uint32
	for _, part := range parts {
		if part == "" || !allDigits(part) {
			return 0, false
		}
		if len(part) > 1 && part[0] == '0' {
			return 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return 0, false
		}
		ip = ip<<8 | uint32(n)
	}
	return ip, true
}

// DecodeCIDR splits a.b.c.d/m into its 32-bit address and prefix length.
// Host bits are preserved; containment checks shift them away.
func DecodeCIDR(s string) (uint32, int, bool) {
	addr, maskStr, found := strings.Cut(s, "/")
	if !found || !allDigits(maskStr) {
		return 0, 0, false
	}
	mask, err := strconv.Atoi(maskStr)
	if err != nil || mask < 0 || mask > 32 {
		return 0, 0, false
	}

	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return 0, 0, false
	}
	var ip uint32
	for _, part := range parts {
		if !allDigits(part) {
			return 0, 0, false
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return 0, 0, false
		}
		ip = ip<<8 | uint32(n)
	}
	return ip, mask, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
