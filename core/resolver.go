package core

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// Resolve turns dest into a numeric IPv4 address. An IPv4 literal, in any of the forms
// inet_aton accepts, is returned unchanged; anything else is looked up and the first IPv4
// address found is returned. Every failure is reported as HostLookupFailed.
func Resolve(dest string) (string, error) {
	if _, ok := parseIPv4(dest); ok {
		return dest, nil
	}

	ipaddr, err := net.ResolveIPAddr("ip4", dest)
	if err != nil {
		return "", newPingError(HostLookupFailed, fmt.Errorf("error while resolving address %s: %w", dest, err))
	}

	if ipaddr.IP == nil || !isIPv4(ipaddr.IP) {
		return "", newPingError(HostLookupFailed, fmt.Errorf("no IPv4 address found for %s", dest))
	}

	return ipaddr.IP.String(), nil
}

// parseIPv4 parses an IPv4 literal: the dotted quad, or the a.b.c, a.b and a shorthands where
// the last part fills the remaining bytes. Parts are decimal, octal with a leading 0, or hex with 0x.
func parseIPv4(s string) (net.IP, bool) {
	if addr, err := netip.ParseAddr(s); err == nil {
		if !addr.Is4() {
			return nil, false
		}
		b := addr.As4()
		return net.IPv4(b[0], b[1], b[2], b[3]), true
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return nil, false
	}

	values := make([]uint64, len(parts))
	for i, part := range parts {
		v, ok := parseIPv4Part(part)
		if !ok {
			return nil, false
		}
		values[i] = v
	}

	last := len(values) - 1
	var n uint32
	for i, v := range values[:last] {
		if v > 0xff {
			return nil, false
		}
		n |= uint32(v) << (24 - 8*uint(i))
	}
	if values[last] > uint64(0xffffffff)>>(8*uint(last)) {
		return nil, false
	}
	n |= uint32(values[last])

	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)), true
}

func parseIPv4Part(part string) (uint64, bool) {
	base := 10
	switch {
	case len(part) > 2 && (part[:2] == "0x" || part[:2] == "0X"):
		base = 16
		part = part[2:]
	case len(part) > 1 && part[0] == '0':
		base = 8
		part = part[1:]
	}

	v, err := strconv.ParseUint(part, base, 32)
	return v, err == nil
}
