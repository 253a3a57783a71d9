// Package privacy reduces personal data that would otherwise leak into
// operational logs. The GDPR audit trail keeps the raw values; logs do not.
package privacy

import "net/netip"

// AnonymizeIP masks an address to its network: IPv4 to /24, IPv6 to /48.
// Returns "unknown" for empty input and "invalid" for anything unparseable.
//
//	AnonymizeIP("192.168.1.47")            // "192.168.1.0"
//	AnonymizeIP("2001:db8:85a3::8a2e:370") // "2001:db8:85a3::"
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
