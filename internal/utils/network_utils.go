package utils

import (
	"net"
	"strings"
)

// Interface is the part of a network interface relay detection looks at.
type Interface struct {
	Name  string
	Up    bool
	Loop  bool
	Addrs []net.IP
}

var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or CGNAT
// and returns true if we should force TURN usage.
func ShouldForceRelay() bool {
	ifaces, err := systemInterfaces()
	if err != nil {
		return false
	}
	return RelayRequired(ifaces)
}

// RelayRequired reports whether any active interface looks like a tunnel or
// carries a carrier-grade NAT address (100.64.0.0/10), where direct peer
// paths rarely work.
func RelayRequired(ifaces []Interface) bool {
	for _, iface := range ifaces {
		if !iface.Up || iface.Loop {
			continue
		}

		name := strings.ToLower(iface.Name)
		for _, marker := range []string{"tun", "tap", "wg", "ppp", "warp"} {
			if strings.Contains(name, marker) {
				return true
			}
		}

		for _, ip := range iface.Addrs {
			if cgnatBlock.Contains(ip) {
				return true
			}
		}
	}
	return false
}

func systemInterfaces() ([]Interface, error) {
	raw, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	out := make([]Interface, 0, len(raw))
	for _, iface := range raw {
		it := Interface{
			Name: iface.Name,
			Up:   iface.Flags&net.FlagUp != 0,
			Loop: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					it.Addrs = append(it.Addrs, v.IP)
				case *net.IPAddr:
					it.Addrs = append(it.Addrs, v.IP)
				}
			}
		}
		out = append(out, it)
	}
	return out, nil
}
