// Package netaddr holds the capture interface's local IPv4 addresses.
package netaddr

import (
	"encoding/binary"
	"fmt"
	"net"
)

const maxAddrs = 64

// AddressSet is an ordered, fixed-capacity set of local IPv4 addresses
// used to decide packet direction. It is frozen after construction and
// may be shared across goroutines by reference without locking.
type AddressSet struct {
	addrs [maxAddrs]uint32
	n     int
}

// New enumerates the named interface's assigned IPv4 addresses. If name
// is empty, the first up, non-loopback interface with at least one IPv4
// address is used.
func New(name string) (*AddressSet, error) {
	ifaces, err := candidateInterfaces(name)
	if err != nil {
		return nil, err
	}

	as := &AddressSet{}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ip := ipv4Of(a)
			if ip == nil {
				continue
			}
			as.add(binary.BigEndian.Uint32(ip))
		}
		if as.n > 0 {
			break
		}
	}
	if as.n == 0 {
		return nil, fmt.Errorf("netaddr: no IPv4 addresses found for interface %q", name)
	}
	as.promotePrivateRange()
	return as, nil
}

// NewFromIPs builds an address set from already-known IPv4 addresses,
// given as numeric values with the first octet in the high byte, with
// the same dedupe, capacity and private-range promotion as New.
func NewFromIPs(ips ...uint32) *AddressSet {
	as := &AddressSet{}
	for _, ip := range ips {
		as.add(ip)
	}
	as.promotePrivateRange()
	return as
}

func candidateInterfaces(name string) ([]net.Interface, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return nil, fmt.Errorf("netaddr: interface %q: %w", name, err)
		}
		return []net.Interface{*iface}, nil
	}
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("netaddr: enumerate interfaces: %w", err)
	}
	var up []net.Interface
	for _, iface := range all {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 {
			up = append(up, iface)
		}
	}
	return up, nil
}

func ipv4Of(a net.Addr) net.IP {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		return nil
	}
	return ip.To4()
}

func (as *AddressSet) add(ip uint32) {
	if as.n >= maxAddrs {
		return
	}
	for i := 0; i < as.n; i++ {
		if as.addrs[i] == ip {
			return
		}
	}
	as.addrs[as.n] = ip
	as.n++
}

// promotePrivateRange moves the first address whose high byte is 192
// (the common 192.168.0.0/16 private range) to index 0, since it is the
// address most likely to appear in captured traffic and Contains checks
// index 0 first.
func (as *AddressSet) promotePrivateRange() {
	for i := 1; i < as.n; i++ {
		if as.addrs[i]>>24 == 192 {
			as.addrs[0], as.addrs[i] = as.addrs[i], as.addrs[0]
			return
		}
	}
}

// Contains reports whether ip is one of this host's local addresses.
func (as *AddressSet) Contains(ip uint32) bool {
	for i := 0; i < as.n; i++ {
		if as.addrs[i] == ip {
			return true
		}
	}
	return false
}
