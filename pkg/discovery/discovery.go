// Package discovery implements the host discovery adapter: consuming an
// explicit host list or an SRV lookup and exposing a
// fixed-capacity ring with round-robin rotation on session failure.
// Grounded in ncld_getsrv's host-list walk in the original client engine;
// net.LookupSRV is stdlib (no third-party SRV-resolution library appears
// anywhere in the retrieval pack, so this one adapter is a deliberate,
// logged stdlib use rather than a dropped dependency).
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Host is one (hostname, port, priority, weight) discovery record.
type Host struct {
	Name     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// Addr returns the "host:port" form used by net.Dial / net.ResolveUDPAddr.
func (h Host) Addr() string {
	return fmt.Sprintf("%s:%d", h.Name, h.Port)
}

// Ring is a fixed-capacity (default 10) rotation of known hosts with one
// active index. Rotation occurs on session failure; the current source
// "compares weights and priorities, maybe later" but does not actually
// implement priority-ordered selection, so this Ring keeps hosts in
// discovery order and rotates round-robin, leaving priority/weight
// available on Host for a future selection policy.
type Ring struct {
	hosts  []Host
	active int
}

// NewRing builds a Ring from hosts, retaining at most capacity entries
// (bound 10 by convention). A capacity of 0 uses the default.
func NewRing(hosts []Host, capacity int) (*Ring, error) {
	if len(hosts) == 0 {
		return nil, errcode.InvalidArgument("discovery produced no hosts")
	}
	if capacity <= 0 {
		capacity = wire.DefaultHostRingCapacity
	}
	if len(hosts) > capacity {
		hosts = hosts[:capacity]
	}
	return &Ring{hosts: append([]Host(nil), hosts...)}, nil
}

// Active returns the currently-selected host.
func (r *Ring) Active() Host {
	return r.hosts[r.active]
}

// Rotate advances to the next host in the ring, wrapping around, and
// returns the newly-active host. Called on session failure.
func (r *Ring) Rotate() Host {
	r.active = (r.active + 1) % len(r.hosts)
	return r.Active()
}

// Len reports the number of hosts retained.
func (r *Ring) Len() int { return len(r.hosts) }

// FromServerList builds a Ring directly from an explicit configuration
// list, bypassing SRV discovery.
func FromServerList(addrs []string, defaultPort uint16, capacity int) (*Ring, error) {
	hosts := make([]Host, 0, len(addrs))
	for _, addr := range addrs {
		host, port, err := splitHostPort(addr, defaultPort)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, Host{Name: host, Port: port})
	}
	return NewRing(hosts, capacity)
}

func splitHostPort(addr string, defaultPort uint16) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort, nil
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return "", 0, errcode.InvalidArgument("invalid port in %q", addr)
	}
	return host, uint16(port), nil
}

// LookupSRV resolves the "_cld._udp" service label on domain via DNS SRV
// and builds a Ring from the (up to capacity) results ordered by priority
// then weight.
func LookupSRV(ctx context.Context, domain string, capacity int) (*Ring, error) {
	_, records, err := net.DefaultResolver.LookupSRV(ctx, "cld", "udp", domain)
	if err != nil {
		return nil, errcode.Resource("SRV lookup for _cld._udp."+domain, err)
	}

	hosts := make([]Host, 0, len(records))
	for _, rec := range records {
		hosts = append(hosts, Host{
			Name:     trimTrailingDot(rec.Target),
			Port:     rec.Port,
			Priority: rec.Priority,
			Weight:   rec.Weight,
		})
	}
	sort.SliceStable(hosts, func(i, j int) bool {
		if hosts[i].Priority != hosts[j].Priority {
			return hosts[i].Priority < hosts[j].Priority
		}
		return hosts[i].Weight > hosts[j].Weight
	})

	return NewRing(hosts, capacity)
}

func trimTrailingDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}
