package socketio

import (
	"net"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// ConnectionLimiter caps concurrent remote controllers. Loopback clients are
// never counted. When a new remote client goes over the cap, the oldest
// remote client is evicted. A cap of zero or less disables the limit.
type ConnectionLimiter struct {
	mu       sync.Mutex
	max      int
	external []string          // oldest first
	hosts    map[string]string // client ID -> remote host
}

func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		max:   maxExternal,
		hosts: make(map[string]string),
	}
}

// TryAdd registers clientID connecting from addr, which may carry a port.
// It returns the ID of a client that must be disconnected, or "".
func (cl *ConnectionLimiter) TryAdd(clientID, addr string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, ok := cl.hosts[clientID]; ok {
		return true, ""
	}
	host := remoteHost(addr)
	cl.hosts[clientID] = host
	if isLocalIP(host) {
		return true, ""
	}

	cl.external = append(cl.external, clientID)
	if cl.max <= 0 || len(cl.external) <= cl.max {
		return true, ""
	}

	evictedID = cl.external[0]
	cl.external = cl.external[1:]
	delete(cl.hosts, evictedID)
	return true, evictedID
}

// Remove forgets a disconnected client.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, ok := cl.hosts[clientID]; !ok {
		return
	}
	delete(cl.hosts, clientID)
	cl.external = lo.Without(cl.external, clientID)
}

// External returns the number of remote clients currently counted.
func (cl *ConnectionLimiter) External() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.external)
}

// remoteHost strips a port and an IPv4-mapped prefix from a remote address.
func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.TrimPrefix(addr, "::ffff:")
}

func isLocalIP(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
