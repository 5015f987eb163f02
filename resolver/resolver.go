// Package resolver composes the socket and process tables into a
// single packet -> process lookup, falling back to the sentinel
// "Unknown Traffic" process when attribution fails.
package resolver

import (
	"github.com/ftahirops/ntmond/model"
)

// SocketTable maps a packet's flow to a kernel socket inode.
type SocketTable interface {
	Get(pkt model.Packet) uint64
}

// ProcessTable maps a socket inode to its owning process.
type ProcessTable interface {
	Resolve(inode uint64) (model.Process, bool)
}

// Resolver attributes packets to processes.
type Resolver struct {
	Sockets   SocketTable
	Processes ProcessTable
}

// New builds a resolver over the given tables.
func New(sockets SocketTable, processes ProcessTable) *Resolver {
	return &Resolver{Sockets: sockets, Processes: processes}
}

// Resolve returns the process that owns pkt's socket, or the
// UnknownTraffic sentinel if attribution fails at any step.
func (r *Resolver) Resolve(pkt model.Packet) model.Process {
	inode := r.Sockets.Get(pkt)
	if inode == 0 {
		return model.UnknownTraffic
	}
	proc, ok := r.Processes.Resolve(inode)
	if !ok {
		return model.UnknownTraffic
	}
	return proc
}
