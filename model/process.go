package model

// Process is the owner of a socket: a pid and the kernel-reported short
// command name (/proc/<pid>/comm), truncated to 15 bytes by the kernel
// in practice and treated here as an opaque byte string.
type Process struct {
	PID  int32
	Name string
}

// UnknownTraffic is the sentinel process used when a packet's inode
// cannot be resolved to an owning process, or its socket cannot be
// found at all. It is a package-level value, not a heap object
// allocated per lookup.
var UnknownTraffic = Process{PID: 0, Name: "Unknown Traffic"}
