// Package procfs holds small helpers for reading /proc files, shaped
// after the teacher's util package: plain line/field readers with
// lenient, zero-on-error parsing rather than a full parsing library.
package procfs

import (
	"bufio"
	"encoding/hex"
	"os"
	"strconv"
)

// ReadLines reads a file and returns its lines.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// ParseUint64 parses a decimal string to uint64, returning 0 on error.
func ParseUint64(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}

// ParseHexUint32 parses an 8-hex-digit little-endian IPv4 address field
// (as used in /proc/net/tcp's local/remote address columns) into a
// uint32. Returns 0 on error.
func ParseHexUint32(s string) uint32 {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return 0
	}
	// /proc/net/tcp stores the IPv4 address in the kernel's native
	// byte order, little-endian on the hosts this daemon targets.
	return uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
}

// ParseHexUint16 parses a 4-hex-digit big-endian port field into a
// uint16. Ports are stored network-byte-order (big-endian) regardless
// of host endianness. Returns 0 on error.
func ParseHexUint16(s string) uint16 {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 2 {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}
