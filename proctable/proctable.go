// Package proctable maps socket inodes to owning processes by walking
// the kernel process directory, with an LRU of recently-productive
// pids to avoid rescanning /proc on every new connection.
package proctable

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ftahirops/ntmond/model"
)

// NegativeCacheInterval is how often the unfindable set is cleared.
const NegativeCacheInterval = 60 * time.Second

// DefaultCacheSize is the default LRU capacity (config's
// process_cache_size default).
const DefaultCacheSize = 5

// Table resolves socket inodes to owning processes.
type Table struct {
	mu      sync.Mutex
	byInode map[uint64]model.Process

	recentPids *lru.Cache[int32, struct{}]

	negMu      sync.Mutex
	unfindable map[uint64]struct{}

	// scanCap bounds the number of candidate pids examined in the
	// sorted full scan; 0 means unbounded (default).
	scanCap int

	logger *log.Logger
}

// New builds a process table. cacheSize 0 disables the LRU entirely
// (every miss falls through to a full scan with nothing cached).
func New(cacheSize, scanCap int, logger *log.Logger) *Table {
	t := &Table{
		byInode:    make(map[uint64]model.Process),
		unfindable: make(map[uint64]struct{}),
		scanCap:    scanCap,
		logger:     logger,
	}
	if cacheSize > 0 {
		c, err := lru.New[int32, struct{}](cacheSize)
		if err == nil {
			t.recentPids = c
		}
	}
	return t
}

// Refresh performs a full, untargeted enumeration of /proc, populating
// byInode. Intended for startup only.
func (t *Table) Refresh() error {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return fmt.Errorf("proctable: read /proc: %w", err)
	}
	for _, e := range entries {
		pid, ok := pidOf(e)
		if !ok {
			continue
		}
		t.scanPidFDs(pid, 0)
	}
	return nil
}

// Resolve maps a socket inode to its owning process.
func (t *Table) Resolve(inode uint64) (model.Process, bool) {
	t.negMu.Lock()
	_, isUnfindable := t.unfindable[inode]
	t.negMu.Unlock()
	if isUnfindable {
		return model.Process{}, false
	}

	t.mu.Lock()
	p, ok := t.byInode[inode]
	t.mu.Unlock()
	if ok {
		return p, true
	}

	p, found := t.search(inode)
	if !found {
		t.negMu.Lock()
		t.unfindable[inode] = struct{}{}
		t.negMu.Unlock()
		return model.Process{}, false
	}
	if t.recentPids != nil {
		t.recentPids.Add(p.PID, struct{}{})
	}
	return p, true
}

// search implements the cached-pid pass followed by a newest-first
// sorted scan of every process directory.
func (t *Table) search(inode uint64) (model.Process, bool) {
	if t.recentPids != nil {
		var stale []int32
		for _, pid := range mostRecentFirst(t.recentPids.Keys()) {
			if !pidAlive(pid) {
				stale = append(stale, pid)
				continue
			}
			if p, ok := t.scanPidFDs(pid, inode); ok {
				return p, true
			}
		}
		for _, pid := range stale {
			t.recentPids.Remove(pid)
		}
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return model.Process{}, false
	}

	type candidate struct {
		pid int32
	}
	var candidates []candidate
	for _, e := range entries {
		pid, ok := pidOf(e)
		if !ok {
			continue
		}
		if t.recentPids != nil {
			if _, cached := t.recentPids.Peek(pid); cached {
				continue
			}
		}
		candidates = append(candidates, candidate{pid})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].pid > candidates[j].pid })

	scanned := 0
	for _, c := range candidates {
		if t.scanCap > 0 && scanned >= t.scanCap {
			break
		}
		scanned++
		if p, ok := t.scanPidFDs(c.pid, inode); ok {
			return p, true
		}
	}
	return model.Process{}, false
}

// scanPidFDs enumerates one process's fd/ directory, recording every
// socket inode it owns into byInode. If target is non-zero and found
// among this pid's sockets, the owning process is returned.
func (t *Table) scanPidFDs(pid int32, target uint64) (model.Process, bool) {
	fdDir := fmt.Sprintf("/proc/%d/fd", pid)
	links, err := os.ReadDir(fdDir)
	if err != nil {
		// Process vanished mid-scan: race with exit, silently skip.
		return model.Process{}, false
	}

	var comm string
	var proc model.Process
	var found bool

	for _, l := range links {
		dest, err := os.Readlink(fdDir + "/" + l.Name())
		if err != nil {
			continue
		}
		inode, ok := parseSocketLink(dest)
		if !ok {
			continue
		}
		if comm == "" {
			comm = readComm(pid)
			if comm == "" {
				return model.Process{}, false
			}
			proc = model.Process{PID: pid, Name: comm}
		}
		t.mu.Lock()
		t.byInode[inode] = proc
		t.mu.Unlock()
		if target != 0 && inode == target {
			found = true
		}
	}
	return proc, found
}

func parseSocketLink(dest string) (uint64, bool) {
	const prefix = "socket:["
	if !strings.HasPrefix(dest, prefix) || !strings.HasSuffix(dest, "]") {
		return 0, false
	}
	n, err := strconv.ParseUint(dest[len(prefix):len(dest)-1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func readComm(pid int32) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func pidOf(e os.DirEntry) (int32, bool) {
	if !e.IsDir() {
		return 0, false
	}
	n, err := strconv.Atoi(e.Name())
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
}

func pidAlive(pid int32) bool {
	_, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	return err == nil
}

// mostRecentFirst reverses the LRU's Keys(), which hashicorp/golang-lru
// returns oldest-to-newest, so the cached-pid pass scans the
// most-recently-productive pid first.
func mostRecentFirst(keys []int32) []int32 {
	reversed := make([]int32, len(keys))
	for i, k := range keys {
		reversed[len(keys)-1-i] = k
	}
	return reversed
}

// ClearNegativeCache empties the unfindable set. Intended to be called
// from a 60-second housekeeping ticker.
func (t *Table) ClearNegativeCache() {
	t.negMu.Lock()
	t.unfindable = make(map[uint64]struct{})
	t.negMu.Unlock()
}
