// Package accumulator holds per-application traffic counters in memory
// and deposits them into a Store on a fixed interval, offering a
// single-slot hand-off so one live observer can see exactly what was
// just deposited.
package accumulator

import (
	"log"
	"sync"
	"time"

	"github.com/ftahirops/ntmond/model"
)

// Store persists one deposit's worth of per-application counters.
type Store interface {
	Deposit(ts time.Time, traffic map[string]model.TrafficCell) error
}

// observer is the single pending hand-off slot: the deposit loop
// writes outMap/outInterval before closing ready, guaranteeing the
// observer only ever sees a fully-formed delta.
type observer struct {
	ready       chan struct{}
	outMap      map[string]model.TrafficCell
	outInterval time.Duration
}

// Accumulator is the in-memory per-application counter map.
type Accumulator struct {
	mu       sync.Mutex
	traffic  map[string]model.TrafficCell
	interval time.Duration
	store    Store
	logger   *log.Logger

	obsMu sync.Mutex
	obs   *observer

	retryFailedDeposits bool

	stop chan struct{}
	done chan struct{}
}

// New builds an accumulator that deposits into store every interval.
func New(store Store, interval time.Duration, retryFailedDeposits bool, logger *log.Logger) *Accumulator {
	return &Accumulator{
		traffic:             make(map[string]model.TrafficCell),
		interval:            interval,
		store:               store,
		logger:              logger,
		retryFailedDeposits: retryFailedDeposits,
		stop:                make(chan struct{}),
		done:                make(chan struct{}),
	}
}

// Add folds one packet's length into the named application's cell.
// The lock is held only for the duration of the map mutation; no I/O
// happens under it.
func (a *Accumulator) Add(p model.Process, pkt model.Packet) {
	a.mu.Lock()
	cell := a.traffic[p.Name]
	cell.Add(uint64(pkt.Length), pkt.Direction)
	a.traffic[p.Name] = cell
	a.mu.Unlock()
}

// Snapshot returns a point-in-time deep copy of the accumulator and its
// configured interval. It never blocks the capture thread beyond the
// time needed to copy the map.
func (a *Accumulator) Snapshot() (map[string]model.TrafficCell, time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneNonEmpty(a.traffic), a.interval
}

// AwaitSnapshot registers the caller as the single live observer and
// blocks until the next deposit releases it, or ready fires because the
// caller was unregistered (e.g. its connection closed). It returns
// false immediately if another observer is already registered.
func (a *Accumulator) AwaitSnapshot() (map[string]model.TrafficCell, time.Duration, bool) {
	a.obsMu.Lock()
	if a.obs != nil {
		a.obsMu.Unlock()
		return nil, 0, false
	}
	ob := &observer{ready: make(chan struct{})}
	a.obs = ob
	a.obsMu.Unlock()

	<-ob.ready
	if ob.outMap == nil {
		return nil, 0, false
	}
	return ob.outMap, ob.outInterval, true
}

// CancelAwait releases a registered observer slot without waiting for a
// deposit, used when the calling connection goes away. A goroutine
// blocked in AwaitSnapshot is woken with ok=false rather than left
// parked forever.
func (a *Accumulator) CancelAwait() {
	a.obsMu.Lock()
	ob := a.obs
	a.obs = nil
	a.obsMu.Unlock()
	if ob != nil {
		close(ob.ready)
	}
}

// Run starts the deposit loop, which sleeps `interval` between ticks,
// writes the accumulated map to the store, hands off to a registered
// observer, then clears the map — all while holding the single
// accumulator mutex, so Add and a deposit never interleave.
func (a *Accumulator) Run() {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			a.deposit(time.Now())
			return
		case now := <-ticker.C:
			a.deposit(now)
		}
	}
}

// Stop requests the deposit loop perform one final deposit and exit.
func (a *Accumulator) Stop() {
	close(a.stop)
	<-a.done
}

func (a *Accumulator) deposit(ts time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := cloneNonEmpty(a.traffic)

	if err := a.store.Deposit(ts, snapshot); err != nil {
		if a.logger != nil {
			a.logger.Printf("accumulator: deposit failed: %v", err)
		}
		if a.retryFailedDeposits {
			// Keep the map so the next tick retries the union of
			// both intervals' counters.
			a.handOff(snapshot)
			return
		}
	}

	a.handOff(snapshot)
	a.traffic = make(map[string]model.TrafficCell)
}

// handOff releases a registered observer with the just-deposited
// snapshot, writing the outputs before signaling so the observer never
// sees a half-formed hand-off.
func (a *Accumulator) handOff(snapshot map[string]model.TrafficCell) {
	a.obsMu.Lock()
	ob := a.obs
	a.obs = nil
	a.obsMu.Unlock()
	if ob == nil {
		return
	}
	ob.outMap = snapshot
	ob.outInterval = a.interval
	close(ob.ready)
}

func cloneNonEmpty(m map[string]model.TrafficCell) map[string]model.TrafficCell {
	out := make(map[string]model.TrafficCell, len(m))
	for k, v := range m {
		if v.Empty() {
			continue
		}
		out[k] = v
	}
	return out
}
