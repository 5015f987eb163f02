package accumulator

import (
	"fmt"
	"testing"
	"time"

	"github.com/ftahirops/ntmond/model"
)

type fakeStore struct {
	deposits []map[string]model.TrafficCell
	failNext bool
}

func (f *fakeStore) Deposit(ts time.Time, traffic map[string]model.TrafficCell) error {
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("simulated store failure")
	}
	f.deposits = append(f.deposits, traffic)
	return nil
}

func TestAddAndSnapshot(t *testing.T) {
	a := New(&fakeStore{}, time.Hour, false, nil)
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 100, Direction: model.DirOut})
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 50, Direction: model.DirIn})

	snap, _ := a.Snapshot()
	cell := snap["curl"]
	if cell.BytesTx != 100 || cell.BytesRx != 50 {
		t.Errorf("unexpected cell: %+v", cell)
	}
}

func TestDepositClearsOnSuccess(t *testing.T) {
	store := &fakeStore{}
	a := New(store, time.Hour, false, nil)
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 10, Direction: model.DirOut})

	a.deposit(time.Now())

	snap, _ := a.Snapshot()
	if len(snap) != 0 {
		t.Errorf("expected traffic map cleared after a successful deposit, got %+v", snap)
	}
	if len(store.deposits) != 1 {
		t.Fatalf("expected exactly one deposit, got %d", len(store.deposits))
	}
}

func TestDepositRetainsOnFailureWhenRetryEnabled(t *testing.T) {
	store := &fakeStore{failNext: true}
	a := New(store, time.Hour, true, nil)
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 10, Direction: model.DirOut})

	a.deposit(time.Now())

	snap, _ := a.Snapshot()
	if snap["curl"].BytesTx != 10 {
		t.Errorf("expected traffic retained after a failed deposit with retry enabled, got %+v", snap)
	}
}

func TestDepositDropsOnFailureWhenRetryDisabled(t *testing.T) {
	store := &fakeStore{failNext: true}
	a := New(store, time.Hour, false, nil)
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 10, Direction: model.DirOut})

	a.deposit(time.Now())

	snap, _ := a.Snapshot()
	if len(snap) != 0 {
		t.Errorf("expected traffic dropped after a failed deposit with retry disabled, got %+v", snap)
	}
}

func TestAwaitSnapshotOrderingAndSingleObserver(t *testing.T) {
	store := &fakeStore{}
	a := New(store, time.Hour, false, nil)
	a.Add(model.Process{Name: "curl"}, model.Packet{Length: 10, Direction: model.DirOut})

	result := make(chan map[string]model.TrafficCell, 1)
	go func() {
		traffic, _, ok := a.AwaitSnapshot()
		if !ok {
			result <- nil
			return
		}
		result <- traffic
	}()

	// Give the goroutine a moment to register as the observer before
	// depositing, so this exercises the real hand-off path rather than
	// a race between registration and deposit.
	time.Sleep(10 * time.Millisecond)

	// A second concurrent observer must be rejected immediately.
	if _, _, ok := a.AwaitSnapshot(); ok {
		t.Error("expected a second concurrent AwaitSnapshot to be rejected")
	}

	a.deposit(time.Now())

	select {
	case traffic := <-result:
		if traffic["curl"].BytesTx != 10 {
			t.Errorf("observer saw wrong snapshot: %+v", traffic)
		}
	case <-time.After(time.Second):
		t.Fatal("AwaitSnapshot never returned after a deposit")
	}
}

func TestCancelAwaitWakesBlockedObserver(t *testing.T) {
	a := New(&fakeStore{}, time.Hour, false, nil)

	done := make(chan bool, 1)
	go func() {
		_, _, ok := a.AwaitSnapshot()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	a.CancelAwait()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected a cancelled AwaitSnapshot to return ok=false")
		}
	case <-time.After(time.Second):
		t.Fatal("CancelAwait did not wake the blocked observer")
	}
}
