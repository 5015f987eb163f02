package resolver

import (
	"testing"

	"github.com/ftahirops/ntmond/model"
)

type fakeSockets struct {
	inode uint64
}

func (f fakeSockets) Get(pkt model.Packet) uint64 { return f.inode }

type fakeProcesses struct {
	proc  model.Process
	found bool
}

func (f fakeProcesses) Resolve(inode uint64) (model.Process, bool) { return f.proc, f.found }

func TestResolveUnknownWhenNoInode(t *testing.T) {
	r := New(fakeSockets{inode: 0}, fakeProcesses{found: true, proc: model.Process{PID: 1, Name: "nginx"}})
	got := r.Resolve(model.Packet{})
	if got != model.UnknownTraffic {
		t.Errorf("expected UnknownTraffic when socket lookup misses, got %+v", got)
	}
}

func TestResolveUnknownWhenProcessMissing(t *testing.T) {
	r := New(fakeSockets{inode: 42}, fakeProcesses{found: false})
	got := r.Resolve(model.Packet{})
	if got != model.UnknownTraffic {
		t.Errorf("expected UnknownTraffic when process lookup misses, got %+v", got)
	}
}

func TestResolveFound(t *testing.T) {
	want := model.Process{PID: 7, Name: "curl"}
	r := New(fakeSockets{inode: 42}, fakeProcesses{found: true, proc: want})
	got := r.Resolve(model.Packet{})
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
}
