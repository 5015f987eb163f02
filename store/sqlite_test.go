package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ftahirops/ntmond/model"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traffic.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDepositAndFetchSince(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	err := s.Deposit(now, map[string]model.TrafficCell{
		"curl": {BytesRx: 100, BytesTx: 50, PktRx: 2, PktTx: 1},
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	got, err := s.FetchSince(now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	cell, ok := got["curl"]
	if !ok {
		t.Fatal("expected curl to be present in FetchSince result")
	}
	if cell.BytesRx != 100 || cell.BytesTx != 50 {
		t.Errorf("unexpected cell: %+v", cell)
	}
}

func TestFetchBetweenStartAfterEndReturnsEmpty(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()
	s.Deposit(now, map[string]model.TrafficCell{"curl": {BytesRx: 1, PktRx: 1}})

	got, err := s.FetchBetween(now, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FetchBetween: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty result for start > end, got %+v", got)
	}
}

func TestDepositSkipsEmptyCells(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	if err := s.Deposit(now, map[string]model.TrafficCell{"idle": {}}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	apps, err := s.ListApps()
	if err != nil {
		t.Fatalf("ListApps: %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("expected an empty cell to be skipped, got apps=%v", apps)
	}
}

func TestSanitizeAppNameRejectsSemicolon(t *testing.T) {
	if _, err := sanitizeAppName("evil;name"); err == nil {
		t.Error("expected an app name containing a semicolon to be rejected")
	}
}
