// Package store persists per-application traffic counters and answers
// historical aggregate queries.
package store

import (
	"time"

	"github.com/ftahirops/ntmond/model"
)

// Store is the external contract the query server and accumulator rely
// on. Implementations must serialize concurrent access themselves (one
// mutex, or a connection per caller).
type Store interface {
	// Deposit writes one row per application for this tick. All rows
	// for one deposit succeed or none do.
	Deposit(ts time.Time, traffic map[string]model.TrafficCell) error

	// FetchSince sums rows with ts >= since, per application. Cells
	// that would be empty are omitted from the result.
	FetchSince(since time.Time) (map[string]model.TrafficCell, error)

	// FetchBetween sums rows with start <= ts <= end. Returns an empty
	// map, not an error, when start > end.
	FetchBetween(start, end time.Time) (map[string]model.TrafficCell, error)

	// ListApps returns every application name ever deposited.
	ListApps() ([]string, error)

	Close() error
}
