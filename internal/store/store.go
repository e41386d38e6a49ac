// Package store is the wide-column access layer: a catalog of
// per-access-pattern tables and query shapes, generic rows, codecs between
// rows and domain entities, and two Store implementations (ScyllaDB via
// gocql, and an in-memory store used in tests and for embedded runs).
//
// The store executes no joins and no predicates beyond partition/clustering
// keys; everything else happens in the application layer (internal/feed).
package store

import (
	"context"
	"time"
)

// Row is a generic wide-column row. Values are either Go-typed (in-memory
// store) or primitive/JSON-text encoded (gocql store); the decoders accept
// both.
type Row map[string]any

// Window bounds a page read on the createdAt clustering column.
// Since is ignored when zero.
type Window struct {
	Until time.Time
	Since time.Time
	Limit int
}

// Store is the capability interface over the wide-column store, selected
// once at startup. All methods are safe for concurrent use.
type Store interface {
	// Select returns rows of q's table matching key, newest first.
	Select(ctx context.Context, q SelectQuery, key Row) ([]Row, error)
	// SelectPage returns at most w.Limit rows matching key with
	// Since < createdAt < Until, newest first.
	SelectPage(ctx context.Context, q SelectQuery, w Window, key Row) ([]Row, error)
	// Insert writes row; an existing row with the same primary key is
	// overwritten (wide-column upsert semantics).
	Insert(ctx context.Context, q InsertQuery, row Row) error
	// UpdateIfExists applies set to rows matching key only if such rows
	// currently exist, and reports whether the write was applied. This is
	// the conditional write that prevents resurrecting deleted copies.
	UpdateIfExists(ctx context.Context, q UpdateQuery, set Row, key Row) (bool, error)
	// Delete removes rows matching key.
	Delete(ctx context.Context, q DeleteQuery, key Row) error
	Close() error
}

// DayBucket truncates t to its UTC calendar day, the partition key of all
// date-bucketed tables.
func DayBucket(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// EndOfPreviousDay returns 23:59:59.999 UTC of the day before t's bucket,
// the cursor position after a partition is exhausted.
func EndOfPreviousDay(t time.Time) time.Time {
	return DayBucket(t).Add(-time.Millisecond)
}
