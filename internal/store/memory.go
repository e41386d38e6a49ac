package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// Memory is an in-process Store. Projection tables are computed views over
// their base table, so writes to "note" are immediately visible through
// note_by_id, local_timeline, and the rest — the same contract the CQL
// backend gets from its materialized views.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Row
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

// view maps a projection table to its base table plus an optional row
// predicate (the view's WHERE clause).
type view struct {
	base  string
	match func(Row) bool
}

func isPublicNonChannel(r Row) bool {
	return asString(r, "visibility") == string(model.VisibilityPublic) && asString(r, "channelId") == ""
}

var views = map[string]view{
	"note_by_id":                    {base: "note"},
	"note_by_user_id":               {base: "note"},
	"note_by_renote_id":             {base: "note"},
	"note_by_renote_id_and_user_id": {base: "note"},
	"note_by_channel_id":            {base: "note"},
	"local_timeline": {base: "note", match: func(r Row) bool {
		return isPublicNonChannel(r) && asString(r, "userHost") == ""
	}},
	"global_timeline": {base: "note", match: isPublicNonChannel},
	"score_feed": {base: "note", match: func(r Row) bool {
		return isPublicNonChannel(r) && asInt(r, "score") > 0
	}},
	"home_timeline_by_id": {base: "home_timeline"},
	"reaction_by_user_id": {base: "reaction"},
}

// primaryKeys drives upsert deduplication per base table.
var primaryKeys = map[string][]string{
	"note":          {"id"},
	"home_timeline": {"feedUserId", "id"},
	"reaction":      {"noteId", "userId"},
	"poll_vote":     {"noteId", "userId"},
	"notification":  {"id"},
}

func resolve(table string) view {
	if v, ok := views[table]; ok {
		return v
	}
	return view{base: table}
}

func (m *Memory) Select(ctx context.Context, q SelectQuery, key Row) ([]Row, error) {
	return m.scan(q, key, nil)
}

func (m *Memory) SelectPage(ctx context.Context, q SelectQuery, w Window, key Row) ([]Row, error) {
	return m.scan(q, key, &w)
}

func (m *Memory) scan(q SelectQuery, key Row, w *Window) ([]Row, error) {
	v := resolve(q.Table)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Row
	for _, row := range m.tables[v.base] {
		if v.match != nil && !v.match(row) {
			continue
		}
		if !rowMatches(row, key) {
			continue
		}
		if w != nil {
			at := asTime(row, "createdAt")
			if !at.Before(w.Until) {
				continue
			}
			if !w.Since.IsZero() && !at.After(w.Since) {
				continue
			}
		}
		out = append(out, maps.Clone(row))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return asTime(out[i], "createdAt").After(asTime(out[j], "createdAt"))
	})
	if w != nil && w.Limit > 0 && len(out) > w.Limit {
		out = out[:w.Limit]
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, q InsertQuery, row Row) error {
	stored := make(Row, len(q.Columns))
	for _, col := range q.Columns {
		if v, ok := row[col]; ok {
			stored[col] = v
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pk := primaryKeys[q.Table]
	rows := m.tables[q.Table]
	for i, existing := range rows {
		if sameKey(existing, stored, pk) {
			rows[i] = stored
			return nil
		}
	}
	m.tables[q.Table] = append(rows, stored)
	return nil
}

func (m *Memory) UpdateIfExists(ctx context.Context, q UpdateQuery, set Row, key Row) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	applied := false
	for _, row := range m.tables[q.Table] {
		if !rowMatches(row, key) {
			continue
		}
		for _, col := range q.Set {
			if v, ok := set[col]; ok {
				row[col] = v
			}
		}
		applied = true
	}
	return applied, nil
}

func (m *Memory) Delete(ctx context.Context, q DeleteQuery, key Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.tables[q.Table]
	kept := rows[:0]
	for _, row := range rows {
		if !rowMatches(row, key) {
			kept = append(kept, row)
		}
	}
	m.tables[q.Table] = kept
	return nil
}

func (m *Memory) Close() error { return nil }

func rowMatches(row, key Row) bool {
	for col, want := range key {
		if !valueEqual(row[col], want) {
			return false
		}
	}
	return true
}

func sameKey(a, b Row, cols []string) bool {
	for _, col := range cols {
		if !valueEqual(a[col], b[col]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	switch b.(type) {
	case string, int, int32, int64, bool:
		return a == b
	default:
		return false
	}
}
