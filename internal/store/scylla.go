package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"github.com/d60-Lab/columnfeed/pkg/logger"
)

// Scylla executes the catalog against a ScyllaDB/Cassandra cluster via
// gocql. Structured columns (files, poll, reactions, ...) are stored as JSON
// text; the decoders transparently accept that encoding.
type Scylla struct {
	session *gocql.Session
}

// ScyllaConfig mirrors the cluster settings the feed layer needs.
type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	LocalDC     string
	Timeout     time.Duration
	Consistency gocql.Consistency
}

func NewScylla(cfg ScyllaConfig) (*Scylla, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = cfg.Consistency
	if cluster.Consistency == 0 {
		cluster.Consistency = gocql.LocalQuorum
	}
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
	}
	if cfg.LocalDC != "" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(
			gocql.DCAwareRoundRobinPolicy(cfg.LocalDC),
		)
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect scylla: %w", err)
	}
	return &Scylla{session: session}, nil
}

// Migrate creates the tables and materialized views the catalog expects.
func (s *Scylla) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("migrate %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func (s *Scylla) Select(ctx context.Context, q SelectQuery, key Row) ([]Row, error) {
	stmt, params := selectStmt(q, key, nil)
	return s.fetch(ctx, stmt, params)
}

func (s *Scylla) SelectPage(ctx context.Context, q SelectQuery, w Window, key Row) ([]Row, error) {
	stmt, params := selectStmt(q, key, &w)
	return s.fetch(ctx, stmt, params)
}

func (s *Scylla) fetch(ctx context.Context, stmt string, params []any) ([]Row, error) {
	iter := s.session.Query(stmt, params...).WithContext(ctx).Iter()
	var rows []Row
	m := make(map[string]any)
	for iter.MapScan(m) {
		rows = append(rows, Row(m))
		m = make(map[string]any)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return rows, nil
}

func (s *Scylla) Insert(ctx context.Context, q InsertQuery, row Row) error {
	cols := make([]string, 0, len(q.Columns))
	marks := make([]string, 0, len(q.Columns))
	params := make([]any, 0, len(q.Columns))
	for _, col := range q.Columns {
		v, ok := row[col]
		if !ok {
			continue
		}
		cols = append(cols, quote(col))
		marks = append(marks, "?")
		params = append(params, wireValue(col, v))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		q.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if err := s.session.Query(stmt, params...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert %s: %w", q.Table, err)
	}
	return nil
}

func (s *Scylla) UpdateIfExists(ctx context.Context, q UpdateQuery, set Row, key Row) (bool, error) {
	assigns := make([]string, 0, len(q.Set))
	params := make([]any, 0, len(q.Set)+len(q.Keys))
	for _, col := range q.Set {
		assigns = append(assigns, quote(col)+" = ?")
		params = append(params, wireValue(col, set[col]))
	}
	conds := make([]string, 0, len(q.Keys))
	for _, col := range q.Keys {
		conds = append(conds, quote(col)+" = ?")
		params = append(params, wireValue(col, key[col]))
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s IF EXISTS",
		q.Table, strings.Join(assigns, ", "), strings.Join(conds, " AND "))

	applied, err := s.session.Query(stmt, params...).WithContext(ctx).MapScanCAS(make(map[string]any))
	if err != nil {
		return false, fmt.Errorf("update %s: %w", q.Table, err)
	}
	return applied, nil
}

func (s *Scylla) Delete(ctx context.Context, q DeleteQuery, key Row) error {
	conds := make([]string, 0, len(q.Keys))
	params := make([]any, 0, len(q.Keys))
	for _, col := range q.Keys {
		conds = append(conds, quote(col)+" = ?")
		params = append(params, wireValue(col, key[col]))
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", q.Table, strings.Join(conds, " AND "))
	if err := s.session.Query(stmt, params...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return nil
}

func (s *Scylla) Close() error {
	s.session.Close()
	return nil
}

func selectStmt(q SelectQuery, key Row, w *Window) (string, []any) {
	conds := make([]string, 0, len(q.Keys)+3)
	params := make([]any, 0, len(q.Keys)+3)
	for _, col := range q.Keys {
		conds = append(conds, quote(col)+" = ?")
		params = append(params, wireValue(col, key[col]))
	}
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s", q.Table, strings.Join(conds, " AND "))
	if w != nil {
		stmt += ` AND "createdAt" < ?`
		params = append(params, w.Until)
		if !w.Since.IsZero() {
			stmt += ` AND "createdAt" > ?`
			params = append(params, w.Since)
		}
		stmt += " LIMIT ?"
		params = append(params, w.Limit)
	}
	return stmt, params
}

// wireValue passes primitives through and encodes structured values
// (attachment lists, polls, reaction maps, edit histories) as JSON text.
func wireValue(col string, v any) any {
	switch v.(type) {
	case nil:
		return nil
	case string, int, int32, int64, bool, time.Time:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("encode column", zap.String("column", col), zap.Error(err))
		return ""
	}
	return string(b)
}

func quote(col string) string { return `"` + col + `"` }

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
