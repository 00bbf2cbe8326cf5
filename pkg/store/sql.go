package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/soundprediction/recall/pkg/types"
	"github.com/soundprediction/recall/pkg/utils"
)

const entityColumns = "id, kind, title, body, metadata, relationship_refs, search_metadata, kind_payload, created_at, updated_at"

// getManyBatchSize keeps IN lists below SQLite's variable limit.
const getManyBatchSize = 500

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// PoolConfig holds connection pool options.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 25
	MaxOpenConns int

	// MaxIdleConns is the maximum number of connections in the idle connection pool.
	// Default: 5
	MaxIdleConns int

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	// Default: 5 minutes
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// NewSQLStore wraps an open database. Call Initialize before use.
func NewSQLStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

// OpenSQLite opens (or creates) an SQLite database at path and creates the
// schema. The path ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	memory := path == ":memory:" || path == ""
	dsn := "file::memory:?_pragma=foreign_keys(ON)"
	if !memory {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}

	s := NewSQLStore(db, DialectSQLite, logger)
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects to PostgreSQL and creates the schema. A nil pool
// config uses DefaultPoolConfig.
func OpenPostgres(ctx context.Context, dsn string, pool *PoolConfig, logger *slog.Logger) (*SQLStore, error) {
	if pool == nil {
		pool = DefaultPoolConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewSQLStore(db, DialectPostgres, logger)
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

// Initialize creates the entities table and its indices.
func (s *SQLStore) Initialize(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entities (
			id VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(64) NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			relationship_refs TEXT,
			search_metadata TEXT,
			kind_payload TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_created_at ON entities(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create entities schema: %w", err)
		}
	}
	return nil
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, e *types.Entity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.ApplyDefaults()

	now := s.now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	row, err := encodeEntity(e)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", s.fail("create", e.ID, err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT 1 FROM entities WHERE id = ?`), e.ID).Scan(&exists)
	if err == nil {
		return "", types.NewValidationError("id", fmt.Sprintf("entity %s already exists", e.ID))
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", s.fail("create", e.ID, err)
	}

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`INSERT INTO entities (`+entityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		row.id, row.kind, row.title, row.body, row.metadata, row.refs, row.searchMeta, row.payload, row.createdAt, row.updatedAt)
	if err != nil {
		return "", s.fail("create", e.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", s.fail("create", e.ID, err)
	}

	s.logger.Debug("Entity persisted", "entity_id", e.ID, "kind", e.Kind)
	return e.ID, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+entityColumns+` FROM entities WHERE id = ?`), id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, s.fail("get", id, err)
	}
	return e, nil
}

// GetMany implements Store.
func (s *SQLStore) GetMany(ctx context.Context, ids []string) ([]*types.Entity, error) {
	if len(ids) == 0 {
		return []*types.Entity{}, nil
	}

	found := make(map[string]*types.Entity, len(ids))
	for _, batch := range utils.Batch(ids, getManyBatchSize) {
		args := make([]interface{}, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := s.dialect.Rebind(`SELECT ` + entityColumns + ` FROM entities WHERE id IN (` + Placeholders(len(batch)) + `)`)
		entities, err := s.query(ctx, query, args...)
		if err != nil {
			return nil, s.fail("get_many", "", err)
		}
		for _, e := range entities {
			found[e.ID] = e
		}
	}

	out := make([]*types.Entity, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, id := range ids {
		if e, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, e *types.Entity) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}
	if e.ID == "" {
		return false, types.NewValidationError("id", "cannot be empty")
	}
	e.ApplyDefaults()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, s.fail("update", e.ID, err)
	}
	defer tx.Rollback()

	var createdAt, updatedAt int64
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT created_at, updated_at FROM entities WHERE id = ?`), e.ID).Scan(&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.fail("update", e.ID, err)
	}

	now := s.now().UTC()
	if now.UnixNano() <= updatedAt {
		now = time.Unix(0, updatedAt+1).UTC()
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	e.UpdatedAt = now

	row, err := encodeEntity(e)
	if err != nil {
		return false, err
	}

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(`UPDATE entities SET kind = ?, title = ?, body = ?, metadata = ?, relationship_refs = ?, search_metadata = ?, kind_payload = ?, updated_at = ? WHERE id = ?`),
		row.kind, row.title, row.body, row.metadata, row.refs, row.searchMeta, row.payload, row.updatedAt, row.id)
	if err != nil {
		return false, s.fail("update", e.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, s.fail("update", e.ID, err)
	}
	return true, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM entities WHERE id = ?`), id)
	if err != nil {
		return false, s.fail("delete", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail("delete", id, err)
	}
	return n > 0, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, opts *ListOptions) ([]*types.Entity, error) {
	if opts == nil {
		opts = &ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var where []string
	var args []interface{}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}
	for _, key := range ListFilterKeys {
		v, ok := opts.Filters[key]
		if !ok || v == nil {
			continue
		}
		field := s.dialect.JSONField("metadata", key)
		values := filterValues(v)
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			where = append(where, field+" = ?")
		} else {
			where = append(where, field+" IN ("+Placeholders(len(values))+")")
		}
		args = append(args, values...)
	}

	query := `SELECT ` + entityColumns + ` FROM entities`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	entities, err := s.query(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, s.fail("list", "", err)
	}
	return entities, nil
}

// SearchByText implements Store. An empty query matches nothing.
func (s *SQLStore) SearchByText(ctx context.Context, query string, opts *TextSearchOptions) ([]*types.Entity, error) {
	tokens := utils.Tokenize(query)
	if len(tokens) == 0 {
		return []*types.Entity{}, nil
	}
	if opts == nil {
		opts = &TextSearchOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = types.DefaultSearchLimit
	}

	where := make([]string, 0, len(tokens)+1)
	args := make([]interface{}, 0, len(tokens)*2+len(opts.Kinds)+1)
	for _, tok := range tokens {
		pattern := "%" + utils.EscapeLike(tok) + "%"
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(body) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(opts.Kinds) > 0 {
		where = append(where, "kind IN ("+Placeholders(len(opts.Kinds))+")")
		for _, k := range opts.Kinds {
			args = append(args, string(k))
		}
	}

	order := "created_at ASC, id ASC"
	if opts.NewestFirst {
		order = "created_at DESC, id ASC"
	}
	q := `SELECT ` + entityColumns + ` FROM entities WHERE ` + strings.Join(where, " AND ") + ` ORDER BY ` + order + ` LIMIT ?`
	args = append(args, limit)

	entities, err := s.query(ctx, s.dialect.Rebind(q), args...)
	if err != nil {
		return nil, s.fail("search", "", err)
	}
	return entities, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return types.NewStorageError("ping", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) query(ctx context.Context, query string, args ...interface{}) ([]*types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*types.Entity{}
	}
	return out, nil
}

func (s *SQLStore) fail(op, id string, err error) error {
	s.logger.Error("Entity store operation failed", "op", op, "entity_id", id, "error", err)
	return types.NewStorageError(op, err)
}

type entityRow struct {
	id, kind, title, body               string
	metadata, refs, searchMeta, payload sql.NullString
	createdAt, updatedAt                int64
}

func encodeEntity(e *types.Entity) (*entityRow, error) {
	metadata, err := encodeMap(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	refs, err := encodeMap(e.RelationshipRefs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relationship refs: %w", err)
	}
	searchMeta, err := encodeMap(e.SearchMetadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search metadata: %w", err)
	}

	var payload sql.NullString
	if e.Payload != nil {
		raw, err := types.EncodePayload(e.Payload)
		if err != nil {
			return nil, err
		}
		payload = sql.NullString{String: string(raw), Valid: true}
	}

	return &entityRow{
		id:         e.ID,
		kind:       string(e.Kind),
		title:      e.Title,
		body:       e.Body,
		metadata:   metadata,
		refs:       refs,
		searchMeta: searchMeta,
		payload:    payload,
		createdAt:  e.CreatedAt.UnixNano(),
		updatedAt:  e.UpdatedAt.UnixNano(),
	}, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(sc scanner) (*types.Entity, error) {
	var r entityRow
	if err := sc.Scan(&r.id, &r.kind, &r.title, &r.body, &r.metadata, &r.refs, &r.searchMeta, &r.payload, &r.createdAt, &r.updatedAt); err != nil {
		return nil, err
	}

	e := &types.Entity{
		ID:        r.id,
		Kind:      types.EntityKind(r.kind),
		Title:     r.title,
		Body:      r.body,
		CreatedAt: time.Unix(0, r.createdAt).UTC(),
		UpdatedAt: time.Unix(0, r.updatedAt).UTC(),
	}

	var err error
	if e.Metadata, err = decodeMap(r.metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata of %s: %w", r.id, err)
	}
	if e.RelationshipRefs, err = decodeMap(r.refs); err != nil {
		return nil, fmt.Errorf("failed to decode relationship refs of %s: %w", r.id, err)
	}
	if e.SearchMetadata, err = decodeMap(r.searchMeta); err != nil {
		return nil, fmt.Errorf("failed to decode search metadata of %s: %w", r.id, err)
	}
	if r.payload.Valid {
		if e.Payload, err = types.DecodePayload(e.Kind, []byte(r.payload.String)); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func encodeMap(m map[string]interface{}) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeMap(s sql.NullString) (map[string]interface{}, error) {
	if !s.Valid || s.String == "" || s.String == "null" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// filterValues flattens a filter value into text arguments.
func filterValues(v interface{}) []interface{} {
	switch val := v.(type) {
	case []string, []interface{}:
		list := types.StringList(val)
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	default:
		return []interface{}{fmt.Sprint(val)}
	}
}
