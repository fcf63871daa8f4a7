package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/negotiate/core"
	"github.com/hupe1980/negotiate/logging"
)

// Options configures a Store.
type Options struct {
	// Dialect selects driver and SQL flavour. Defaults to SQLite.
	Dialect Dialect

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Store is a durable NegotiationStore backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  logging.Logger
	owned   bool
}

var (
	_ core.NegotiationStore = (*Store)(nil)
	_ core.DueLister        = (*Store)(nil)
)

// Open connects to dsn with the configured dialect's driver and applies
// pending migrations.
//
//	st, err := sqlstore.Open(ctx, "file:negotiations.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
//	st, err := sqlstore.Open(ctx, "user:pwd@tcp(db:3306)/negotiate", func(o *sqlstore.Options) {
//	    o.Dialect = sqlstore.DialectMySQL
//	})
func Open(ctx context.Context, dsn string, optFns ...func(o *Options)) (*Store, error) {
	opts := options(optFns)
	db, err := sql.Open(opts.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Dialect, err)
	}
	if opts.Dialect == DialectSQLite {
		// one writer at a time; also keeps ":memory:" databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Dialect, err)
	}

	s, err := New(ctx, db, func(o *Options) { *o = opts })
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing handle and applies pending migrations. The caller
// keeps ownership of db.
func New(ctx context.Context, db *sql.DB, optFns ...func(o *Options)) (*Store, error) {
	opts := options(optFns)
	s := &Store{db: db, dialect: opts.Dialect, logger: opts.Logger}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func options(optFns []func(o *Options)) Options {
	opts := Options{Dialect: DialectSQLite, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}

// Close releases the connection pool when the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Get loads a negotiation by id.
func (s *Store) Get(ctx context.Context, negotiationID string) (*core.Negotiation, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT body FROM negotiations WHERE id = ?`), negotiationID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, negotiationID)
	}
	if err != nil {
		return nil, fmt.Errorf("query negotiation %s: %w", negotiationID, err)
	}

	var n core.Negotiation
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		return nil, fmt.Errorf("decode negotiation %s: %w", negotiationID, err)
	}
	return &n, nil
}

// Put inserts a Version 1 record or replaces the stored record when n.Version
// is exactly one ahead of it.
func (s *Store) Put(ctx context.Context, n *core.Negotiation) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: negotiation id required", core.ErrInvalidArgument)
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode negotiation %s: %w", n.ID, err)
	}
	var activePair any
	if n.IsActive() {
		activePair = core.PairKey(n.SubjectID, n.CounterpartyID)
	}

	if n.Version == 1 {
		return s.insert(ctx, n, activePair, string(body))
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		UPDATE negotiations
		SET status = ?, active_pair = ?, version = ?, timeout_at = ?, updated_at = ?, body = ?
		WHERE id = ? AND version = ?`),
		string(n.Status), activePair, n.Version, n.TimeoutAt.UnixMilli(), n.UpdatedAt.UnixMilli(), string(body),
		n.ID, n.Version-1,
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("%w: pair %s already has an active negotiation", core.ErrDuplicateNegotiation, activePair)
		}
		return fmt.Errorf("update negotiation %s: %w", n.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update negotiation %s: %w", n.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s is not at version %d", core.ErrConflict, n.ID, n.Version-1)
	}
	return nil
}

func (s *Store) insert(ctx context.Context, n *core.Negotiation, activePair any, body string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO negotiations (id, subject_id, counterparty_id, status, active_pair, version, timeout_at, updated_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		n.ID, n.SubjectID, n.CounterpartyID, string(n.Status), activePair, n.Version,
		n.TimeoutAt.UnixMilli(), n.UpdatedAt.UnixMilli(), body,
	)
	if err == nil {
		return nil
	}
	if !s.dialect.isUniqueViolation(err) {
		return fmt.Errorf("insert negotiation %s: %w", n.ID, err)
	}

	var count int
	if qerr := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM negotiations WHERE id = ?`), n.ID).Scan(&count); qerr != nil {
		return fmt.Errorf("insert negotiation %s: %w", n.ID, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s already exists", core.ErrConflict, n.ID)
	}
	return fmt.Errorf("%w: %s already negotiating with %s", core.ErrDuplicateNegotiation, n.SubjectID, n.CounterpartyID)
}

// ExistsActiveFor reports whether the pair has a non-terminal negotiation.
func (s *Store) ExistsActiveFor(ctx context.Context, subjectID, counterpartyID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM negotiations WHERE active_pair = ?`),
		core.PairKey(subjectID, counterpartyID)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query active negotiation: %w", err)
	}
	return count > 0, nil
}

// ListDue returns up to limit ids of non-terminal negotiations whose deadline
// lies before now, ordered by deadline and then id. A limit of zero or less
// returns all of them.
func (s *Store) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM negotiations WHERE active_pair IS NOT NULL AND timeout_at < ? ORDER BY timeout_at, id`
	args := []any{now.UnixMilli()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list due negotiations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan negotiation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
