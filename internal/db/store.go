package db

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteParams = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

// DriverFor picks the driver from a DATABASE_URL style DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects to dsn and verifies the connection. SQLite connections get
// foreign keys, WAL and a busy timeout through DSN parameters so every pooled
// connection carries them.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = DriverFor(dsn)
	}
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}
	if driver == DriverSQLite && strings.Contains(dsn, "memory") {
		// each connection to an in-memory database is its own database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}
	return conn, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + sqliteParams
}

// Store implements every store interface of the services package on top of
// sqlx. Queries are built with go-sqlbuilder in the flavor of the driver.
type Store struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
}

var (
	_ services.AssessmentStore  = (*Store)(nil)
	_ services.ParticipantStore = (*Store)(nil)
	_ services.InvitationStore  = (*Store)(nil)
	_ services.ResponseStore    = (*Store)(nil)
	_ services.IdentityStore    = (*Store)(nil)
	_ services.TemplateStore    = (*Store)(nil)
	_ services.ExportStore      = (*Store)(nil)
	_ services.AnalyticsStore   = (*Store)(nil)
	_ services.AuditStore       = (*Store)(nil)
)

func NewStore(db *sqlx.DB) *Store {
	flavor := sqlbuilder.SQLite
	if db.DriverName() == DriverPostgres {
		flavor = sqlbuilder.PostgreSQL
	}
	return &Store{db: db, flavor: flavor}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txKey struct{}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// InTx runs fn in a transaction carried by the context handed to fn. Nested
// calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "err", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}

// get scans one row into dest and reports false when there is none.
func (s *Store) get(ctx context.Context, dest any, b sqlbuilder.Builder) (bool, error) {
	query, args := b.BuildWithFlavor(s.flavor)
	if err := s.conn(ctx).GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) selectAll(ctx context.Context, dest any, b sqlbuilder.Builder) error {
	query, args := b.BuildWithFlavor(s.flavor)
	return s.conn(ctx).SelectContext(ctx, dest, query, args...)
}

func (s *Store) exec(ctx context.Context, b sqlbuilder.Builder) (int64, error) {
	query, args := b.BuildWithFlavor(s.flavor)
	res, err := s.conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs ib with RETURNING id, which both SQLite (3.35+) and Postgres
// understand.
func (s *Store) insert(ctx context.Context, ib *sqlbuilder.InsertBuilder) (int64, error) {
	ib.SQL("RETURNING id")
	query, args := ib.BuildWithFlavor(s.flavor)
	var id int64
	if err := s.conn(ctx).GetContext(ctx, &id, query, args...); err != nil {
		return 0, err
	}
	return id, nil
}

// rawGet and rawSelect run hand-written SQL with ? placeholders rebound for
// the driver.
func (s *Store) rawGet(ctx context.Context, dest any, query string, args ...any) error {
	q := s.conn(ctx)
	return q.GetContext(ctx, dest, q.Rebind(query), args...)
}

func (s *Store) rawSelect(ctx context.Context, dest any, query string, args ...any) error {
	q := s.conn(ctx)
	return q.SelectContext(ctx, dest, q.Rebind(query), args...)
}

func (s *Store) rawExec(ctx context.Context, query string, args ...any) (int64, error) {
	q := s.conn(ctx)
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func int64Args(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
