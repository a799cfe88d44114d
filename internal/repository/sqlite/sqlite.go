// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no C compiler, no CGo, and the same
// single-file database in development, tests (":memory:") and production.
//
// CONNECTIONS AND TRANSACTIONS:
// The pool is capped at one open connection. SQLite only ever has one writer
// anyway, and a single connection gives us two properties we rely on:
//   - ":memory:" databases are per-connection, so every query sees the same data
//   - write transactions are serialized, which closes check-then-act races
//     between services (together with the unique indexes below)
//
// The flip side: inside WithTx every query MUST go through the transaction's
// Store. Using the outer DB while a transaction is open would wait forever
// for the only connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juju/clock"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/duotrak/internal/apperror"
	"github.com/sakif/duotrak/internal/repository"
)

// compile-time check that *DB implements repository.Store
var _ repository.Store = (*DB)(nil)

// querier is the subset of *sql.DB and *sql.Tx the repositories use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB is the SQLite Store. The zero-transaction DB returned by New owns the
// pool; the DB handed to a WithTx callback shares it and is bound to tx.
type DB struct {
	conn  *sql.DB
	tx    *sql.Tx
	q     querier
	clock clock.Clock
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/duotrak.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// clk stamps created_at / updated_at; nil means clock.WallClock.
func New(dbPath string, clk clock.Clock) (*DB, error) {
	if clk == nil {
		clk = clock.WallClock
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The cascades below depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, q: conn, clock: clk}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() repository.UserRepository               { return &UserDB{db} }
func (db *DB) Partnerships() repository.PartnershipRepository { return &PartnershipDB{db} }
func (db *DB) Goals() repository.GoalRepository               { return &GoalDB{db} }
func (db *DB) Systems() repository.SystemRepository           { return &SystemDB{db} }
func (db *DB) Checkins() repository.CheckinRepository         { return &CheckinDB{db} }
func (db *DB) Reflections() repository.ReflectionRepository   { return &ReflectionDB{db} }
func (db *DB) Comments() repository.CommentRepository         { return &CommentDB{db} }
func (db *DB) Reactions() repository.ReactionRepository       { return &ReactionDB{db} }
func (db *DB) Messages() repository.MessageRepository         { return &MessageDB{db} }

// WithTx runs fn inside a transaction. A DB that is already bound to a
// transaction runs fn directly, so services can compose.
func (db *DB) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	if db.tx != nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&DB{conn: db.conn, tx: tx, q: tx, clock: db.clock}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                     TEXT PRIMARY KEY,
			subject                TEXT NOT NULL UNIQUE,
			email                  TEXT NOT NULL UNIQUE,
			username               TEXT NOT NULL UNIQUE,
			name                   TEXT NOT NULL DEFAULT '',
			bio                    TEXT NOT NULL DEFAULT '',
			timezone               TEXT NOT NULL DEFAULT 'UTC',
			current_partnership_id TEXT,
			created_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at             DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One live outgoing invite per requester, and invite tokens are unique
	// while present (NULLs never collide in a UNIQUE column).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS partnerships (
			id                      TEXT PRIMARY KEY,
			user1_id                TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			user2_id                TEXT REFERENCES users(id) ON DELETE SET NULL,
			status                  TEXT NOT NULL,
			invite_token            TEXT UNIQUE,
			invite_token_expires_at DATETIME,
			invite_email            TEXT,
			created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			activated_at            DATETIME,
			dissolved_at            DATETIME
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_partnerships_one_pending
			ON partnerships(user1_id) WHERE status = 'pending_invite';
		CREATE INDEX IF NOT EXISTS idx_partnerships_invite_email ON partnerships(invite_email);
		CREATE INDEX IF NOT EXISTS idx_partnerships_user2_id ON partnerships(user2_id);
	`)
	if err != nil {
		return fmt.Errorf("creating partnerships table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS goals (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			priority    TEXT NOT NULL DEFAULT 'medium',
			status      TEXT NOT NULL DEFAULT 'not_started',
			start_date  TEXT,
			target_date TEXT,
			is_archived INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_goals_user_id ON goals(user_id);

		CREATE TABLE IF NOT EXISTS systems (
			id                    TEXT PRIMARY KEY,
			goal_id               TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
			title                 TEXT NOT NULL,
			description           TEXT NOT NULL DEFAULT '',
			frequency             TEXT NOT NULL DEFAULT 'daily',
			metric_type           TEXT NOT NULL DEFAULT 'binary',
			target_value          REAL,
			target_unit           TEXT NOT NULL DEFAULT '',
			status                TEXT NOT NULL DEFAULT 'active',
			verification_required INTEGER NOT NULL DEFAULT 0,
			created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_systems_goal_id ON systems(goal_id);

		CREATE TABLE IF NOT EXISTS checkins (
			id             TEXT PRIMARY KEY,
			system_id      TEXT NOT NULL REFERENCES systems(id) ON DELETE CASCADE,
			user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status         TEXT NOT NULL,
			metric_value   REAL,
			notes          TEXT NOT NULL DEFAULT '',
			checkin_at     DATETIME NOT NULL,
			verified_by_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			verified_at    DATETIME,
			verifier_query TEXT,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_checkins_system_id ON checkins(system_id);

		CREATE TABLE IF NOT EXISTS reflections (
			id              TEXT PRIMARY KEY,
			goal_id         TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
			reflection_date TEXT NOT NULL,
			content         TEXT NOT NULL,
			prompt_text     TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (goal_id, reflection_date)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating goal tables: %w", err)
	}

	// A comment targets exactly one of goal / checkin; the CHECK backs up
	// the service-level validation.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id                TEXT PRIMARY KEY,
			author_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			goal_id           TEXT REFERENCES goals(id) ON DELETE CASCADE,
			checkin_id        TEXT REFERENCES checkins(id) ON DELETE CASCADE,
			parent_comment_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
			content           TEXT NOT NULL,
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK ((goal_id IS NULL) <> (checkin_id IS NULL))
		);
		CREATE INDEX IF NOT EXISTS idx_comments_goal_id ON comments(goal_id);
		CREATE INDEX IF NOT EXISTS idx_comments_checkin_id ON comments(checkin_id);

		CREATE TABLE IF NOT EXISTS direct_messages (
			id             TEXT PRIMARY KEY,
			partnership_id TEXT NOT NULL REFERENCES partnerships(id) ON DELETE CASCADE,
			sender_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text           TEXT NOT NULL DEFAULT '',
			emoji          TEXT NOT NULL DEFAULT '',
			sent_at        DATETIME NOT NULL,
			read_at        DATETIME,
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_direct_messages_partnership_id ON direct_messages(partnership_id);

		CREATE TABLE IF NOT EXISTS reactions (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			emoji       TEXT NOT NULL,
			target_kind TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, target_kind, target_id, emoji)
		);
		CREATE INDEX IF NOT EXISTS idx_reactions_target ON reactions(target_kind, target_id);
	`)
	if err != nil {
		return fmt.Errorf("creating social tables: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE (or PRIMARY KEY)
// constraint failure from the driver.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// checkAffected turns "no rows matched" into a NotFound for resource/id.
func checkAffected(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

// pageBounds clamps list options to a sane page.
func pageBounds(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
