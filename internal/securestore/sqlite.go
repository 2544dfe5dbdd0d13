package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/sciqlabs/tutorlink/internal/cryptox"
	"github.com/sciqlabs/tutorlink/internal/dbx"
	"github.com/sciqlabs/tutorlink/internal/securestore/migrations"
)

// SQLiteStore implements Store over a local SQLite database with values
// sealed at rest. The caller owns the *sql.DB lifetime.
type SQLiteStore struct {
	*sqliteRepo
	db *sql.DB
}

// sqliteRepo carries the actual queries over dbx.DBTX so the same code
// serves both *sql.DB and *sql.Tx.
type sqliteRepo struct {
	db  dbx.DBTX
	key []byte
}

// NewSQLiteStore wraps an already opened and migrated database. key is the
// 32-byte sealing key, typically from cryptox.LoadOrCreateKey.
func NewSQLiteStore(db *sql.DB, key []byte) *SQLiteStore {
	return &SQLiteStore{sqliteRepo: &sqliteRepo{db: db, key: key}, db: db}
}

// Open opens (creating if needed) the store database at dsn and runs the
// embedded migrations. The sqlite driver must be imported by the binary.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// WithTx runs fn against a transactional view of the store, committing on
// success and rolling back on error or panic.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, &sqliteRepo{db: tx, key: s.key})
	})
}

func (r *sqliteRepo) GetString(ctx context.Context, key string) (string, bool, error) {
	var value, nonce []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value, nonce FROM secrets WHERE key = ?`, key).Scan(&value, &nonce)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get secrets[%s]: %w", key, err)
	}

	plain, err := cryptox.Open(value, nonce, r.key)
	if err != nil {
		return "", false, fmt.Errorf("failed to open secrets[%s]: %w", key, err)
	}
	return string(plain), true, nil
}

func (r *sqliteRepo) SetString(ctx context.Context, key, value string) error {
	sealed, nonce, err := cryptox.Seal([]byte(value), r.key)
	if err != nil {
		return fmt.Errorf("failed to seal secrets[%s]: %w", key, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO secrets (key, value, nonce) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, nonce = excluded.nonce
	`, key, sealed, nonce)
	if err != nil {
		return fmt.Errorf("failed to set secrets[%s]: %w", key, err)
	}
	return nil
}

func (r *sqliteRepo) GetBool(ctx context.Context, key string) (bool, error) {
	s, ok, err := r.GetString(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("failed to parse secrets[%s] as bool: %w", key, err)
	}
	return v, nil
}

func (r *sqliteRepo) SetBool(ctx context.Context, key string, value bool) error {
	return r.SetString(ctx, key, strconv.FormatBool(value))
}

func (r *sqliteRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete secrets[%s]: %w", key, err)
	}
	return nil
}
