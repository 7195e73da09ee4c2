package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/rolegate/portal-client/internal/core/domain"
)

const credentialsSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// OpenSQLite opens the database at dsn and makes sure the credentials table
// exists.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, credentialsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}
	return db, nil
}

// SQLiteStore keeps the two keys as rows of the credentials table and
// writes them in one transaction.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewSQLiteStore(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log}
}

func (s *SQLiteStore) Save(session domain.Session) error {
	token, user, err := encode(session)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	const upsert = "INSERT INTO credentials (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value"
	for _, kv := range [][2]string{{TokenKey, token}, {UserKey, user}} {
		if _, err := tx.ExecContext(ctx, upsert, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Load() (domain.Session, bool) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT key, value FROM credentials WHERE key IN (?, ?)", TokenKey, UserKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("credentials unreadable, treating as signed out")
		return domain.Session{}, false
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			s.log.Warn().Err(err).Msg("credentials row corrupt, treating as signed out")
			return domain.Session{}, false
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.log.Warn().Err(err).Msg("credentials unreadable, treating as signed out")
		return domain.Session{}, false
	}
	return decode(values[TokenKey], values[UserKey])
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.ExecContext(context.Background(),
		"DELETE FROM credentials WHERE key IN (?, ?)", TokenKey, UserKey)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
