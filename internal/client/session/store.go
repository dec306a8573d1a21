// Package session persists the authentication state of the client: the raw
// bearer credential and the serialized user profile, stored in a small
// sqlite database in the data directory. Both entries must be present for a
// session to be restorable; either one missing means logged out.
package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/olexh/doctrans/internal/client/api"
	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/dbx"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	keyCredential = "credential"
	keyUser       = "user"
)

// ErrInvalidSession means the backend rejected the restored credential. The
// persisted entries have been cleared by the time the caller sees it.
var ErrInvalidSession = errors.New("session invalid")

// Lister is the low-cost authenticated call used to confirm that a restored
// credential is still accepted. The API client satisfies it.
type Lister interface {
	ListDocuments(ctx context.Context) ([]models.DocumentRecord, error)
}

// Store is the single source of truth for "is authenticated". It also
// serves as the API client's CredentialSource so that a 401 on any
// authenticated call clears the persisted entries.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the session database at dsn and applies schema
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// One connection: sqlite is single-writer and a second pooled
	// connection would not see an in-memory database at all.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Restore reads the persisted credential and user profile. It returns a
// candidate session only when both entries are present; backend validity is
// not guaranteed until Validate is called. A corrupt profile entry is
// treated as logged out and wiped.
func (s *Store) Restore(ctx context.Context) (*models.Session, error) {
	cred, err := s.get(ctx, s.db, keyCredential)
	if err != nil {
		return nil, err
	}
	userRaw, err := s.get(ctx, s.db, keyUser)
	if err != nil {
		return nil, err
	}
	if len(cred) == 0 || len(userRaw) == 0 {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal(userRaw, &user); err != nil {
		_ = s.Clear(ctx)
		return nil, nil
	}
	return &models.Session{Credential: string(cred), User: user}, nil
}

// Validate confirms the restored credential against the backend via the
// document list. A rejected credential clears the persisted entries and
// returns ErrInvalidSession; transport failures propagate without touching
// the stored session.
func (s *Store) Validate(ctx context.Context, lister Lister) error {
	if _, err := lister.ListDocuments(ctx); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			// The 401 path has normally cleared the store already via
			// Invalidate; clearing again is idempotent.
			if cerr := s.Clear(ctx); cerr != nil {
				return errors.Join(ErrInvalidSession, cerr)
			}
			return ErrInvalidSession
		}
		return err
	}
	return nil
}

// Save persists credential and user profile in a single transaction, so a
// credential-without-identity state cannot be observed.
func (s *Store) Save(ctx context.Context, session *models.Session) error {
	userRaw, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("marshal user profile: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.set(ctx, tx, keyCredential, []byte(session.Credential)); err != nil {
			return err
		}
		return s.set(ctx, tx, keyUser, userRaw)
	})
}

// Clear removes all persisted session entries.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Credential implements api.CredentialSource.
func (s *Store) Credential(ctx context.Context) (string, error) {
	v, err := s.get(ctx, s.db, keyCredential)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Invalidate implements api.CredentialSource: a 401 anywhere destroys the
// whole session, not just the credential.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.Clear(ctx)
}

func (s *Store) get(ctx context.Context, q dbx.DBTX, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, q dbx.DBTX, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}
