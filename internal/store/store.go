package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
)

// Store is the durable credential store backed by SQLite. It owns the users
// table and survives process restarts. All operations run inside their own
// implicit transaction; SQLite serializes writers for us.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (or creates) the credential database under dataDir and runs
// the idempotent schema migration. Pass empty string for an in-memory store,
// which is what the tests use.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "booksapi.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate credential database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create persists a new user with the given password hash. The disabled and
// admin flags start false. Returns ErrDuplicate if the username is taken;
// the existing row is left untouched in that case.
func (s *Store) Create(ctx context.Context, username, passwordHash string) (*model.User, error) {
	now := time.Now().UTC()
	user := &model.User{
		Username:     username,
		PasswordHash: passwordHash,
		Disabled:     false,
		Admin:        false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	const q = `INSERT INTO users
		(username, password_hash, disabled, admin, created_at, updated_at)
		VALUES
		(:username, :password_hash, :disabled, :admin, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Get returns a user by username.
func (s *Store) Get(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = ?", username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// SetAdmin updates the admin flag for a user. Setting the flag to its
// current value is a no-op success, not an error.
func (s *Store) SetAdmin(ctx context.Context, username string, value bool) (*model.User, error) {
	return s.setFlag(ctx, username, "admin", value)
}

// SetDisabled updates the disabled flag for a user. Setting the flag to its
// current value is a no-op success, not an error.
func (s *Store) SetDisabled(ctx context.Context, username string, value bool) (*model.User, error) {
	return s.setFlag(ctx, username, "disabled", value)
}

func (s *Store) setFlag(ctx context.Context, username, column string, value bool) (*model.User, error) {
	// column is one of the two fixed names above, never caller input.
	q := fmt.Sprintf("UPDATE users SET %s = ?, updated_at = ? WHERE username = ?", column)
	result, err := s.db.ExecContext(ctx, q, value, time.Now().UTC(), username)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update user %s rows affected: %w", column, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, username)
}

// List returns all users ordered by username. Used by the CLI.
func (s *Store) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// HasAnyAdmin reports whether at least one admin account exists. Used for
// first-run detection at startup.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE admin = 1"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
