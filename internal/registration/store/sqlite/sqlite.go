// Package sqlite persists registrations in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"realform/internal/platform/storage/migrate"
	"realform/internal/registration/models"
	id "realform/pkg/domain"
	"realform/pkg/platform/sentinel"
	"realform/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists registrations in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
// A single connection serializes writers; WAL keeps readers unblocked.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate.Apply(ctx, sqlDB, migrate.SQLite, migrations, "migrations"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Create inserts reg. A duplicate email returns sentinel.ErrAlreadyUsed.
func (s *Store) Create(ctx context.Context, reg *models.Registration) error {
	_, err := tx.Executor(ctx, s.sqlDB).ExecContext(ctx, `
		INSERT INTO registrations (
			id, first_name, last_name, password_digest, email,
			date_of_birth, gender, biography, profile_picture_url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID.String(),
		reg.FirstName,
		reg.LastName,
		reg.PasswordDigest,
		reg.Email,
		reg.DateOfBirth.UTC().Format(time.DateOnly),
		reg.Gender,
		reg.Biography,
		reg.ProfilePictureURL,
		toMillis(reg.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// List returns one page ordered by creation time, newest first, plus the
// total count. Both reads run in one transaction.
func (s *Store) List(ctx context.Context, q models.PageQuery) ([]*models.Registration, int, error) {
	var (
		docs  []*models.Registration
		total int
	)
	err := tx.Run(ctx, s.sqlDB, nil, func(ctx context.Context) error {
		exec := tx.Executor(ctx, s.sqlDB)
		if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&total); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}

		rows, err := exec.QueryContext(ctx, `
			SELECT id, first_name, last_name, password_digest, email,
				date_of_birth, gender, biography, profile_picture_url, created_at
			FROM registrations
			ORDER BY created_at DESC, id DESC
			LIMIT ? OFFSET ?`,
			q.Limit, q.Offset(),
		)
		if err != nil {
			return fmt.Errorf("list registrations: %w", err)
		}
		defer rows.Close()

		docs = make([]*models.Registration, 0, q.Limit)
		for rows.Next() {
			reg, err := scanRegistration(rows)
			if err != nil {
				return err
			}
			docs = append(docs, reg)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate registrations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Delete removes the record with registrationID or returns sentinel.ErrNotFound.
func (s *Store) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	res, err := tx.Executor(ctx, s.sqlDB).ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, registrationID.String())
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanRegistration(rows *sql.Rows) (*models.Registration, error) {
	var (
		reg       models.Registration
		rawID     string
		dob       string
		createdAt int64
	)
	if err := rows.Scan(
		&rawID,
		&reg.FirstName,
		&reg.LastName,
		&reg.PasswordDigest,
		&reg.Email,
		&dob,
		&reg.Gender,
		&reg.Biography,
		&reg.ProfilePictureURL,
		&createdAt,
	); err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	parsedID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, fmt.Errorf("decode registration id %q: %w", rawID, err)
	}
	reg.ID = parsedID
	reg.DateOfBirth, err = time.Parse(time.DateOnly, dob)
	if err != nil {
		return nil, fmt.Errorf("decode date of birth: %w", err)
	}
	reg.CreatedAt = fromMillis(createdAt)
	return &reg, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
