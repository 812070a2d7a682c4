// Package postgres persists registrations in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"realform/internal/platform/storage/migrate"
	"realform/internal/registration/models"
	id "realform/pkg/domain"
	"realform/pkg/platform/sentinel"
	"realform/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed registration store. The unique index on
// email is the arbiter for duplicate submissions.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return migrate.Apply(ctx, s.db, migrate.Postgres, migrations, "migrations")
}

// Create inserts reg. A duplicate email returns sentinel.ErrAlreadyUsed.
func (s *Store) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (
			id, first_name, last_name, password_digest, email,
			date_of_birth, gender, biography, profile_picture_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		reg.ID.String(),
		reg.FirstName,
		reg.LastName,
		reg.PasswordDigest,
		reg.Email,
		reg.DateOfBirth.UTC().Format(time.DateOnly),
		reg.Gender,
		reg.Biography,
		reg.ProfilePictureURL,
		reg.CreatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// List returns one page ordered by creation time, newest first, plus the
// total count. Both reads share one repeatable-read snapshot.
func (s *Store) List(ctx context.Context, q models.PageQuery) ([]*models.Registration, int, error) {
	var (
		docs  []*models.Registration
		total int
	)
	err := tx.Run(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(ctx context.Context) error {
		exec := tx.Executor(ctx, s.db)
		if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&total); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		var err error
		docs, err = listPage(ctx, exec, q)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func listPage(ctx context.Context, exec tx.Querier, q models.PageQuery) ([]*models.Registration, error) {
	query := `
		SELECT id, first_name, last_name, password_digest, email,
			date_of_birth, gender, biography, profile_picture_url, created_at
		FROM registrations
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := exec.QueryContext(ctx, query, q.Limit, q.Offset())
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Registration, 0, q.Limit)
	for rows.Next() {
		var (
			reg   models.Registration
			rawID uuid.UUID
		)
		if err := rows.Scan(
			&rawID,
			&reg.FirstName,
			&reg.LastName,
			&reg.PasswordDigest,
			&reg.Email,
			&reg.DateOfBirth,
			&reg.Gender,
			&reg.Biography,
			&reg.ProfilePictureURL,
			&reg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		reg.ID = id.RegistrationID(rawID)
		reg.DateOfBirth = reg.DateOfBirth.UTC()
		reg.CreatedAt = reg.CreatedAt.UTC()
		docs = append(docs, &reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return docs, nil
}

// Delete removes the record with registrationID or returns sentinel.ErrNotFound.
func (s *Store) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, registrationID.String())
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
