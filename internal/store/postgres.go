package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/docmind/backend/internal/models"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound   = errors.New("user not found")
	ErrUploadNotFound = errors.New("upload not found")
)

// PostgresStore keeps document owners and their upload log in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users and uploads tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(50)  NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS uploads (
			id            BIGSERIAL PRIMARY KEY,
			user_id       UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name          VARCHAR(255) NOT NULL,
			mime_type     VARCHAR(255) NOT NULL,
			size_bytes    BIGINT       NOT NULL,
			archive_key   TEXT         NOT NULL,
			last_modified TIMESTAMPTZ  NOT NULL,
			uploaded_at   TIMESTAMPTZ  DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS uploads_user_idx ON uploads (user_id, uploaded_at DESC)
	`)
	return err
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// RecordUpload logs that userID uploaded doc.
func (s *PostgresStore) RecordUpload(ctx context.Context, userID string, doc *models.Document, archiveKey string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO uploads (user_id, name, mime_type, size_bytes, archive_key, last_modified)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, doc.Name, doc.MimeType, doc.SizeBytes, archiveKey, doc.LastModified,
	)
	if err != nil {
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// GetUpload returns one of userID's uploads.
func (s *PostgresStore) GetUpload(ctx context.Context, userID string, id int64) (*models.Upload, error) {
	var u models.Upload
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, mime_type, size_bytes, archive_key, last_modified, uploaded_at
		 FROM uploads WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&u.ID, &u.Name, &u.MimeType, &u.SizeBytes, &u.ArchiveKey, &u.LastModified, &u.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return &u, nil
}

// DeleteUploads removes every log row of userID pointing at archiveKey.
func (s *PostgresStore) DeleteUploads(ctx context.Context, userID, archiveKey string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM uploads WHERE user_id = $1 AND archive_key = $2`, userID, archiveKey,
	)
	if err != nil {
		return 0, fmt.Errorf("delete uploads: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListUploads returns userID's most recent uploads, newest first.
func (s *PostgresStore) ListUploads(ctx context.Context, userID string, limit int) ([]models.Upload, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, mime_type, size_bytes, archive_key, last_modified, uploaded_at
		 FROM uploads WHERE user_id = $1 ORDER BY uploaded_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	uploads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Upload, error) {
		var u models.Upload
		err := row.Scan(&u.ID, &u.Name, &u.MimeType, &u.SizeBytes, &u.ArchiveKey, &u.LastModified, &u.UploadedAt)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan uploads: %w", err)
	}
	return uploads, nil
}
