// Package store handles all database and cache interactions.
//
// postgres.go -- pgxpool connection setup and queries.
// Creates a connection pool at startup, shared across all handlers.
// All queries use parameterized statements (no string concatenation).
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// feedbackColumns is the select list shared by every feedback query; scanned by scanFeedback.
const feedbackColumns = `f.id, f.title, f.content, f.is_public, f.user_id, u.username, f.created_at, f.updated_at`

// PostgresStore is the durable store. Safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and pings it before returning.
// Call once at startup from main.go; pass the returned store to whatever needs it.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool}, nil
}

// Close shuts down the connection pool and releases all resources.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// CheckHealth pings Postgres. Used by the health endpoint.
func (s *PostgresStore) CheckHealth(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Users ---

// UpsertUserByExternalID binds a Linux DO account to a local user.
// First sight inserts a row with the caller-generated id; later sightings update
// username + avatar in place and return the existing row, so the same linuxdo_id
// always maps to the same local id. Empty avatarURL is stored as NULL.
func (s *PostgresStore) UpsertUserByExternalID(ctx context.Context, id uuid.UUID, externalID, username, avatarURL string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, linuxdo_id, username, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (linuxdo_id) DO UPDATE
			SET username = EXCLUDED.username,
				avatar_url = EXCLUDED.avatar_url,
				updated_at = now()
		RETURNING id, linuxdo_id, username, avatar_url, created_at, updated_at
	`, id, externalID, username, nullIfEmpty(avatarURL)).Scan(
		&u.ID, &u.LinuxDoID, &u.Username, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting user %s: %w", externalID, err)
	}
	return &u, nil
}

// GetUserByID fetches a user by local id.
// Returns pgx.ErrNoRows (wrapped) when no row matches.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT id, linuxdo_id, username, avatar_url, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.LinuxDoID, &u.Username, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &u, nil
}

// --- Feedback ---

// CreateFeedback inserts a feedback row. The caller generates the UUID v7.
func (s *PostgresStore) CreateFeedback(ctx context.Context, id, userID uuid.UUID, title, content string, isPublic bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedbacks (id, title, content, is_public, user_id)
		VALUES ($1, $2, $3, $4, $5)
	`, id, title, content, isPublic, userID)
	if err != nil {
		return fmt.Errorf("creating feedback: %w", err)
	}
	return nil
}

// GetFeedbackByID fetches one feedback with its author name, regardless of visibility.
// Visibility is the caller's decision. Returns pgx.ErrNoRows (wrapped) when missing.
func (s *PostgresStore) GetFeedbackByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedbacks f JOIN users u ON u.id = f.user_id
		WHERE f.id = $1
	`, id)
	f, err := scanFeedback(row)
	if err != nil {
		return nil, fmt.Errorf("fetching feedback: %w", err)
	}
	return f, nil
}

// ListPublicFeedback returns up to limit public rows, newest first.
// A non-empty query keeps rows whose title or content contains it, case-insensitively.
func (s *PostgresStore) ListPublicFeedback(ctx context.Context, query string, limit int) ([]Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedbacks f JOIN users u ON u.id = f.user_id
		WHERE f.is_public
			AND ($1 = '' OR f.title ILIKE $2 OR f.content ILIKE $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`, query, containsPattern(query), limit)
	if err != nil {
		return nil, fmt.Errorf("listing public feedback: %w", err)
	}
	return collectFeedback(rows)
}

// ListAllFeedback returns up to limit rows of any visibility, newest first. Admin view.
func (s *PostgresStore) ListAllFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedbacks f JOIN users u ON u.id = f.user_id
		ORDER BY f.created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing all feedback: %w", err)
	}
	return collectFeedback(rows)
}

// CountPublicFeedback returns the number of public feedback rows.
func (s *PostgresStore) CountPublicFeedback(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feedbacks WHERE is_public").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting public feedback: %w", err)
	}
	return n, nil
}

// ListFeedbackByUser returns up to limit rows authored by userID, newest first, any visibility.
func (s *PostgresStore) ListFeedbackByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedbacks f JOIN users u ON u.id = f.user_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing user feedback: %w", err)
	}
	return collectFeedback(rows)
}

// --- Replies ---

// CreateReply inserts an admin reply. adminUserID may be nil (stored as NULL).
func (s *PostgresStore) CreateReply(ctx context.Context, id, feedbackID uuid.UUID, content string, adminUserID *uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replies (id, feedback_id, content, admin_user_id)
		VALUES ($1, $2, $3, $4)
	`, id, feedbackID, content, adminUserID)
	if err != nil {
		return fmt.Errorf("creating reply: %w", err)
	}
	return nil
}

// ListReplies returns all replies to a feedback, oldest first.
func (s *PostgresStore) ListReplies(ctx context.Context, feedbackID uuid.UUID) ([]Reply, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, feedback_id, content, admin_user_id, created_at
		FROM replies WHERE feedback_id = $1
		ORDER BY created_at ASC
	`, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("listing replies: %w", err)
	}
	defer rows.Close()

	var out []Reply
	for rows.Next() {
		var r Reply
		if err := rows.Scan(&r.ID, &r.FeedbackID, &r.Content, &r.AdminUserID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning reply: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing replies: %w", err)
	}
	return out, nil
}

// --- Helpers ---

// scanFeedback reads one row selected with feedbackColumns.
func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.Title, &f.Content, &f.IsPublic, &f.UserID, &f.AuthorName, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// collectFeedback drains rows selected with feedbackColumns and closes them.
func collectFeedback(rows pgx.Rows) ([]Feedback, error) {
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading feedback rows: %w", err)
	}
	return out, nil
}

// containsPattern turns a user query into an ILIKE pattern, escaping LIKE metacharacters.
func containsPattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
