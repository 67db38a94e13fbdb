package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/drcartoon/cartoonbox/internal/library"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Repository is the relational implementation of library.Store: a users
// table, a favorites table pair-keyed on (uid, video_id), an append-only
// watch_history table and an upsert-keyed progress table.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// storeErr folds a pgx failure into the library error taxonomy. Everything
// except a missing row counts as the backend being unreachable.
func storeErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, library.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, errors.Join(library.ErrUnavailable, err))
}

func observe(backend, op string, start time.Time) {
	metrics.StoreOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// UpsertUser merges non-empty profile fields into the stored user record and
// refreshes last_login. Empty fields keep whatever is already stored.
func (r *Repository) UpsertUser(ctx context.Context, uid string, profile models.Profile) error {
	if uid == "" {
		return fmt.Errorf("empty uid: %w", library.ErrInvalidArgument)
	}
	defer observe("postgres", "upsert_user", time.Now())

	query := `
		INSERT INTO users (uid, email, display_name, avatar_url, last_login, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (uid) DO UPDATE SET
			email        = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			avatar_url   = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url),
			last_login   = CURRENT_TIMESTAMP
	`

	_, err := r.db.Pool.Exec(ctx, query, uid, profile.Email, profile.DisplayName, profile.AvatarURL)
	if err != nil {
		return storeErr("failed to upsert user", err)
	}

	return nil
}

// GetUser retrieves a user by uid
func (r *Repository) GetUser(ctx context.Context, uid string) (*models.User, error) {
	defer observe("postgres", "get_user", time.Now())

	var user models.User

	query := `
		SELECT uid, email, display_name, avatar_url, last_login, created_at
		FROM users
		WHERE uid = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, uid).Scan(
		&user.UID, &user.Email, &user.DisplayName, &user.AvatarURL,
		&user.LastLogin, &user.CreatedAt,
	)
	if err != nil {
		return nil, storeErr("failed to get user", err)
	}

	return &user, nil
}

// AddFavorite inserts the pair; ON CONFLICT DO NOTHING keeps re-adds from
// resetting added_at.
func (r *Repository) AddFavorite(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("postgres", "add_favorite", time.Now())

	query := `
		INSERT INTO favorites (uid, video_id, title, added_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (uid, video_id) DO NOTHING
	`

	if _, err := r.db.Pool.Exec(ctx, query, uid, videoID, title); err != nil {
		return storeErr("failed to add favorite", err)
	}

	return nil
}

// RemoveFavorite deletes the pair; deleting an absent pair is a no-op.
func (r *Repository) RemoveFavorite(ctx context.Context, uid, videoID string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("postgres", "remove_favorite", time.Now())

	query := `DELETE FROM favorites WHERE uid = $1 AND video_id = $2`

	if _, err := r.db.Pool.Exec(ctx, query, uid, videoID); err != nil {
		return storeErr("failed to remove favorite", err)
	}

	return nil
}

// ListFavorites retrieves the user's list, ordered by added_at for stable
// repeated reads.
func (r *Repository) ListFavorites(ctx context.Context, uid string) ([]models.FavoriteEntry, error) {
	defer observe("postgres", "list_favorites", time.Now())

	query := `
		SELECT uid, video_id, title, added_at
		FROM favorites
		WHERE uid = $1
		ORDER BY added_at, video_id
	`

	rows, err := r.db.Pool.Query(ctx, query, uid)
	if err != nil {
		return nil, storeErr("failed to list favorites", err)
	}
	defer rows.Close()

	var entries []models.FavoriteEntry
	for rows.Next() {
		var entry models.FavoriteEntry
		if err := rows.Scan(&entry.UID, &entry.VideoID, &entry.Title, &entry.AddedAt); err != nil {
			return nil, storeErr("failed to scan favorite", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to read favorites", err)
	}

	return entries, nil
}

// AppendHistory creates a new history entry with a synthetic id and a
// server-assigned watched_at.
func (r *Repository) AppendHistory(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("postgres", "append_history", time.Now())

	query := `
		INSERT INTO watch_history (id, uid, video_id, title, watched_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
	`

	if _, err := r.db.Pool.Exec(ctx, query, uuid.New().String(), uid, videoID, title); err != nil {
		return storeErr("failed to append history", err)
	}

	return nil
}

// ListHistory retrieves up to limit entries, newest first.
func (r *Repository) ListHistory(ctx context.Context, uid string, limit int) ([]models.WatchHistoryEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, library.ErrInvalidArgument)
	}
	defer observe("postgres", "list_history", time.Now())

	query := `
		SELECT id, uid, video_id, title, watched_at
		FROM watch_history
		WHERE uid = $1
		ORDER BY watched_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, uid, limit)
	if err != nil {
		return nil, storeErr("failed to list history", err)
	}
	defer rows.Close()

	var entries []models.WatchHistoryEntry
	for rows.Next() {
		var entry models.WatchHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UID, &entry.VideoID, &entry.Title, &entry.WatchedAt); err != nil {
			return nil, storeErr("failed to scan history entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("failed to read history", err)
	}

	return entries, nil
}

// ClearHistory deletes every history entry for the user.
func (r *Repository) ClearHistory(ctx context.Context, uid string) error {
	defer observe("postgres", "clear_history", time.Now())

	query := `DELETE FROM watch_history WHERE uid = $1`

	if _, err := r.db.Pool.Exec(ctx, query, uid); err != nil {
		return storeErr("failed to clear history", err)
	}

	return nil
}

// SaveProgress upserts the position; the last write wins unconditionally.
func (r *Repository) SaveProgress(ctx context.Context, uid, videoID string, positionSeconds int) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	if positionSeconds < 0 {
		return fmt.Errorf("negative position %d: %w", positionSeconds, library.ErrInvalidArgument)
	}
	defer observe("postgres", "save_progress", time.Now())

	query := `
		INSERT INTO progress (uid, video_id, position_seconds, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (uid, video_id) DO UPDATE SET
			position_seconds = EXCLUDED.position_seconds,
			updated_at       = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Pool.Exec(ctx, query, uid, videoID, positionSeconds); err != nil {
		return storeErr("failed to save progress", err)
	}

	return nil
}

// GetProgress returns the saved position, or 0 when no row exists.
func (r *Repository) GetProgress(ctx context.Context, uid, videoID string) (int, error) {
	defer observe("postgres", "get_progress", time.Now())

	var position int

	query := `SELECT position_seconds FROM progress WHERE uid = $1 AND video_id = $2`

	err := r.db.Pool.QueryRow(ctx, query, uid, videoID).Scan(&position)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("failed to get progress", err)
	}

	return position, nil
}

// Ping reports database reachability.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Health(ctx)
}
