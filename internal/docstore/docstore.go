package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/drcartoon/cartoonbox/internal/library"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Store is the document-store implementation of library.Store, backed by
// Redis. Each user owns a small set of per-uid documents: a user doc, a
// favorites hash keyed by video_id, a history sorted set scored by
// watched_at, and a progress hash. Mirrors the layout of the other backends
// without any relational joins.
type Store struct {
	client *redis.Client
}

// New creates a document store and verifies the connection.
func New(host string, port int, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func userKey(uid string) string      { return fmt.Sprintf("user:%s", uid) }
func favoritesKey(uid string) string { return fmt.Sprintf("user:%s:favorites", uid) }
func historyKey(uid string) string   { return fmt.Sprintf("user:%s:history", uid) }
func progressKey(uid string) string  { return fmt.Sprintf("user:%s:progress", uid) }

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(library.ErrUnavailable, err))
}

func observe(op string, start time.Time) {
	metrics.StoreOpDuration.WithLabelValues("redis", op).Observe(time.Since(start).Seconds())
}

type favoriteDoc struct {
	Title   string    `json:"title"`
	AddedAt time.Time `json:"added_at"`
}

type historyDoc struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Title     string    `json:"title"`
	WatchedAt time.Time `json:"watched_at"`
}

type progressDoc struct {
	PositionSeconds int       `json:"position_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertUser reads the user doc, merges non-empty profile fields and writes
// it back. Merge, never wholesale overwrite.
func (s *Store) UpsertUser(ctx context.Context, uid string, profile models.Profile) error {
	if uid == "" {
		return fmt.Errorf("empty uid: %w", library.ErrInvalidArgument)
	}
	defer observe("upsert_user", time.Now())

	now := time.Now()
	user := models.User{UID: uid, CreatedAt: now}

	data, err := s.client.Get(ctx, userKey(uid)).Bytes()
	if err != nil && err != redis.Nil {
		return storeErr("failed to read user doc", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &user); err != nil {
			return storeErr("failed to unmarshal user doc", err)
		}
	}

	if profile.Email != "" {
		user.Email = profile.Email
	}
	if profile.DisplayName != "" {
		user.DisplayName = profile.DisplayName
	}
	if profile.AvatarURL != "" {
		user.AvatarURL = profile.AvatarURL
	}
	user.LastLogin = now

	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user doc: %w", err)
	}
	if err := s.client.Set(ctx, userKey(uid), payload, 0).Err(); err != nil {
		return storeErr("failed to write user doc", err)
	}

	return nil
}

// GetUser returns the stored user doc.
func (s *Store) GetUser(ctx context.Context, uid string) (*models.User, error) {
	defer observe("get_user", time.Now())

	data, err := s.client.Get(ctx, userKey(uid)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("user %s: %w", uid, library.ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("failed to get user doc", err)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, storeErr("failed to unmarshal user doc", err)
	}

	return &user, nil
}

// AddFavorite sets the hash field only if absent, so a re-add never resets
// added_at.
func (s *Store) AddFavorite(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("add_favorite", time.Now())

	doc, err := json.Marshal(favoriteDoc{Title: title, AddedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal favorite: %w", err)
	}

	if err := s.client.HSetNX(ctx, favoritesKey(uid), videoID, doc).Err(); err != nil {
		return storeErr("failed to add favorite", err)
	}

	return nil
}

// RemoveFavorite deletes the hash field; absent fields are a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, uid, videoID string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("remove_favorite", time.Now())

	if err := s.client.HDel(ctx, favoritesKey(uid), videoID).Err(); err != nil {
		return storeErr("failed to remove favorite", err)
	}

	return nil
}

// ListFavorites returns the user's list sorted by added_at then video_id so
// repeated reads are stable despite hash iteration order.
func (s *Store) ListFavorites(ctx context.Context, uid string) ([]models.FavoriteEntry, error) {
	defer observe("list_favorites", time.Now())

	fields, err := s.client.HGetAll(ctx, favoritesKey(uid)).Result()
	if err != nil {
		return nil, storeErr("failed to list favorites", err)
	}

	entries := make([]models.FavoriteEntry, 0, len(fields))
	for videoID, raw := range fields {
		var doc favoriteDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, storeErr("failed to unmarshal favorite", err)
		}
		entries = append(entries, models.FavoriteEntry{
			UID:     uid,
			VideoID: videoID,
			Title:   doc.Title,
			AddedAt: doc.AddedAt,
		})
	}

	sortFavorites(entries)
	return entries, nil
}

func sortFavorites(entries []models.FavoriteEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].VideoID < entries[j].VideoID
	})
}

// AppendHistory adds a member to the history sorted set, scored by
// watched_at. The uuid in the member keeps identical events distinct.
func (s *Store) AppendHistory(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	defer observe("append_history", time.Now())

	now := time.Now()
	doc, err := json.Marshal(historyDoc{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Title:     title,
		WatchedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: doc}
	if err := s.client.ZAdd(ctx, historyKey(uid), member).Err(); err != nil {
		return storeErr("failed to append history", err)
	}

	return nil
}

// ListHistory returns up to limit entries, newest first.
func (s *Store) ListHistory(ctx context.Context, uid string, limit int) ([]models.WatchHistoryEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, library.ErrInvalidArgument)
	}
	defer observe("list_history", time.Now())

	raw, err := s.client.ZRevRange(ctx, historyKey(uid), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, storeErr("failed to list history", err)
	}

	entries := make([]models.WatchHistoryEntry, 0, len(raw))
	for _, member := range raw {
		var doc historyDoc
		if err := json.Unmarshal([]byte(member), &doc); err != nil {
			return nil, storeErr("failed to unmarshal history entry", err)
		}
		entries = append(entries, models.WatchHistoryEntry{
			ID:        doc.ID,
			UID:       uid,
			VideoID:   doc.VideoID,
			Title:     doc.Title,
			WatchedAt: doc.WatchedAt,
		})
	}

	return entries, nil
}

// ClearHistory drops the whole sorted set.
func (s *Store) ClearHistory(ctx context.Context, uid string) error {
	defer observe("clear_history", time.Now())

	if err := s.client.Del(ctx, historyKey(uid)).Err(); err != nil {
		return storeErr("failed to clear history", err)
	}

	return nil
}

// SaveProgress overwrites the progress hash field unconditionally.
func (s *Store) SaveProgress(ctx context.Context, uid, videoID string, positionSeconds int) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", library.ErrInvalidArgument)
	}
	if positionSeconds < 0 {
		return fmt.Errorf("negative position %d: %w", positionSeconds, library.ErrInvalidArgument)
	}
	defer observe("save_progress", time.Now())

	doc, err := json.Marshal(progressDoc{PositionSeconds: positionSeconds, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	if err := s.client.HSet(ctx, progressKey(uid), videoID, doc).Err(); err != nil {
		return storeErr("failed to save progress", err)
	}

	return nil
}

// GetProgress returns the saved position, or 0 when the field is absent.
func (s *Store) GetProgress(ctx context.Context, uid, videoID string) (int, error) {
	defer observe("get_progress", time.Now())

	raw, err := s.client.HGet(ctx, progressKey(uid), videoID).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("failed to get progress", err)
	}

	var doc progressDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return 0, storeErr("failed to unmarshal progress", err)
	}

	return doc.PositionSeconds, nil
}

// Ping reports backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
