package library

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drcartoon/cartoonbox/pkg/models"
)

// MemoryStore is an in-process Store for development and tests. It holds the
// same invariants as the durable backends but forgets everything on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	favorites map[string]map[string]models.FavoriteEntry // uid -> video_id -> entry
	history   map[string][]models.WatchHistoryEntry      // uid -> append order
	progress  map[string]models.ProgressEntry            // uid|video_id -> entry

	// now is swappable so tests can control timestamps.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*models.User),
		favorites: make(map[string]map[string]models.FavoriteEntry),
		history:   make(map[string][]models.WatchHistoryEntry),
		progress:  make(map[string]models.ProgressEntry),
		now:       time.Now,
	}
}

func progressKey(uid, videoID string) string {
	return uid + "|" + videoID
}

// UpsertUser merges non-empty profile fields into the stored record.
func (s *MemoryStore) UpsertUser(ctx context.Context, uid string, profile models.Profile) error {
	if uid == "" {
		return fmt.Errorf("empty uid: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[uid]
	if !ok {
		user = &models.User{UID: uid, CreatedAt: s.now()}
		s.users[uid] = user
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
	user.LastLogin = s.now()

	return nil
}

// GetUser returns the stored user record.
func (s *MemoryStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[uid]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", uid, ErrNotFound)
	}

	copied := *user
	return &copied, nil
}

// AddFavorite inserts the pair if absent; re-adding keeps the original
// added_at.
func (s *MemoryStore) AddFavorite(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.favorites[uid]
	if !ok {
		set = make(map[string]models.FavoriteEntry)
		s.favorites[uid] = set
	}
	if _, exists := set[videoID]; exists {
		return nil
	}

	set[videoID] = models.FavoriteEntry{
		UID:     uid,
		VideoID: videoID,
		Title:   title,
		AddedAt: s.now(),
	}
	return nil
}

// RemoveFavorite deletes the pair; absent pairs are a no-op.
func (s *MemoryStore) RemoveFavorite(ctx context.Context, uid, videoID string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.favorites[uid], videoID)
	return nil
}

// ListFavorites returns the user's list ordered by added_at, then video_id,
// so repeated reads are stable.
func (s *MemoryStore) ListFavorites(ctx context.Context, uid string) ([]models.FavoriteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.FavoriteEntry, 0, len(s.favorites[uid]))
	for _, entry := range s.favorites[uid] {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.Before(entries[j].AddedAt)
		}
		return entries[i].VideoID < entries[j].VideoID
	})

	return entries, nil
}

// AppendHistory creates a new entry unconditionally.
func (s *MemoryStore) AppendHistory(ctx context.Context, uid, videoID, title string) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[uid] = append(s.history[uid], models.WatchHistoryEntry{
		ID:        uuid.New().String(),
		UID:       uid,
		VideoID:   videoID,
		Title:     title,
		WatchedAt: s.now(),
	})
	return nil
}

// ListHistory returns up to limit entries, newest first.
func (s *MemoryStore) ListHistory(ctx context.Context, uid string, limit int) ([]models.WatchHistoryEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", limit, ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[uid]
	result := make([]models.WatchHistoryEntry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, entries[i])
	}

	return result, nil
}

// ClearHistory removes every entry for uid.
func (s *MemoryStore) ClearHistory(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, uid)
	return nil
}

// SaveProgress overwrites any prior position.
func (s *MemoryStore) SaveProgress(ctx context.Context, uid, videoID string, positionSeconds int) error {
	if uid == "" || videoID == "" {
		return fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}
	if positionSeconds < 0 {
		return fmt.Errorf("negative position %d: %w", positionSeconds, ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress[progressKey(uid, videoID)] = models.ProgressEntry{
		UID:             uid,
		VideoID:         videoID,
		PositionSeconds: positionSeconds,
		UpdatedAt:       s.now(),
	}
	return nil
}

// GetProgress returns the saved position, defaulting to 0.
func (s *MemoryStore) GetProgress(ctx context.Context, uid, videoID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.progress[progressKey(uid, videoID)]
	if !ok {
		return 0, nil
	}
	return entry.PositionSeconds, nil
}

// Ping always succeeds; the store lives in-process.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
