package library

import (
	"context"

	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Store is the persistence contract for the user library: favorites with set
// semantics, watch history as an append log, and per-video resume progress
// with upsert semantics. Every operation is scoped by uid; two different
// users never contend. Implementations are swapped at startup configuration
// (postgres, redis, memory) and must be behaviorally identical.
type Store interface {
	// UpsertUser merges the non-empty fields of profile into the stored
	// user record and refreshes last_login. Creates the record on first
	// sign-in.
	UpsertUser(ctx context.Context, uid string, profile models.Profile) error

	// GetUser returns the stored user record, or ErrNotFound.
	GetUser(ctx context.Context, uid string) (*models.User, error)

	// AddFavorite is idempotent: re-adding an existing (uid, video_id)
	// pair leaves the set unchanged and does not reset added_at.
	AddFavorite(ctx context.Context, uid, videoID, title string) error

	// RemoveFavorite is idempotent: removing an absent pair is a no-op.
	RemoveFavorite(ctx context.Context, uid, videoID string) error

	// ListFavorites returns the user's list. No order is promised beyond
	// stability across repeated reads with no writes in between.
	ListFavorites(ctx context.Context, uid string) ([]models.FavoriteEntry, error)

	// AppendHistory always creates a new entry with a server-assigned
	// watched_at; it never deduplicates against prior entries.
	AppendHistory(ctx context.Context, uid, videoID, title string) error

	// ListHistory returns at most limit entries, newest first. A limit
	// <= 0 fails with ErrInvalidArgument.
	ListHistory(ctx context.Context, uid string, limit int) ([]models.WatchHistoryEntry, error)

	// ClearHistory deletes every history entry for uid. Appends racing a
	// clear may land on either side of it.
	ClearHistory(ctx context.Context, uid string) error

	// SaveProgress overwrites any prior position unconditionally. A
	// negative position fails with ErrInvalidArgument; zero is a
	// legitimate value (explicit reset), not a delete.
	SaveProgress(ctx context.Context, uid, videoID string, positionSeconds int) error

	// GetProgress returns the saved position, or 0 when none exists. "No
	// progress" and "progress at 0" are indistinguishable by design.
	GetProgress(ctx context.Context, uid, videoID string) (int, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
}
