package library

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/internal/tracing"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Service orchestrates Store calls into the operations the UI invokes and
// adds what the raw store does not: the resumables join, dedupe before
// display, and history-to-CSV shaping. Reads degrade to empty results on
// transient store failures; writes surface them.
type Service struct {
	store        Store
	log          *logging.Logger
	historyLimit int

	// now is swappable so tests can pin the exported_at column.
	now func() time.Time
}

// NewService creates a library service over the configured store.
func NewService(store Store, log *logging.Logger, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = models.DefaultHistoryLimit
	}
	return &Service{
		store:        store,
		log:          log,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func requireAuth(sess models.Session) error {
	if !sess.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// ResolveSignIn records a completed sign-in: the user record is created or
// merged, and last_login refreshed. Partial profile data never fails the
// caller's flow.
func (s *Service) ResolveSignIn(ctx context.Context, uid string, profile models.Profile) error {
	if uid == "" {
		return fmt.Errorf("sign-in without uid: %w", ErrUnauthenticated)
	}

	if err := s.store.UpsertUser(ctx, uid, profile); err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("upsert_user", "error").Inc()
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("upsert_user", "ok").Inc()
	return nil
}

// RecordWatch appends one history entry. Fired exactly once per explicit
// watch action, never from background revalidation.
func (s *Service) RecordWatch(ctx context.Context, sess models.Session, videoID, title string) error {
	if err := requireAuth(sess); err != nil {
		return err
	}

	if err := s.store.AppendHistory(ctx, sess.UID, videoID, title); err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("record_watch", "error").Inc()
		return fmt.Errorf("failed to record watch: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("record_watch", "ok").Inc()
	return nil
}

// ToggleFavorite flips list membership for the pair and returns the new
// membership. The toggle is read-then-write: two concurrent toggles for the
// same pair race under last-write-wins, with no lock.
func (s *Service) ToggleFavorite(ctx context.Context, sess models.Session, videoID, title string) (bool, error) {
	if err := requireAuth(sess); err != nil {
		return false, err
	}

	favorites, err := s.store.ListFavorites(ctx, sess.UID)
	if err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("toggle_favorite", "error").Inc()
		return false, fmt.Errorf("failed to read favorites: %w", err)
	}

	exists := false
	for _, entry := range favorites {
		if entry.VideoID == videoID {
			exists = true
			break
		}
	}

	if exists {
		err = s.store.RemoveFavorite(ctx, sess.UID, videoID)
	} else {
		err = s.store.AddFavorite(ctx, sess.UID, videoID, title)
	}
	if err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("toggle_favorite", "error").Inc()
		return exists, fmt.Errorf("failed to toggle favorite: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("toggle_favorite", "ok").Inc()
	return !exists, nil
}

// ListFavorites returns the user's list. A transient store failure degrades
// to an empty list with a warning; the session is never crashed over it.
func (s *Service) ListFavorites(ctx context.Context, sess models.Session) ([]models.FavoriteEntry, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	favorites, err := s.store.ListFavorites(ctx, sess.UID)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
			s.log.WithUserID(sess.UID).WithError(err).Warn("favorites read degraded to empty")
			metrics.LibraryOpsTotal.WithLabelValues("list_favorites", "degraded").Inc()
			return []models.FavoriteEntry{}, nil
		}
		metrics.LibraryOpsTotal.WithLabelValues("list_favorites", "error").Inc()
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("list_favorites", "ok").Inc()
	return favorites, nil
}

// ListHistory returns up to limit entries, newest first. A limit of 0 is
// clamped to the configured default; negative limits stay invalid.
func (s *Service) ListHistory(ctx context.Context, sess models.Session, limit int) ([]models.WatchHistoryEntry, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = s.historyLimit
	}

	entries, err := s.store.ListHistory(ctx, sess.UID, limit)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
			s.log.WithUserID(sess.UID).WithError(err).Warn("history read degraded to empty")
			metrics.LibraryOpsTotal.WithLabelValues("list_history", "degraded").Inc()
			return []models.WatchHistoryEntry{}, nil
		}
		metrics.LibraryOpsTotal.WithLabelValues("list_history", "error").Inc()
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("list_history", "ok").Inc()
	return entries, nil
}

// ClearHistory deletes every history entry for the user.
func (s *Service) ClearHistory(ctx context.Context, sess models.Session) error {
	if err := requireAuth(sess); err != nil {
		return err
	}

	if err := s.store.ClearHistory(ctx, sess.UID); err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("clear_history", "error").Inc()
		return fmt.Errorf("failed to clear history: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("clear_history", "ok").Inc()
	return nil
}

// SaveProgress upserts the resume position for the pair. Saving 0 is an
// explicit reset, not a delete.
func (s *Service) SaveProgress(ctx context.Context, sess models.Session, videoID string, positionSeconds int) error {
	if err := requireAuth(sess); err != nil {
		return err
	}

	if err := s.store.SaveProgress(ctx, sess.UID, videoID, positionSeconds); err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("save_progress", "error").Inc()
		return fmt.Errorf("failed to save progress: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("save_progress", "ok").Inc()
	return nil
}

// GetProgress returns the saved position, defaulting to 0 both when nothing
// was ever saved and when the store is briefly unreachable.
func (s *Service) GetProgress(ctx context.Context, sess models.Session, videoID string) (int, error) {
	if err := requireAuth(sess); err != nil {
		return 0, err
	}

	position, err := s.store.GetProgress(ctx, sess.UID, videoID)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
			s.log.WithUserID(sess.UID).WithVideoID(videoID).WithError(err).Warn("progress read degraded to 0")
			metrics.LibraryOpsTotal.WithLabelValues("get_progress", "degraded").Inc()
			return 0, nil
		}
		metrics.LibraryOpsTotal.WithLabelValues("get_progress", "error").Inc()
		return 0, fmt.Errorf("failed to get progress: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("get_progress", "ok").Inc()
	return position, nil
}

// ComputeResumables joins the current history page with per-video progress,
// keeping only entries with progress > 0, preserving history order (newest
// watched first) and collapsing repeated video ids to a single row. The
// per-video lookups fan out concurrently as a latency optimization only;
// correctness does not depend on their order.
func (s *Service) ComputeResumables(ctx context.Context, sess models.Session) ([]models.Resumable, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	span, ctx := tracing.StartLibrarySpan(ctx, "compute_resumables", sess.UID)
	defer tracing.FinishSpan(span)

	history, err := s.ListHistory(ctx, sess, s.historyLimit)
	if err != nil {
		return nil, err
	}

	// Distinct video ids in history order, newest occurrence first.
	seen := make(map[string]bool, len(history))
	distinct := make([]models.WatchHistoryEntry, 0, len(history))
	for _, entry := range history {
		if seen[entry.VideoID] {
			continue
		}
		seen[entry.VideoID] = true
		distinct = append(distinct, entry)
	}

	positions := make([]int, len(distinct))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range distinct {
		i, entry := i, entry
		g.Go(func() error {
			pos, err := s.store.GetProgress(gctx, sess.UID, entry.VideoID)
			if err != nil {
				if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
					// Missing progress just drops the row.
					return nil
				}
				return err
			}
			mu.Lock()
			positions[i] = pos
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.LibraryOpsTotal.WithLabelValues("resumables", "error").Inc()
		return nil, fmt.Errorf("failed to resolve progress: %w", err)
	}

	resumables := make([]models.Resumable, 0, len(distinct))
	for i, entry := range distinct {
		if positions[i] <= 0 {
			continue
		}
		resumables = append(resumables, models.Resumable{
			VideoID:         entry.VideoID,
			Title:           entry.Title,
			PositionSeconds: positions[i],
		})
	}

	metrics.LibraryOpsTotal.WithLabelValues("resumables", "ok").Inc()
	return resumables, nil
}

// ExportHistoryCSV shapes the full history page into a flat CSV table with
// an exported_at wall-clock column. Empty history yields a header-only
// table, not an error.
func (s *Service) ExportHistoryCSV(ctx context.Context, sess models.Session) ([]byte, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	span, ctx := tracing.StartLibrarySpan(ctx, "export_history", sess.UID)
	defer tracing.FinishSpan(span)

	history, err := s.ListHistory(ctx, sess, s.historyLimit)
	if err != nil {
		return nil, err
	}

	exportedAt := s.now().UTC().Format(time.RFC3339)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"video_id", "title", "watched_at", "exported_at"}); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, entry := range history {
		record := []string{
			entry.VideoID,
			entry.Title,
			entry.WatchedAt.UTC().Format(time.RFC3339),
			exportedAt,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	metrics.LibraryOpsTotal.WithLabelValues("export_history", "ok").Inc()
	return buf.Bytes(), nil
}
