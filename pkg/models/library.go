package models

import (
	"time"
)

// FavoriteEntry represents one video in a user's list. The (uid, video_id)
// pair is unique; the title is a display-name snapshot taken at write time
// and may go stale if the catalog's title changes later.
type FavoriteEntry struct {
	UID     string    `json:"uid" db:"uid"`
	VideoID string    `json:"video_id" db:"video_id"`
	Title   string    `json:"title" db:"title"`
	AddedAt time.Time `json:"added_at" db:"added_at"`
}

// WatchHistoryEntry represents one playback event. History is an append log,
// not a set: the same video may appear any number of times.
type WatchHistoryEntry struct {
	ID        string    `json:"id" db:"id"`
	UID       string    `json:"uid" db:"uid"`
	VideoID   string    `json:"video_id" db:"video_id"`
	Title     string    `json:"title" db:"title"`
	WatchedAt time.Time `json:"watched_at" db:"watched_at"`
}

// ProgressEntry records how far into a video a user has gotten. One entry
// per (uid, video_id); saves overwrite unconditionally.
type ProgressEntry struct {
	UID             string    `json:"uid" db:"uid"`
	VideoID         string    `json:"video_id" db:"video_id"`
	PositionSeconds int       `json:"position_seconds" db:"position_seconds"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Resumable is a history entry whose last saved position is greater than
// zero, joined with that position for the "resume watching" row.
type Resumable struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	PositionSeconds int    `json:"position_seconds"`
}

// DefaultHistoryLimit bounds history reads when the caller does not ask for
// a specific page size.
const DefaultHistoryLimit = 20
