// Package store provides the durable store backed by SQLite.
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/playlist"
	"github.com/tkodaira/melodeon/internal/domain/track"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	artist    TEXT NOT NULL,
	audio_url TEXT NOT NULL,
	cover_url TEXT NOT NULL DEFAULT '',
	duration  REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS playlists (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_playlists_owner ON playlists(owner_id);

CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	song_id     TEXT NOT NULL,
	PRIMARY KEY (playlist_id, position)
);
`

// SQLite is the durable store. Each playlist mutation runs in one
// transaction, giving document-level atomicity; there is no version check,
// so concurrent writes to the same playlist are last-write-wins.
type SQLite struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. ":memory:" works for
// tests. maxOpenConns bounds the connection pool; ":memory:" databases are
// forced to a single connection to stay coherent.
func Open(path string, maxOpenConns int) (*SQLite, error) {
	dsn := path + "?_foreign_keys=on"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	if maxOpenConns < 1 || path == ":memory:" {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate schema")
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// UpsertSong inserts or replaces a catalog song.
func (s *SQLite) UpsertSong(ctx context.Context, t track.Track) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (id, title, artist, audio_url, cover_url, duration)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, artist = excluded.artist,
			audio_url = excluded.audio_url, cover_url = excluded.cover_url,
			duration = excluded.duration`,
		t.ID, t.Title, t.Artist, t.AudioURL, t.CoverURL, t.Duration)
	return transient(errors.Wrap(err, "upsert song"))
}

// GetSong returns the song with the given id.
func (s *SQLite) GetSong(ctx context.Context, id string) (track.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, artist, audio_url, cover_url, duration FROM songs WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Track{}, apperr.NotFoundf("song %s not found", id)
	}
	if err != nil {
		return track.Track{}, transient(errors.Wrap(err, "get song"))
	}
	return t, nil
}

// ListSongs returns the whole catalog ordered by artist and title.
func (s *SQLite) ListSongs(ctx context.Context) ([]track.Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artist, audio_url, cover_url, duration FROM songs
		 ORDER BY artist, title`)
	if err != nil {
		return nil, transient(errors.Wrap(err, "list songs"))
	}
	defer rows.Close()
	return collectTracks(rows)
}

// SearchSongs returns songs whose title or artist contains q.
func (s *SQLite) SearchSongs(ctx context.Context, q string) ([]track.Track, error) {
	pattern := "%" + strings.TrimSpace(q) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, artist, audio_url, cover_url, duration FROM songs
		 WHERE title LIKE ? OR artist LIKE ?
		 ORDER BY artist, title`, pattern, pattern)
	if err != nil {
		return nil, transient(errors.Wrap(err, "search songs"))
	}
	defer rows.Close()
	return collectTracks(rows)
}

// ResolveTracks maps song ids to tracks, preserving order and silently
// dropping ids that no longer exist in the catalog.
func (s *SQLite) ResolveTracks(ctx context.Context, ids []string) ([]track.Track, error) {
	found := make(map[string]track.Track, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		t, err := s.GetSong(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue // stale id, filtered at serve time
		}
		if err != nil {
			return nil, err
		}
		found[id] = t
	}

	resolved := make([]track.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			resolved = append(resolved, t)
		}
	}
	return resolved, nil
}

// CreatePlaylist stores a new playlist.
func (s *SQLite) CreatePlaylist(ctx context.Context, p *playlist.Playlist) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlists (id, name, owner_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.OwnerID, p.CreatedAt, p.UpdatedAt); err != nil {
			return errors.Wrap(err, "insert playlist")
		}
		return insertSongRows(ctx, tx, p)
	})
}

// GetPlaylist returns the playlist with the given id.
func (s *SQLite) GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM playlists WHERE id = ?`, id)

	var p playlist.Playlist
	err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("playlist %s not found", id)
	}
	if err != nil {
		return nil, transient(errors.Wrap(err, "get playlist"))
	}

	p.SongIDs, err = s.songIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlaylistsByOwner returns all playlists owned by ownerID, oldest first.
func (s *SQLite) ListPlaylistsByOwner(ctx context.Context, ownerID string) ([]*playlist.Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM playlists
		 WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, transient(errors.Wrap(err, "list playlists"))
	}
	defer rows.Close()

	var result []*playlist.Playlist
	for rows.Next() {
		var p playlist.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, transient(errors.Wrap(err, "scan playlist"))
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, transient(errors.Wrap(err, "iterate playlists"))
	}

	for _, p := range result {
		if p.SongIDs, err = s.songIDs(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdatePlaylist overwrites the playlist document (name, song order,
// updated_at) in one transaction. Last write wins.
func (s *SQLite) UpdatePlaylist(ctx context.Context, p *playlist.Playlist) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?`,
			p.Name, p.UpdatedAt, p.ID)
		if err != nil {
			return errors.Wrap(err, "update playlist")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "rows affected")
		}
		if n == 0 {
			return apperr.NotFoundf("playlist %s not found", p.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM playlist_songs WHERE playlist_id = ?`, p.ID); err != nil {
			return errors.Wrap(err, "clear playlist songs")
		}
		return insertSongRows(ctx, tx, p)
	})
}

// DeletePlaylist removes the playlist. Deleting an absent playlist returns
// NotFound.
func (s *SQLite) DeletePlaylist(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return transient(errors.Wrap(err, "delete playlist"))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transient(errors.Wrap(err, "rows affected"))
	}
	if n == 0 {
		return apperr.NotFoundf("playlist %s not found", id)
	}
	return nil
}

func (s *SQLite) songIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT song_id FROM playlist_songs WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, transient(errors.Wrap(err, "load playlist songs"))
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, transient(errors.Wrap(err, "scan song id"))
		}
		ids = append(ids, id)
	}
	return ids, transient(errors.Wrap(rows.Err(), "iterate playlist songs"))
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transient(errors.Wrap(err, "begin tx"))
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return transient(err)
	}
	return transient(errors.Wrap(tx.Commit(), "commit tx"))
}

func insertSongRows(ctx context.Context, tx *sql.Tx, p *playlist.Playlist) error {
	for i, songID := range p.SongIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playlist_songs (playlist_id, position, song_id) VALUES (?, ?, ?)`,
			p.ID, i, songID); err != nil {
			return errors.Wrap(err, "insert playlist song")
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (track.Track, error) {
	var t track.Track
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.AudioURL, &t.CoverURL, &t.Duration)
	return t, err
}

func collectTracks(rows *sql.Rows) ([]track.Track, error) {
	tracks := []track.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, transient(errors.Wrap(err, "scan song"))
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, transient(errors.Wrap(err, "iterate songs"))
	}
	return tracks, nil
}

// transient classifies storage failures as TransientIO at the boundary,
// keeping the underlying chain. nil stays nil.
func transient(err error) error {
	return apperr.Transient(err)
}
