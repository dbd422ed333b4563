package httpapi

import (
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/apperr"
	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/service"
)

type playlistResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	OwnerID   string        `json:"owner_id"`
	Tracks    []track.Track `json:"tracks"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toPlaylistResponse(r service.Resolved) playlistResponse {
	return playlistResponse{
		ID:        r.Playlist.ID,
		Name:      r.Playlist.Name,
		OwnerID:   r.Playlist.OwnerID,
		Tracks:    r.Tracks,
		CreatedAt: r.Playlist.CreatedAt,
		UpdatedAt: r.Playlist.UpdatedAt,
	}
}

type createPlaylistRequest struct {
	Name string `json:"name"`
}

type renamePlaylistRequest struct {
	Name string `json:"name"`
}

type addSongRequest struct {
	SongID string `json:"song_id"`
}

type reorderRequest struct {
	SongIDs []string `json:"song_ids"`
}

func (s *Server) listSongs(c *gin.Context) {
	songs, err := s.catalog.ListSongs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (s *Server) searchSongs(c *gin.Context) {
	songs, err := s.catalog.SearchSongs(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"songs": songs})
}

func (s *Server) listPlaylists(c *gin.Context) {
	resolved, err := s.playlists.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]playlistResponse, 0, len(resolved))
	for _, r := range resolved {
		out = append(out, toPlaylistResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"playlists": out})
}

func (s *Server) createPlaylist(c *gin.Context) {
	var req createPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validationf("invalid request body"))
		return
	}
	r, err := s.playlists.Create(c.Request.Context(), identityFrom(c), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlaylistResponse(r))
}

func (s *Server) addSong(c *gin.Context) {
	var req addSongRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SongID == "" {
		writeError(c, apperr.Validationf("song_id is required"))
		return
	}
	r, err := s.playlists.AddSong(c.Request.Context(), identityFrom(c), c.Param("id"), req.SongID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(r))
}

func (s *Server) removeSong(c *gin.Context) {
	r, err := s.playlists.RemoveSong(c.Request.Context(), identityFrom(c), c.Param("id"), c.Param("songID"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(r))
}

func (s *Server) reorderPlaylist(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validationf("invalid request body"))
		return
	}
	r, err := s.playlists.Reorder(c.Request.Context(), identityFrom(c), c.Param("id"), req.SongIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(r))
}

func (s *Server) renamePlaylist(c *gin.Context) {
	var req renamePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Validationf("invalid request body"))
		return
	}
	r, err := s.playlists.Rename(c.Request.Context(), identityFrom(c), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(r))
}

func (s *Server) deletePlaylist(c *gin.Context) {
	if err := s.playlists.Delete(c.Request.Context(), identityFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeError maps the error taxonomy onto HTTP statuses. A missing resource
// stays 404 and a wrong owner stays 403; the two are distinguishable by
// contract.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrTransientIO):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		zlog.Error().Msgf("api: %v", err)
	}
	c.JSON(status, gin.H{"error": errMessage(err)})
}

func errMessage(err error) string {
	if errors.Is(err, apperr.ErrTransientIO) {
		return "temporary storage failure"
	}
	return err.Error()
}
