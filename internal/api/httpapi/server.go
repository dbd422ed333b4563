// Package httpapi exposes the playlist sync service and the song catalog
// over a JSON HTTP API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/service"
)

// Catalog is the read-only song catalog consumed by the API.
type Catalog interface {
	ListSongs(ctx context.Context) ([]track.Track, error)
	SearchSongs(ctx context.Context, q string) ([]track.Track, error)
}

// Server routes API requests to the playlist service and catalog.
type Server struct {
	engine    *gin.Engine
	playlists *service.PlaylistService
	catalog   Catalog
}

// New builds the API server with its routes and middleware.
func New(auth AuthConfig, playlists *service.PlaylistService, catalog Catalog) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestLogger(), gin.Recovery())

	s := &Server{
		engine:    engine,
		playlists: playlists,
		catalog:   catalog,
	}

	api := engine.Group("/api")
	api.GET("/songs", s.listSongs)
	api.GET("/songs/search", s.searchSongs)

	owned := api.Group("", RequireAuth(auth))
	owned.GET("/playlists", s.listPlaylists)
	owned.POST("/playlists", s.createPlaylist)
	owned.POST("/playlists/:id/songs", s.addSong)
	owned.DELETE("/playlists/:id/songs/:songID", s.removeSong)
	owned.PUT("/playlists/:id/order", s.reorderPlaylist)
	owned.PATCH("/playlists/:id", s.renamePlaylist)
	owned.DELETE("/playlists/:id", s.deletePlaylist)

	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zlog.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
