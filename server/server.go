// Package server assembles the HTTP server around the conversational core.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/docuchat/docuchat/plugin/storage/s3"
	"github.com/docuchat/docuchat/plugin/vectorstore"
	"github.com/docuchat/docuchat/server/chatbot"
	"github.com/docuchat/docuchat/server/profile"
	apiv1 "github.com/docuchat/docuchat/server/router/api/v1"
	"github.com/docuchat/docuchat/store"
)

// Server owns the echo instance and the http.Server wrapped around it.
type Server struct {
	Profile *profile.Profile

	echo *echo.Echo
	http *http.Server
}

// New wires routes and middleware. objectStore may be nil.
func New(p *profile.Profile, sessions *store.Registry, bot *chatbot.ChatBot, vectors *vectorstore.Store, objectStore *s3.Client) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	apiv1.NewAPIV1Service(p, sessions, bot, vectors, objectStore).RegisterRoutes(e)

	return &Server{
		Profile: p,
		echo:    e,
		http: &http.Server{
			Addr:              p.ListenAddr(),
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
