package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/sliplink/internal/link"
	"github.com/danmuck/sliplink/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Router is the part of link.Layer the status server drives.
type Router interface {
	Send(datagram []byte, nextHop string) error
	Peers() []string
	Stats() []link.LinkStats
}

// Status serves health, metrics and per-link counters over HTTP, and lets an
// operator inject a datagram onto a link.
type Status struct {
	Name         string
	Appeared     time.Time
	MaxBodyBytes int64 // cap on POSTed datagrams

	layer  Router
	router *gin.Engine
}

func New(name string, layer Router, corsOrigins []string) *Status {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger, "/metrics", "/health"))
	r.Use(observability.RequestMetricsMiddleware(name))
	if origins := normalizeOrigins(corsOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Status{
		Name:         name,
		Appeared:     time.Now(),
		layer:        layer,
		router:       r,
		MaxBodyBytes: 64 * 1024,
	}
	s.registerRoutes()
	return s
}

func (s *Status) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve listens on addr until ctx is done.
func (s *Status) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("status server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
