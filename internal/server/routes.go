package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/sliplink/internal/link"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Status) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": version,
			"links":   len(s.layer.Peers()),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/links", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"links": s.layer.Stats()})
	})

	s.router.POST("/links/:peer/datagrams", s.sendDatagram)
}

func (s *Status) sendDatagram(c *gin.Context) {
	peer := c.Param("peer")
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty datagram"})
		return
	}

	if err := s.layer.Send(body, peer); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, link.ErrNoRoute) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent", "peer": peer, "bytes": len(body)})
}
