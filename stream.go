package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zachkp/folio/internal/viewport"
	"github.com/gin-gonic/gin"
)

// keepAliveInterval spaces SSE comments that keep idle proxies from closing
// the stream.
const keepAliveInterval = 15 * time.Second

// viewportStream mounts a tracker for the page view, sends its id as a
// "view" event, then one "active" event per change. Disconnect unmounts.
func (s *server) viewportStream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	id, tracker, err := s.views.Mount()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer s.views.Unmount(id)

	updates, cancel := tracker.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	// Read after subscribing so no change is missed; a change already queued
	// on updates is then skipped as a repeat.
	sent := tracker.Active()
	fmt.Fprintf(c.Writer, "event: view\ndata: %s\n\n", id)
	fmt.Fprintf(c.Writer, "event: active\ndata: %s\n\n", sent)
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	streamActive(c.Request.Context(), c.Writer, flusher, sent, updates, ticker.C)
}

// streamActive writes one "active" event per value on updates that differs
// from the last one sent, plus keep-alive comments, until ctx ends or updates
// closes.
func streamActive(ctx context.Context, w io.Writer, flusher http.Flusher, sent string, updates <-chan string, keepAlive <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case active, ok := <-updates:
			if !ok {
				return
			}
			if active == sent {
				continue
			}
			sent = active
			fmt.Fprintf(w, "event: active\ndata: %s\n\n", active)
			flusher.Flush()
		case <-keepAlive:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

type layoutRequest struct {
	Tops map[string]float64 `json:"tops" binding:"required"`
}

// scrollRequest carries a per-view sequence number starting at 1 so reports
// delivered out of order can be dropped.
type scrollRequest struct {
	Seq    uint64   `json:"seq" binding:"required"`
	Offset *float64 `json:"offset" binding:"required"`
}

type visibilityRequest struct {
	ID      string `json:"id" binding:"required"`
	Visible bool   `json:"visible"`
}

func (s *server) lookupView(c *gin.Context) (*viewport.Tracker, bool) {
	t, err := s.views.Lookup(c.Param("view"))
	if errors.Is(err, viewport.ErrUnknownView) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown view"})
		return nil, false
	}
	return t, err == nil
}

func (s *server) viewportLayout(c *gin.Context) {
	var req layoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, ok := s.lookupView(c)
	if !ok {
		return
	}
	t.Measure(req.Tops)
	c.Status(http.StatusNoContent)
}

func (s *server) viewportScroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, ok := s.lookupView(c)
	if !ok {
		return
	}
	t.Scroll(req.Seq, *req.Offset)
	c.Status(http.StatusNoContent)
}

func (s *server) viewportVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, ok := s.lookupView(c)
	if !ok {
		return
	}
	t.Visibility(req.ID, req.Visible)
	c.Status(http.StatusNoContent)
}
