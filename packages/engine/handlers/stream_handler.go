package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"engine/realtime"
)

type StreamHandler struct {
	hub *realtime.Hub
}

func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// StreamEvents streams a tournament's events over SSE
// @Summary Stream tournament events
// @Description Server-sent events for status changes, results, disputes and settlements
// @Tags tournaments
// @Produce text/event-stream
// @Param id path int true "Tournament ID"
// @Router /tournaments/{id}/events [get]
func (h *StreamHandler) StreamEvents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	client := &realtime.Client{TournamentID: id, Send: make(chan []byte, 16)}
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case data, open := <-client.Send:
			if !open {
				return false
			}
			c.SSEvent("message", string(data))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
