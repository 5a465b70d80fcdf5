package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/notebookrag/internal/service"
)

// writeEventStream forwards answer events as server sent events until the
// stream closes. Every event is flushed so tokens reach the caller as they
// are produced.
func writeEventStream(c *gin.Context, events <-chan service.Event) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for ev := range events {
		switch ev.Type {
		case service.EventSources:
			c.SSEvent(string(service.EventSources), gin.H{"sources": ev.Sources})
		case service.EventText:
			c.SSEvent(string(service.EventText), gin.H{"delta": ev.Delta})
		case service.EventDone:
			c.SSEvent(string(service.EventDone), gin.H{})
		case service.EventError:
			c.SSEvent(string(service.EventError), gin.H{"kind": ev.Kind})
		default:
			continue
		}
		c.Writer.Flush()
	}
}
