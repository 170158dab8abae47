package httpapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/openelec/telemetry-relay/internal/liveview"
)

// Register mounts the renderer-facing routes. Readers only ever see snapshot
// copies; nothing here mutates LiveView state.
func Register(app *fiber.App, view *liveview.LiveView) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	api.Get("/snapshot", func(c *fiber.Ctx) error {
		return c.JSON(view.Snapshot())
	})

	api.Get("/facilities/:id", func(c *fiber.Ctx) error {
		r, ok := view.Facility(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown facility"})
		}
		return c.JSON(r)
	})

	// Server-sent events: one "reading" event per accepted update from the
	// moment of connection onward.
	api.Get("/stream", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		changes, cancel := view.SubscribeChanges()
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer cancel()
			streamChanges(w, changes, 15*time.Second)
		}))
		return nil
	})
}

// streamChanges writes SSE events until the feed closes or the client goes
// away. A disconnect only surfaces as a write error, so a quiet feed gets a
// periodic keep-alive comment to notice dead clients promptly.
func streamChanges(w *bufio.Writer, changes <-chan liveview.Change, keepAlive time.Duration) {
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return
			}
			payload, err := json.Marshal(change.Reading)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: reading\ndata: %s\n\n", payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}
