package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/stream"
)

// handleStream streams a session's output via Server-Sent Events.
//
// Each wire frame is one SSE event whose data field is the JSON encoding
// of the frame, terminated by a blank line. The connection stays open
// until the session emits message_complete or error, the client
// disconnects, or the consumer falls too far behind (slow consumer).
//
// Example:
//
//	GET /api/v1/sessions/{session_id}/stream
//
//	data: {"type":"text_delta","content":"Hello"}
//
//	data: {"type":"tool_call","id":"tu-1","name":"read_file","input":{"path":"go.mod"}}
//
//	data: {"type":"message_complete"}
func (s *Server) handleStream(c echo.Context) error {
	sessionID := c.Param("session_id")

	frames := make(chan stream.Frame, s.config.SubscriberBuffer)
	errs := make(chan error, 1)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	// The bridge delivers synchronously under the session's lock, so the
	// callback only hands frames to the buffered channel. A full buffer
	// means this consumer cannot keep up; it is disconnected rather than
	// allowed to stall the session fan-out.
	cancel, err := s.orch.Subscribe(sessionID,
		func(chunk stream.Chunk) {
			f, ok := stream.FrameFor(chunk)
			if !ok {
				return
			}
			select {
			case frames <- f:
			default:
				overflowOnce.Do(func() { close(overflow) })
			}
		},
		func(srcErr error) {
			select {
			case errs <- srcErr:
			default:
			}
		},
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	defer cancel()

	// Set SSE headers
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	// Heartbeat ticker to prevent proxy timeouts
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case f := <-frames:
			if err := writeFrame(c, f); err != nil {
				return nil
			}
			if f.Terminal() {
				return nil
			}

		case srcErr := <-errs:
			_ = writeFrame(c, stream.Frame{Type: stream.FrameError, Message: srcErr.Error()})
			return nil

		case <-overflow:
			s.logger.Warn("disconnecting slow stream consumer",
				zap.String("session_id", sessionID))
			return nil

		case <-ticker.C:
			fmt.Fprint(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			// Client disconnected; the deferred cancel propagates the stop
			// request when this was the last subscriber.
			return nil
		}
	}
}

// writeFrame serializes one frame as an SSE event and flushes it.
func writeFrame(c echo.Context, f stream.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
