package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/sessiond/internal/stream"
)

// startStream runs the SSE handler in a goroutine against a recorder and
// returns once the stream subscription is live.
func startStream(t *testing.T, ts *testServer, sessionID string, rec http.ResponseWriter, req *http.Request) <-chan struct{} {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.server.Echo().ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		return ts.bridge.SubscriberCount(sessionID) == 1
	}, 2*time.Second, 5*time.Millisecond, "stream subscription never became live")

	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream handler did not return")
	}
}

func TestHandleStream_DeliversFramesUntilComplete(t *testing.T) {
	ts := newTestServer(t, nil)
	sess, src := ts.startSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil)
	rec := httptest.NewRecorder()
	done := startStream(t, ts, sess.ID, rec, req)

	src.emit(
		stream.TextChunk("Hello"),
		stream.TextChunk(""), // empty delta produces no frame
		stream.ToolUseChunk("tu-1", "read_file", map[string]any{"path": "go.mod"}),
		stream.ToolResultChunk("tu-1", "module sessiond", false),
		stream.DoneChunk(),
	)
	waitDone(t, done)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	body := rec.Body.String()
	events := []string{}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Len(t, events, 4)
	assert.Contains(t, events[0], `"type":"text_delta"`)
	assert.Contains(t, events[0], `"content":"Hello"`)
	assert.Contains(t, events[1], `"type":"tool_call"`)
	assert.Contains(t, events[1], `"name":"read_file"`)
	assert.Contains(t, events[2], `"type":"tool_result"`)
	assert.Contains(t, events[3], `"type":"message_complete"`)
}

func TestHandleStream_UnknownSession(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(http.MethodGet, "/api/v1/sessions/nope/stream", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStream_ErrorChunkTerminates(t *testing.T) {
	ts := newTestServer(t, nil)
	sess, src := ts.startSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil)
	rec := httptest.NewRecorder()
	done := startStream(t, ts, sess.ID, rec, req)

	src.emit(stream.ErrorChunk("model backend unavailable"))
	waitDone(t, done)

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"error"`)
	assert.Contains(t, body, "model backend unavailable")
}

func TestHandleStream_SourceFailureWritesErrorFrame(t *testing.T) {
	ts := newTestServer(t, nil)
	sess, src := ts.startSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil)
	rec := httptest.NewRecorder()
	done := startStream(t, ts, sess.ID, rec, req)

	src.onErr(errors.New("connection reset"))
	waitDone(t, done)

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"error"`)
	assert.Contains(t, body, "connection reset")
}

func TestHandleStream_ClientDisconnectStopsSource(t *testing.T) {
	ts := newTestServer(t, nil)
	sess, src := ts.startSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := startStream(t, ts, sess.ID, rec, req)

	cancel()
	waitDone(t, done)

	// Last subscriber gone: the stop request propagates to the source.
	assert.Eventually(t, func() bool {
		return src.stops.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHandleStream_Heartbeat(t *testing.T) {
	ts := newTestServer(t, &Config{HeartbeatInterval: 10 * time.Millisecond})
	sess, _ := ts.startSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := startStream(t, ts, sess.ID, rec, req)

	time.Sleep(100 * time.Millisecond)
	cancel()
	waitDone(t, done)

	assert.Contains(t, rec.Body.String(), ": heartbeat")
}

// gatedRecorder blocks response writes until released, simulating a
// consumer that cannot drain the stream.
type gatedRecorder struct {
	*httptest.ResponseRecorder
	release chan struct{}
}

func (g *gatedRecorder) Write(b []byte) (int, error) {
	<-g.release
	return g.ResponseRecorder.Write(b)
}

func TestHandleStream_SlowConsumerDisconnected(t *testing.T) {
	ts := newTestServer(t, &Config{HeartbeatInterval: time.Hour, SubscriberBuffer: 1})
	sess, src := ts.startSession(t)

	rec := &gatedRecorder{
		ResponseRecorder: httptest.NewRecorder(),
		release:          make(chan struct{}),
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sess.ID+"/stream", nil)
	done := startStream(t, ts, sess.ID, rec, req)

	// The handler blocks writing the first frame; further chunks overrun
	// the one-slot buffer and trip the overflow path.
	src.emit(stream.TextChunk("one"))
	src.emit(stream.TextChunk("two"), stream.TextChunk("three"), stream.TextChunk("four"))

	close(rec.release)
	waitDone(t, done)

	// Never received a terminal chunk, yet the handler gave up on the
	// consumer rather than stalling the session.
	assert.NotContains(t, rec.Body.String(), "message_complete")
}
