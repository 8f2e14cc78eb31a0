package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sessiond/internal/hooks"
	"github.com/fyrsmithlabs/sessiond/internal/logging"
	"github.com/fyrsmithlabs/sessiond/internal/stream"
)

// Session is one active assistant session.
type Session struct {
	ID        string
	WorkDir   string
	StartedAt time.Time

	mu         sync.Mutex
	transcript []hooks.TranscriptEntry
}

// Transcript returns a copy of the session's in-progress transcript.
func (s *Session) Transcript() []hooks.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hooks.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) appendTranscript(role, content string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, hooks.TranscriptEntry{Role: role, Content: content})
	s.mu.Unlock()
}

// Orchestrator owns the hook registry and the streaming bridge and runs
// sessions through both.
type Orchestrator struct {
	registry *hooks.Registry
	bridge   *stream.Bridge
	logger   *logging.Logger

	mu     sync.Mutex
	active map[string]*Session
}

// NewOrchestrator creates an orchestrator over the given registry and bridge.
func NewOrchestrator(registry *hooks.Registry, bridge *stream.Bridge, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Orchestrator{
		registry: registry,
		bridge:   bridge,
		logger:   logger,
		active:   make(map[string]*Session),
	}
}

// Start creates a session, dispatches SessionStart through the hooks, and
// attaches the source's output to the bridge. A hook veto aborts the start
// and returns a BlockedError; the source is not attached in that case.
func (o *Orchestrator) Start(ctx context.Context, workDir string, src stream.Source) (*Session, error) {
	id := uuid.NewString()
	ctx = logging.WithSessionID(ctx, id)

	sess := &Session{
		ID:        id,
		WorkDir:   workDir,
		StartedAt: time.Now(),
	}

	out := o.registry.Execute(ctx, hooks.SessionStart, hooks.HookInput{
		SessionID: id,
		Event:     hooks.SessionStart,
		WorkDir:   workDir,
	}, o.hookContext(sess))
	if out != nil && !out.Continue {
		o.logger.Info(ctx, "session start blocked by hook",
			zap.String("reason", out.StopReason))
		return nil, &BlockedError{Event: hooks.SessionStart, Reason: out.StopReason}
	}

	o.mu.Lock()
	o.active[id] = sess
	o.mu.Unlock()

	o.bridge.Attach(id, &hookedSource{inner: src, orch: o, sess: sess, ctx: ctx})
	o.logger.Info(ctx, "session started", zap.String("work_dir", workDir))
	return sess, nil
}

// Get returns an active session by ID.
func (o *Orchestrator) Get(id string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.active[id]
	return s, ok
}

// Subscribe attaches a consumer to a session's stream. The returned handle
// unsubscribes; it is idempotent and, for the last subscriber, asks the
// session's source to stop producing.
func (o *Orchestrator) Subscribe(id string, onChunk func(stream.Chunk), onErr func(error)) (func(), error) {
	if _, ok := o.Get(id); !ok {
		return nil, ErrSessionNotFound
	}
	return o.bridge.Subscribe(id, onChunk, onErr), nil
}

// Stop dispatches the Stop lifecycle event and, unless a hook vetoed it,
// forwards the stop request to the session's source.
func (o *Orchestrator) Stop(ctx context.Context, id string) error {
	sess, ok := o.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	ctx = logging.WithSessionID(ctx, id)

	out := o.registry.Execute(ctx, hooks.Stop, hooks.HookInput{
		SessionID: id,
		Event:     hooks.Stop,
		WorkDir:   sess.WorkDir,
	}, o.hookContext(sess))
	if out != nil && !out.Continue {
		o.logger.Info(ctx, "stop request blocked by hook",
			zap.String("reason", out.StopReason))
		return &BlockedError{Event: hooks.Stop, Reason: out.StopReason}
	}

	o.bridge.Stop(id)
	o.logger.Info(ctx, "stop requested")
	return nil
}

// SubmitPrompt records a user prompt on the session transcript after
// running it through the UserPromptSubmit hooks. Forwarding the prompt to
// the generation engine is the engine collaborator's concern, not the
// orchestrator's.
func (o *Orchestrator) SubmitPrompt(ctx context.Context, id, prompt string) error {
	sess, ok := o.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	ctx = logging.WithSessionID(ctx, id)

	out := o.registry.Execute(ctx, hooks.UserPromptSubmit, hooks.HookInput{
		SessionID: id,
		Event:     hooks.UserPromptSubmit,
		WorkDir:   sess.WorkDir,
		Extra:     map[string]any{"prompt": prompt},
	}, o.hookContext(sess))
	if out != nil && !out.Continue {
		return &BlockedError{Event: hooks.UserPromptSubmit, Reason: out.StopReason}
	}

	sess.appendTranscript("user", prompt)
	return nil
}

// hookContext builds the mutable dispatch context shared by the hooks of
// one lifecycle event.
func (o *Orchestrator) hookContext(sess *Session) *hooks.HookContext {
	return &hooks.HookContext{
		SessionID:  sess.ID,
		WorkDir:    sess.WorkDir,
		Transcript: sess.Transcript(),
	}
}

// finish runs terminal bookkeeping once a session's stream has ended.
func (o *Orchestrator) finish(ctx context.Context, sess *Session) {
	o.mu.Lock()
	delete(o.active, sess.ID)
	o.mu.Unlock()

	o.registry.Execute(ctx, hooks.SessionEnd, hooks.HookInput{
		SessionID: sess.ID,
		Event:     hooks.SessionEnd,
		WorkDir:   sess.WorkDir,
	}, o.hookContext(sess))
	o.logger.Info(ctx, "session finished",
		zap.Duration("lifetime", time.Since(sess.StartedAt)))
}

// hookedSource wraps a session's source so that generation events pass the
// hook pipeline before reaching the bridge.
type hookedSource struct {
	inner stream.Source
	orch  *Orchestrator
	sess  *Session
	ctx   context.Context
}

func (h *hookedSource) Subscribe(onChunk func(stream.Chunk), onErr func(error)) {
	h.inner.Subscribe(func(c stream.Chunk) {
		for _, out := range h.intercept(c) {
			onChunk(out)
		}
	}, onErr)
}

func (h *hookedSource) Stop() { h.inner.Stop() }

// intercept applies lifecycle hooks to a single chunk and returns the
// chunks to forward. A vetoed tool_use is replaced by an error tool_result
// so subscribers see why the call never ran.
func (h *hookedSource) intercept(c stream.Chunk) []stream.Chunk {
	switch c.Type {
	case stream.ChunkText:
		if c.Text != "" {
			h.sess.appendTranscript("assistant", c.Text)
		}

	case stream.ChunkToolUse:
		if c.ToolUse == nil {
			break
		}
		out := h.orch.registry.Execute(h.ctx, hooks.PreToolUse, hooks.HookInput{
			SessionID: h.sess.ID,
			Event:     hooks.PreToolUse,
			WorkDir:   h.sess.WorkDir,
			Extra: map[string]any{
				"tool_use_id": c.ToolUse.ID,
				"tool_name":   c.ToolUse.Name,
				"tool_input":  c.ToolUse.Input,
			},
		}, h.orch.hookContext(h.sess))
		if out != nil && !out.Continue {
			reason := out.StopReason
			if reason == "" {
				reason = "tool use blocked by hook"
			}
			return []stream.Chunk{stream.ToolResultChunk(c.ToolUse.ID, reason, true)}
		}

	case stream.ChunkToolResult:
		if c.ToolResult == nil {
			break
		}
		h.orch.registry.Execute(h.ctx, hooks.PostToolUse, hooks.HookInput{
			SessionID: h.sess.ID,
			Event:     hooks.PostToolUse,
			WorkDir:   h.sess.WorkDir,
			Extra: map[string]any{
				"tool_use_id": c.ToolResult.ToolUseID,
				"is_error":    c.ToolResult.IsError,
			},
		}, h.orch.hookContext(h.sess))

	case stream.ChunkDone, stream.ChunkError:
		h.orch.finish(h.ctx, h.sess)
	}

	return []stream.Chunk{c}
}
