package hooks

import "context"

// LifecycleEvent names a point in a session's life at which hooks may
// intercept processing. The enumeration is open: callers may dispatch
// events not listed here without touching the registry.
type LifecycleEvent string

const (
	// SessionStart fires when a new session is created, before any output.
	SessionStart LifecycleEvent = "SessionStart"

	// SessionEnd fires after a session has fully stopped.
	SessionEnd LifecycleEvent = "SessionEnd"

	// Stop fires when a stop of the running session is requested.
	Stop LifecycleEvent = "Stop"

	// PreToolUse fires before a tool invocation is forwarded downstream.
	PreToolUse LifecycleEvent = "PreToolUse"

	// PostToolUse fires after a tool invocation produced its result.
	PostToolUse LifecycleEvent = "PostToolUse"

	// UserPromptSubmit fires when a user prompt enters the session.
	UserPromptSubmit LifecycleEvent = "UserPromptSubmit"

	// Notification fires for out-of-band notices surfaced to the user.
	Notification LifecycleEvent = "Notification"
)

// HookInput is the immutable record passed to every hook invocation.
// Extra carries event-specific payload fields (tool name, prompt text, ...).
type HookInput struct {
	SessionID string         `json:"session_id"`
	Event     LifecycleEvent `json:"event"`
	WorkDir   string         `json:"work_dir,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// TranscriptEntry is one message of a session's in-progress transcript.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HookContext is the mutable execution context shared across all hooks of
// one dispatch. Hooks read from it; they intervene by returning a HookOutput,
// not by replacing the context.
type HookContext struct {
	SessionID  string
	WorkDir    string
	Transcript []TranscriptEntry
	Config     *RegistryConfig
}

// HookOutput is the result a hook returns when it wants to intervene.
// A nil output means "nothing to add, proceed".
type HookOutput struct {
	Continue   bool   `json:"continue"`
	StopReason string `json:"stopReason,omitempty"`
}

// Block returns an output that vetoes further processing of the event.
func Block(reason string) *HookOutput {
	return &HookOutput{Continue: false, StopReason: reason}
}

// Proceed returns an output that claims the event but lets processing
// continue. Later hooks are still skipped (short-circuit semantics).
func Proceed(reason string) *HookOutput {
	return &HookOutput{Continue: true, StopReason: reason}
}

// Handler is a hook's callback. Returning (nil, nil) signals abstention.
// A returned error is absorbed by the registry and treated as abstention.
type Handler func(ctx context.Context, input HookInput, hctx *HookContext) (*HookOutput, error)

// NativeHook is a registered, priority-ordered handler bound to one
// lifecycle event. Lower priority numbers run first. The ID is stable and
// used for configuration-based disabling; the same ID may be registered
// under several events.
type NativeHook struct {
	ID       string
	Event    LifecycleEvent
	Priority int
	Handler  Handler
}
