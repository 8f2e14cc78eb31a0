// Package session orchestrates assistant sessions: it dispatches lifecycle
// events through the hook registry and drives each session's generation
// output through the streaming bridge.
//
// The two halves share only the session identity and configuration. Hooks
// may veto a session start or a stop request; the PreToolUse hook may veto
// an individual tool invocation, in which case the tool call is replaced
// by an error tool result on the stream.
package session
