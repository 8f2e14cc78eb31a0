// Package hooks provides lifecycle hook management for sessiond sessions.
//
// Hooks are registered against named lifecycle events (SessionStart, Stop,
// PreToolUse, ...) and executed in ascending priority order. The first hook
// that returns an output short-circuits the dispatch; a hook that fails is
// treated as if it had abstained. Hook execution never raises to the caller.
package hooks
