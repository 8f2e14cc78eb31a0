package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ScopeVerificationHookID is the reserved hook ID governed by
// RegistryConfig.ScopeVerification.
const ScopeVerificationHookID = "scope-verification"

// Registry owns the set of registered hooks, indexed by lifecycle event,
// and a single live RegistryConfig. Hook failures are absorbed: a
// misbehaving hook can never abort a lifecycle transition or propagate an
// error to the dispatching caller.
//
// Registry is safe for concurrent use. Registration racing with execution
// is allowed; a dispatch observes either the pre- or post-registration
// hook list, never a partially appended hook.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[LifecycleEvent][]NativeHook
	config atomic.Pointer[RegistryConfig]

	logger  *zap.Logger
	metrics *Metrics

	// failLog throttles hook-failure logging so a hot, broken hook
	// cannot flood the log sink.
	failLog *rate.Limiter
}

// NewRegistry creates a registry with the given configuration.
// A nil cfg falls back to DefaultRegistryConfig.
func NewRegistry(cfg *RegistryConfig, logger *zap.Logger) *Registry {
	if cfg == nil {
		cfg = DefaultRegistryConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{
		hooks:   make(map[LifecycleEvent][]NativeHook),
		logger:  logger,
		metrics: NewMetrics(logger),
		failLog: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	r.config.Store(cfg)
	return r
}

// Register adds a hook under its event. No uniqueness constraint is
// enforced: registering the same ID twice under one event keeps both
// registrations, and they run in registration order when priorities tie.
func (r *Registry) Register(h NativeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[h.Event] = append(r.hooks[h.Event], h)
}

// HooksFor returns the hooks registered for event, ordered ascending by
// priority. The sort is stable: equal priorities keep registration order.
// The returned slice is a copy; callers may not mutate registry state
// through it.
func (r *Registry) HooksFor(event LifecycleEvent) []NativeHook {
	r.mu.RLock()
	registered := r.hooks[event]
	out := make([]NativeHook, len(registered))
	copy(out, registered)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// SetConfig replaces the live configuration wholesale. Last write wins;
// there are no merge semantics.
func (r *Registry) SetConfig(cfg *RegistryConfig) {
	if cfg == nil {
		cfg = DefaultRegistryConfig()
	}
	r.config.Store(cfg)
}

// Config returns the current live configuration.
func (r *Registry) Config() *RegistryConfig {
	return r.config.Load()
}

// Execute dispatches event through the registered hooks in ascending
// priority order and returns the output of the first hook that produced
// one. It returns nil when every hook abstained (or failed, which is
// equivalent). Execute itself never returns an error and never panics.
//
// Each handler is awaited fully before the next one is considered, even
// when handlers perform asynchronous work, so the priority ordering holds
// for suspending handlers too.
func (r *Registry) Execute(ctx context.Context, event LifecycleEvent, input HookInput, hctx *HookContext) *HookOutput {
	// One config snapshot per dispatch: no torn reads while SetConfig
	// races with execution.
	cfg := r.config.Load()
	if hctx == nil {
		hctx = &HookContext{SessionID: input.SessionID, WorkDir: input.WorkDir}
	}
	if hctx.Config == nil {
		hctx.Config = cfg
	}

	for _, h := range r.HooksFor(event) {
		if h.ID == ScopeVerificationHookID && !hctx.Config.ScopeVerification.Enabled {
			r.metrics.RecordSkip(ctx, event)
			r.logger.Debug("hook disabled by config, skipping",
				zap.String("hook_id", h.ID),
				zap.String("event", string(event)))
			continue
		}

		out, err := r.invoke(ctx, h, input, hctx)
		if err != nil {
			r.metrics.RecordExecution(ctx, event, outcomeFailed)
			if r.failLog.Allow() {
				r.logger.Warn("hook failed, treating as abstained",
					zap.String("hook_id", h.ID),
					zap.String("event", string(event)),
					zap.String("session_id", input.SessionID),
					zap.Error(err))
			}
			continue
		}
		if out != nil {
			r.metrics.RecordExecution(ctx, event, outcomeResponded)
			return out
		}
		r.metrics.RecordExecution(ctx, event, outcomeAbstained)
	}

	return nil
}

// invoke runs a single handler, converting panics into errors so that one
// hook cannot take down the dispatch.
func (r *Registry) invoke(ctx context.Context, h NativeHook, input HookInput, hctx *HookContext) (out *HookOutput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("hook %s panicked: %v", h.ID, rec)
		}
	}()

	start := time.Now()
	out, err = h.Handler(ctx, input, hctx)
	r.metrics.RecordDuration(ctx, h.Event, time.Since(start))
	return out, err
}
