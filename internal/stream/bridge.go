package stream

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Source is the session event source collaborator. It emits one chunk at a
// time, in order, and can be asked to stop producing. Stop must be safe to
// call more than once.
type Source interface {
	// Subscribe wires the source's output to the given callbacks. onChunk
	// receives every generation event in emission order; onErr receives a
	// terminal producer error.
	Subscribe(onChunk func(Chunk), onErr func(error))

	// Stop requests that the source abort generation.
	Stop()
}

// subscriber is one attached consumer of a session's stream.
type subscriber struct {
	id      uint64
	onChunk func(Chunk)
	onErr   func(error)
}

// session tracks the live fan-out state for one session ID.
//
// Lifecycle: open (subscribers may attach) → streaming → terminated.
// Once terminated no chunk is delivered and publishes become no-ops.
type session struct {
	mu         sync.Mutex
	subs       []*subscriber
	source     Source
	terminated bool
	stopped    bool
}

// Bridge fans a session's chunks out to its subscribers, in emission
// order, and propagates cancellation back to the attached source when the
// last subscriber leaves.
//
// Delivery is synchronous per session: chunks are handed to every
// subscriber callback under the session's lock, which is what guarantees
// identical ordering across subscribers. Callbacks are expected to hand
// off quickly (buffered channel, NATS publish); a callback that panics is
// treated as a subscriber disconnect and removed without affecting the
// others.
type Bridge struct {
	mu       sync.Mutex
	sessions map[string]*session
	nextSub  atomic.Uint64

	logger  *zap.Logger
	metrics *Metrics
	relay   *Relay
}

// NewBridge creates a bridge. relay may be nil to disable out-of-process
// republishing.
func NewBridge(logger *zap.Logger, relay *Relay) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		sessions: make(map[string]*session),
		logger:   logger,
		metrics:  NewMetrics(logger),
		relay:    relay,
	}
}

// getOrCreate returns the session state, creating it when absent so that
// subscribers may attach before the source does.
func (b *Bridge) getOrCreate(sessionID string) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		s = &session{}
		b.sessions[sessionID] = s
	}
	return s
}

// lookup returns the session state without creating it.
func (b *Bridge) lookup(sessionID string) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[sessionID]
}

// drop removes the session state once its stream has terminated.
func (b *Bridge) drop(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, sessionID)
}

// Attach wires a source's output into the bridge for the given session.
// Chunks emitted before any subscriber attaches are dropped: subscription
// is prospective only.
func (b *Bridge) Attach(sessionID string, src Source) {
	s := b.getOrCreate(sessionID)
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()

	src.Subscribe(
		func(c Chunk) { b.Publish(sessionID, c) },
		func(err error) { b.Fail(sessionID, err) },
	)
}

// Subscribe registers a consumer for a session's stream and returns its
// unsubscribe handle. The handle is idempotent; when it removes the last
// subscriber of a still-producing session it requests that the attached
// source stop, so no orphaned generation keeps running.
func (b *Bridge) Subscribe(sessionID string, onChunk func(Chunk), onErr func(error)) func() {
	s := b.getOrCreate(sessionID)
	sub := &subscriber{
		id:      b.nextSub.Add(1),
		onChunk: onChunk,
		onErr:   onErr,
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	b.metrics.SubscriberAttached()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.unsubscribe(sessionID, s, sub.id)
		})
	}
}

func (b *Bridge) unsubscribe(sessionID string, s *session, subID uint64) {
	s.mu.Lock()
	for i, sub := range s.subs {
		if sub.id == subID {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			b.metrics.SubscriberDetached()
			break
		}
	}
	stopSource := len(s.subs) == 0 && s.source != nil && !s.terminated && !s.stopped
	if stopSource {
		s.stopped = true
	}
	src := s.source
	s.mu.Unlock()

	if stopSource {
		b.logger.Debug("last subscriber left, stopping source",
			zap.String("session_id", sessionID))
		src.Stop()
	}
}

// SubscriberCount returns the number of active subscribers for a session.
func (b *Bridge) SubscriberCount(sessionID string) int {
	s := b.lookup(sessionID)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Publish delivers a chunk to every active subscriber of the session, in
// the order chunks are produced. Publishing to an unknown or already
// terminated session is a no-op. A terminal chunk (done or error) closes
// the stream: it is delivered, the subscribers are released, and any
// chunk a slow-to-stop source emits afterwards is dropped.
func (b *Bridge) Publish(sessionID string, c Chunk) {
	s := b.lookup(sessionID)
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}

	b.metrics.ChunkPublished(c.Type)
	// Deliver over a snapshot: a failing sink is removed from s.subs
	// mid-loop, and ranging the live slice would skip or repeat others.
	subs := append([]*subscriber(nil), s.subs...)
	for _, sub := range subs {
		b.deliver(sessionID, s, sub, c)
	}
	b.republish(sessionID, c)

	if c.Terminal() {
		s.terminated = true
		s.subs = nil
		b.drop(sessionID)
		b.metrics.SessionTerminated()
	}
}

// deliver hands one chunk to one subscriber. A panicking callback means
// the consumer's sink is gone; the subscriber is removed and the rest of
// the fan-out proceeds untouched. Caller holds s.mu.
func (b *Bridge) deliver(sessionID string, s *session, sub *subscriber, c Chunk) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Warn("subscriber sink failed, removing",
				zap.String("session_id", sessionID),
				zap.Any("panic", rec))
			for i, cand := range s.subs {
				if cand.id == sub.id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					b.metrics.SubscriberDetached()
					break
				}
			}
		}
	}()
	sub.onChunk(c)
}

// republish mirrors the chunk's frame to the NATS relay, when configured.
// Relay failures are logged and otherwise invisible to subscribers.
func (b *Bridge) republish(sessionID string, c Chunk) {
	if b.relay == nil {
		return
	}
	f, ok := FrameFor(c)
	if !ok {
		b.metrics.FrameDropped()
		return
	}
	if err := b.relay.Publish(sessionID, f); err != nil {
		b.logger.Warn("relay publish failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// Fail reports a terminal producer error for the session. Every current
// subscriber's error callback runs, then the stream is closed exactly as
// for an error chunk.
func (b *Bridge) Fail(sessionID string, err error) {
	s := b.lookup(sessionID)
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return
	}

	for _, sub := range s.subs {
		if sub.onErr != nil {
			func() {
				defer func() { _ = recover() }()
				sub.onErr(err)
			}()
		}
	}
	b.republish(sessionID, ErrorChunk(err.Error()))

	s.terminated = true
	s.subs = nil
	b.drop(sessionID)
	b.metrics.SessionTerminated()
}

// Stop forwards a stop request to the session's attached source. Safe to
// call for unknown sessions and safe to call repeatedly.
func (b *Bridge) Stop(sessionID string) {
	s := b.lookup(sessionID)
	if s == nil {
		return
	}

	s.mu.Lock()
	src := s.source
	requested := s.stopped
	if src != nil {
		s.stopped = true
	}
	s.mu.Unlock()

	if src != nil && !requested {
		src.Stop()
	}
}
