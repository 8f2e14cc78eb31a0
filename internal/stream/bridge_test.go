package stream

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is a hand-driven Source for tests.
type fakeSource struct {
	onChunk func(Chunk)
	onErr   func(error)
	stops   atomic.Int32
}

func (f *fakeSource) Subscribe(onChunk func(Chunk), onErr func(error)) {
	f.onChunk = onChunk
	f.onErr = onErr
}

func (f *fakeSource) Stop() { f.stops.Add(1) }

func (f *fakeSource) emit(c Chunk)     { f.onChunk(c) }
func (f *fakeSource) fail(err error)   { f.onErr(err) }
func (f *fakeSource) stopCount() int32 { return f.stops.Load() }

func collector() (func(Chunk), *[]Chunk) {
	var got []Chunk
	return func(c Chunk) { got = append(got, c) }, &got
}

func TestBridge_FanOutPreservesOrder(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	onA, gotA := collector()
	onB, gotB := collector()
	b.Subscribe("s1", onA, nil)
	b.Subscribe("s1", onB, nil)

	chunks := []Chunk{
		TextChunk("hel"),
		TextChunk("lo"),
		ToolUseChunk("tu-1", "bash", nil),
		ToolResultChunk("tu-1", "ok", false),
		DoneChunk(),
	}
	for _, c := range chunks {
		src.emit(c)
	}

	assert.Equal(t, chunks, *gotA)
	assert.Equal(t, chunks, *gotB)
}

func TestBridge_SubscriptionIsProspective(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	src.emit(TextChunk("before"))

	onChunk, got := collector()
	b.Subscribe("s1", onChunk, nil)
	src.emit(TextChunk("after"))
	src.emit(DoneChunk())

	require.Len(t, *got, 2)
	assert.Equal(t, "after", (*got)[0].Text)
	assert.Equal(t, ChunkDone, (*got)[1].Type)
}

func TestBridge_NoDeliveryAfterTerminal(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	onChunk, got := collector()
	b.Subscribe("s1", onChunk, nil)

	src.emit(TextChunk("one"))
	src.emit(DoneChunk())
	// Slow-to-stop source keeps emitting; all of it must be dropped.
	src.emit(TextChunk("two"))
	src.emit(ErrorChunk("late"))

	require.Len(t, *got, 2)
	assert.Equal(t, "one", (*got)[0].Text)
	assert.Equal(t, ChunkDone, (*got)[1].Type)
}

func TestBridge_ErrorChunkTerminates(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	onChunk, got := collector()
	b.Subscribe("s1", onChunk, nil)

	src.emit(ErrorChunk("generation failed"))
	src.emit(TextChunk("dropped"))

	require.Len(t, *got, 1)
	assert.Equal(t, ChunkError, (*got)[0].Type)
	assert.Equal(t, 0, b.SubscriberCount("s1"))
}

func TestBridge_ProducerErrorReachesAllSubscribers(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	var errsA, errsB []error
	b.Subscribe("s1", func(Chunk) {}, func(err error) { errsA = append(errsA, err) })
	b.Subscribe("s1", func(Chunk) {}, func(err error) { errsB = append(errsB, err) })

	src.fail(errors.New("engine crashed"))

	require.Len(t, errsA, 1)
	require.Len(t, errsB, 1)
	assert.EqualError(t, errsA[0], "engine crashed")

	// Stream is closed: nothing further is delivered.
	b.Publish("s1", TextChunk("late"))
	assert.Len(t, errsA, 1)
}

func TestBridge_LastUnsubscribeStopsSource(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	cancelA := b.Subscribe("s1", func(Chunk) {}, nil)
	cancelB := b.Subscribe("s1", func(Chunk) {}, nil)

	cancelA()
	assert.EqualValues(t, 0, src.stopCount(), "source must keep producing while a subscriber remains")

	cancelB()
	assert.EqualValues(t, 1, src.stopCount())
}

func TestBridge_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	cancel := b.Subscribe("s1", func(Chunk) {}, nil)
	cancel()
	cancel()

	assert.EqualValues(t, 1, src.stopCount(), "double unsubscribe must not double-stop")
	assert.Equal(t, 0, b.SubscriberCount("s1"))
}

func TestBridge_UnsubscribeAfterTerminalDoesNotStop(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	cancel := b.Subscribe("s1", func(Chunk) {}, nil)
	src.emit(DoneChunk())
	cancel()

	assert.EqualValues(t, 0, src.stopCount())
}

func TestBridge_SubscribeBeforeAttach(t *testing.T) {
	b := NewBridge(nil, nil)

	onChunk, got := collector()
	b.Subscribe("s1", onChunk, nil)

	src := &fakeSource{}
	b.Attach("s1", src)
	src.emit(TextChunk("hello"))

	require.Len(t, *got, 1)
	assert.Equal(t, "hello", (*got)[0].Text)
}

func TestBridge_PanickingSubscriberIsRemoved(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	b.Subscribe("s1", func(Chunk) { panic("sink gone") }, nil)
	onChunk, got := collector()
	b.Subscribe("s1", onChunk, nil)

	src.emit(TextChunk("one"))
	src.emit(TextChunk("two"))

	require.Len(t, *got, 2)
	assert.Equal(t, 1, b.SubscriberCount("s1"))
}

// A sink failure early in the fan-out must not skip or duplicate
// delivery for the subscribers after it.
func TestBridge_PanickingSubscriberDoesNotCorruptFanOut(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	b.Subscribe("s1", func(Chunk) { panic("sink gone") }, nil)
	onA, gotA := collector()
	onB, gotB := collector()
	b.Subscribe("s1", onA, nil)
	b.Subscribe("s1", onB, nil)

	src.emit(TextChunk("one"))

	require.Len(t, *gotA, 1)
	require.Len(t, *gotB, 1)
	assert.Equal(t, "one", (*gotA)[0].Text)
	assert.Equal(t, "one", (*gotB)[0].Text)
	assert.Equal(t, 2, b.SubscriberCount("s1"))

	src.emit(TextChunk("two"))
	assert.Len(t, *gotA, 2)
	assert.Len(t, *gotB, 2)
}

func TestBridge_StopForwardsToSource(t *testing.T) {
	b := NewBridge(nil, nil)
	src := &fakeSource{}
	b.Attach("s1", src)

	b.Stop("s1")
	b.Stop("s1")

	assert.EqualValues(t, 1, src.stopCount())
}

func TestBridge_StopUnknownSessionIsNoOp(t *testing.T) {
	b := NewBridge(nil, nil)
	assert.NotPanics(t, func() { b.Stop("missing") })
}

func TestBridge_PublishUnknownSessionIsNoOp(t *testing.T) {
	b := NewBridge(nil, nil)
	assert.NotPanics(t, func() { b.Publish("missing", TextChunk("x")) })
	assert.NotPanics(t, func() { b.Fail("missing", errors.New("x")) })
}

func TestBridge_IndependentSessions(t *testing.T) {
	b := NewBridge(nil, nil)
	srcA := &fakeSource{}
	srcB := &fakeSource{}
	b.Attach("a", srcA)
	b.Attach("b", srcB)

	onA, gotA := collector()
	onB, gotB := collector()
	b.Subscribe("a", onA, nil)
	b.Subscribe("b", onB, nil)

	srcA.emit(TextChunk("from a"))
	srcA.emit(DoneChunk())
	srcB.emit(TextChunk("from b"))

	require.Len(t, *gotA, 2)
	require.Len(t, *gotB, 1)
	assert.Equal(t, "from b", (*gotB)[0].Text)
}
