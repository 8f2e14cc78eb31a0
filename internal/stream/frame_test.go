package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFor_TextDelta(t *testing.T) {
	f, ok := FrameFor(TextChunk("hello"))
	require.True(t, ok)
	assert.Equal(t, FrameTextDelta, f.Type)
	assert.Equal(t, "hello", f.Content)
}

func TestFrameFor_EmptyTextProducesNoFrame(t *testing.T) {
	_, ok := FrameFor(TextChunk(""))
	assert.False(t, ok)
}

func TestFrameFor_ToolCall(t *testing.T) {
	f, ok := FrameFor(ToolUseChunk("tu-1", "read_file", map[string]any{"path": "main.go"}))
	require.True(t, ok)
	assert.Equal(t, FrameToolCall, f.Type)
	assert.Equal(t, "tu-1", f.ID)
	assert.Equal(t, "read_file", f.Name)
	assert.Equal(t, "main.go", f.Input["path"])
}

func TestFrameFor_ToolUseWithoutDescriptorProducesNoFrame(t *testing.T) {
	_, ok := FrameFor(Chunk{Type: ChunkToolUse})
	assert.False(t, ok)

	_, ok = FrameFor(ToolUseChunk("", "read_file", nil))
	assert.False(t, ok)
}

func TestFrameFor_ToolResult(t *testing.T) {
	f, ok := FrameFor(ToolResultChunk("tu-1", "file contents", false))
	require.True(t, ok)
	assert.Equal(t, FrameToolResult, f.Type)
	assert.Equal(t, "tu-1", f.ID)
	assert.Equal(t, "file contents", f.Output)
	assert.False(t, f.IsError)
}

func TestFrameFor_ToolResultError(t *testing.T) {
	f, ok := FrameFor(ToolResultChunk("tu-2", "permission denied", true))
	require.True(t, ok)
	assert.True(t, f.IsError)
}

func TestFrameFor_Done(t *testing.T) {
	f, ok := FrameFor(DoneChunk())
	require.True(t, ok)
	assert.Equal(t, FrameMessageComplete, f.Type)
	assert.True(t, f.Terminal())
}

func TestFrameFor_Error(t *testing.T) {
	f, ok := FrameFor(ErrorChunk("model overloaded"))
	require.True(t, ok)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "model overloaded", f.Message)
	assert.True(t, f.Terminal())
}

func TestFrameFor_UnknownType(t *testing.T) {
	_, ok := FrameFor(Chunk{Type: ChunkType("bogus")})
	assert.False(t, ok)
}

// Same chunk always yields the same frame.
func TestFrameFor_Deterministic(t *testing.T) {
	c := ToolUseChunk("tu-9", "bash", map[string]any{"cmd": "ls"})
	f1, ok1 := FrameFor(c)
	f2, ok2 := FrameFor(c)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, f1, f2)
}
