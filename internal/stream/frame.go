package stream

// FrameType tags the externally visible encoding of a chunk.
type FrameType string

const (
	FrameTextDelta       FrameType = "text_delta"
	FrameToolCall        FrameType = "tool_call"
	FrameToolResult      FrameType = "tool_result"
	FrameMessageComplete FrameType = "message_complete"
	FrameError           FrameType = "error"
)

// Frame is the wire representation of a chunk, serialized as one JSON
// object per SSE event.
type Frame struct {
	Type    FrameType      `json:"type"`
	Content string         `json:"content,omitempty"`
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name,omitempty"`
	Input   map[string]any `json:"input,omitempty"`
	Output  string         `json:"output,omitempty"`
	IsError bool           `json:"isError,omitempty"`
	Message string         `json:"message,omitempty"`
}

// FrameFor translates a chunk into its wire frame. The second return is
// false for chunks that carry no meaningful payload (an empty text delta,
// a tool_use without a descriptor): those produce no frame at all. The
// mapping is pure and deterministic.
func FrameFor(c Chunk) (Frame, bool) {
	switch c.Type {
	case ChunkText:
		if c.Text == "" {
			return Frame{}, false
		}
		return Frame{Type: FrameTextDelta, Content: c.Text}, true

	case ChunkToolUse:
		if c.ToolUse == nil || c.ToolUse.ID == "" {
			return Frame{}, false
		}
		return Frame{
			Type:  FrameToolCall,
			ID:    c.ToolUse.ID,
			Name:  c.ToolUse.Name,
			Input: c.ToolUse.Input,
		}, true

	case ChunkToolResult:
		if c.ToolResult == nil || c.ToolResult.ToolUseID == "" {
			return Frame{}, false
		}
		return Frame{
			Type:    FrameToolResult,
			ID:      c.ToolResult.ToolUseID,
			Output:  c.ToolResult.Output,
			IsError: c.ToolResult.IsError,
		}, true

	case ChunkDone:
		return Frame{Type: FrameMessageComplete}, true

	case ChunkError:
		return Frame{Type: FrameError, Message: c.Message}, true

	default:
		return Frame{}, false
	}
}

// Terminal reports whether the frame closes its stream.
func (f Frame) Terminal() bool {
	return f.Type == FrameMessageComplete || f.Type == FrameError
}
