package stream

// ChunkType tags the variant of a Chunk.
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkToolUse    ChunkType = "tool_use"
	ChunkToolResult ChunkType = "tool_result"
	ChunkDone       ChunkType = "done"
	ChunkError      ChunkType = "error"
)

// ToolUse describes a tool call emitted by a session.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// ToolResult carries the output of a completed tool call.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Output    string `json:"output"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Chunk is one unit of a session's generated output. Exactly one of the
// payload fields is meaningful for a given Type. A session's stream ends
// with exactly one terminal chunk (done or error); no chunk follows it.
type Chunk struct {
	Type       ChunkType   `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolUse    *ToolUse    `json:"tool_use,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// Terminal reports whether the chunk ends its session's stream.
func (c Chunk) Terminal() bool {
	return c.Type == ChunkDone || c.Type == ChunkError
}

// TextChunk builds a text content fragment.
func TextChunk(text string) Chunk {
	return Chunk{Type: ChunkText, Text: text}
}

// ToolUseChunk builds a tool call descriptor chunk.
func ToolUseChunk(id, name string, input map[string]any) Chunk {
	return Chunk{Type: ChunkToolUse, ToolUse: &ToolUse{ID: id, Name: name, Input: input}}
}

// ToolResultChunk builds a tool result chunk.
func ToolResultChunk(toolUseID, output string, isError bool) Chunk {
	return Chunk{Type: ChunkToolResult, ToolResult: &ToolResult{ToolUseID: toolUseID, Output: output, IsError: isError}}
}

// DoneChunk builds the successful terminal chunk.
func DoneChunk() Chunk {
	return Chunk{Type: ChunkDone}
}

// ErrorChunk builds the failing terminal chunk.
func ErrorChunk(message string) Chunk {
	return Chunk{Type: ChunkError, Message: message}
}
