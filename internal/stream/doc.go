// Package stream implements the fan-out bridge between a session's event
// source and its live consumers.
//
// A session's generation events (text deltas, tool invocations, tool
// results, completion, errors) arrive as Chunks, are translated into wire
// Frames, and are delivered in emission order to every active subscriber.
// Cancellation by the last subscriber propagates back into the source as a
// stop request. An optional NATS relay republishes frames for consumers
// outside the process.
package stream
