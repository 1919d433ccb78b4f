package stream

import "errors"

// Sentinel errors for chunk parsing and stream continuity.
var (
	// ErrInvalidChunk indicates a chunk payload that could not be decoded or
	// failed structural validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrChunkOutOfOrder indicates a chunk whose start precedes the stream
	// cursor. The chunk must be discarded; the cursor does not move.
	ErrChunkOutOfOrder = errors.New("chunk out of order")

	// ErrStreamGap indicates missing samples between the stream cursor and
	// the chunk start. The chunk itself is valid and the cursor resyncs to
	// its end.
	ErrStreamGap = errors.New("gap in sample stream")
)
