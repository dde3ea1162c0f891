package models

// StreamResponse carries one increment of a streamed chat completion.
// Content holds the text delta as it arrived on the wire; Done marks the
// provider's end-of-stream sentinel; Err aborts the stream.
type StreamResponse struct {
	Content string
	Done    bool
	Err     error
}

// AIError is the error envelope hosted providers return on non-2xx responses.
type AIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
