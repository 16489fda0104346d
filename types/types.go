package types

// Action identifies what a synchronization event asks receivers to do.
type Action string

const (
	Set        Action = "set"
	Invalidate Action = "invalidate"
	Delete     Action = "delete"
	Clear      Action = "clear"
)

// InvalidationEvent represents a query cache synchronization event.
// Segments carries the canonical encoding of the key prefix so that receivers
// can match it against their own entries without re-canonicalizing.
type InvalidationEvent struct {
	Key      string   `json:"key"`
	Segments []string `json:"segments,omitempty"`
	Exact    bool     `json:"exact,omitempty"`
	Sender   string   `json:"sender"`
	Action   Action   `json:"action"`
}
