package toolpick

import (
	"context"

	json "github.com/goccy/go-json"
)

// Request is one structured-generation call: the conversation plus the
// contract the model's output must satisfy. Metadata carries transport hints
// (e.g. "authorization") set by middleware.
type Request struct {
	Contract *Contract
	Messages []Message
	Metadata map[string]string
}

// WithMetadata returns a copy of r with key set to value. The original map is not modified.
func (r Request) WithMetadata(key, value string) Request {
	md := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		md[k] = v
	}
	md[key] = value
	r.Metadata = md
	return r
}

// Client is the capability a structured-generation engine provides. Output is
// a JSON object holding the contract's slot.
//
// Call returns the complete output. Stream calls yield with successive partial
// outputs, each a complete JSON object that supersedes the previous one; if
// yield returns an error, Stream must stop and return it.
type Client interface {
	Call(ctx context.Context, req Request) (json.RawMessage, error)
	Stream(ctx context.Context, req Request, yield func(json.RawMessage) error) error
}
