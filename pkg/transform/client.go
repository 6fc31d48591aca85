// Package transform calls an external provider to rework an image per a text
// instruction, and normalizes inputs to the single shape the provider accepts.
package transform

import "context"

// Client is the external image-transformation contract. The image must already
// be normalized (see Normalize); the returned bytes are a PNG encoding of the
// transformed image.
//
// Implementations do not retry: a failed transform is a hard failure and retry
// policy belongs to the caller.
type Client interface {
	Transform(ctx context.Context, image []byte, prompt string) ([]byte, error)
}
