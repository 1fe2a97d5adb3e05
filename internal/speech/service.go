// Package speech is the gateway's thin boundary to external speech engines.
// The core only gates these calls behind authentication and rate limiting;
// transcoding, storage and delivery of audio stay outside the gateway.
package speech

import "context"

// SynthesisRequest asks for spoken audio of one text.
type SynthesisRequest struct {
	Text   string
	Voice  string // engine default when empty
	Format string // audio container, engine default when empty
}

// TranscriptionRequest asks for the text of one uploaded audio payload.
type TranscriptionRequest struct {
	Audio    []byte
	Filename string // used by engines to sniff the container format
	Language string // ISO 639-1 hint, empty for auto
}

// Engine converts between text and speech.
type Engine interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
	Name() string
}
