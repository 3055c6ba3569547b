package lexcorpus

import "context"

// Recognizer turns a scanned PDF into text. Rendering and OCR internals are
// opaque to the engine; invocations are bounded by the coordinator's global
// OCR gate because they are CPU- and memory-bound.
type Recognizer interface {
	Recognize(ctx context.Context, pdf []byte) (string, error)
}
