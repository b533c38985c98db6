// Package codec wraps the external collaborator boundary the pipeline core
// hands decoded frames to and muxed packets from: GStreamer, via the
// go-gst bindings. Decode, encode, and mux correctness are explicitly
// out-of-scope per the pipeline's own design — this package is the thin
// seam the core stages call into, not a place for additional logic.
package codec

import (
	"sync"

	"github.com/go-gst/go-gst/gst"
)

var initOnce sync.Once

// Init initializes the GStreamer library. Safe to call from multiple
// goroutines or packages; only the first call has effect.
func Init() {
	initOnce.Do(func() {
		gst.Init(nil)
	})
}
