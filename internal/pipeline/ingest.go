package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/five82/videopipe/internal/codec"
	"github.com/five82/videopipe/internal/frame"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
)

// Queues is the fan-out target set ingest clone-and-enqueues every decoded
// frame onto, in this exact order: Display, Broadcast, Record, Detect.
type Queues struct {
	Display   *queue.Queue
	Broadcast *queue.Queue
	Record    *queue.Queue
	Detect    *queue.Queue
}

// IngestState is the stage's Init->Opened->Decoding->Terminating->Done
// progression. Transition to Decoding happens only once the demux pipeline
// is playing; ingest never blocks waiting on its downstream consumers.
type IngestState int32

const (
	IngestInit IngestState = iota
	IngestOpened
	IngestDecoding
	IngestTerminating
	IngestDone
)

func (s IngestState) String() string {
	switch s {
	case IngestOpened:
		return "opened"
	case IngestDecoding:
		return "decoding"
	case IngestTerminating:
		return "terminating"
	case IngestDone:
		return "done"
	default:
		return "init"
	}
}

// Ingest is the C4 stage: it owns the source connection and is the sole
// producer for all four downstream queues.
type Ingest struct {
	sourceURL     string
	width, height int
	queues        Queues
	tok           *token.Token

	state   atomic.Int32
	demuxer *codec.Demuxer
}

// NewIngest builds an Ingest stage. queues must already be constructed by
// the caller (the supervisor); Ingest only ever enqueues onto them, never
// creates or closes them except at its own shutdown.
func NewIngest(sourceURL string, width, height int, queues Queues, tok *token.Token) *Ingest {
	return &Ingest{sourceURL: sourceURL, width: width, height: height, queues: queues, tok: tok}
}

// State reports the stage's current lifecycle position.
func (in *Ingest) State() IngestState {
	return IngestState(in.state.Load())
}

// Run opens the source, decodes it, and fans out frames until the source
// ends, an unrecoverable error occurs, or tok is cancelled. It closes all
// four downstream queues before returning, which is how cancellation
// propagates to the rest of the pipeline (spec.md §4.4 step 5).
func (in *Ingest) Run(ctx context.Context) error {
	log := logging.WithComponent("ingest")
	in.state.Store(int32(IngestInit))

	d, err := codec.NewDemuxer(in.sourceURL, in.width, in.height)
	if err != nil {
		in.state.Store(int32(IngestDone))
		return perr.New(perr.KindSourceOpenFailed, "ingest", err)
	}
	in.demuxer = d
	in.state.Store(int32(IngestOpened))

	if err := d.Start(ctx); err != nil {
		d.Close()
		in.state.Store(int32(IngestDone))
		return perr.New(perr.KindDecoderInitFailed, "ingest", err)
	}
	in.state.Store(int32(IngestDecoding))

	defer in.shutdown()

	frames := d.Frames()
	failures := d.Failures()
	var consecutiveFailures int
	for {
		select {
		case <-in.tok.Done():
			log.Info().Msg("cancellation observed, terminating")
			in.state.Store(int32(IngestTerminating))
			return nil
		case cause := <-failures:
			consecutiveFailures++
			metrics.DecodeErrors.Inc()
			log.Warn().Err(cause).Int("consecutive", consecutiveFailures).Msg("transient decode failure")
			if consecutiveFailures < perr.MaxConsecutiveDecodeFailures {
				continue
			}
			log.Error().Int("consecutive", consecutiveFailures).Msg("consecutive decode failures exceeded threshold, stalling")
			in.state.Store(int32(IngestTerminating))
			return perr.New(perr.KindDecodeStalled, "ingest", cause)
		case f, ok := <-frames:
			if !ok {
				in.state.Store(int32(IngestTerminating))
				if err := d.Err(); err != nil {
					log.Error().Err(err).Msg("demux pipeline failed")
					return perr.New(perr.KindDecodeStalled, "ingest", err)
				}
				log.Info().Msg("source ended")
				return nil
			}
			consecutiveFailures = 0
			metrics.FramesDecoded.Inc()
			in.fanOut(f)
		}
	}
}

// fanOut clone-and-enqueues f onto the four downstream queues in the order
// spec.md §4.4 step 4 requires, then hands the original reference to the
// last queue so the frame is never copied four times over, only cloned
// three.
func (in *Ingest) fanOut(f frame.Frame) {
	in.queues.Display.Enqueue(queue.FrameItem(f.Clone()))
	in.queues.Broadcast.Enqueue(queue.FrameItem(f.Clone()))
	in.queues.Record.Enqueue(queue.FrameItem(f.Clone()))
	in.queues.Detect.Enqueue(queue.FrameItem(f))
}

func (in *Ingest) shutdown() {
	if in.demuxer != nil {
		in.demuxer.Close()
	}
	in.queues.Display.Close()
	in.queues.Broadcast.Close()
	in.queues.Record.Close()
	in.queues.Detect.Close()
	in.state.Store(int32(IngestDone))
}
