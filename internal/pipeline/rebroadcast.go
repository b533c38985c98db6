package pipeline

import (
	"github.com/five82/videopipe/internal/codec"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
)

// RebroadcastConfig carries the startup-time encoder parameters the
// re-broadcast stage needs; these are shared immutable values passed at
// startup, per spec.md §5.
type RebroadcastConfig struct {
	URL           string
	Width, Height int
	BitrateBPS    int
	GOPSize       int
	TargetFPS     int
}

// Rebroadcast is the C5 stage: it drains broadcast-Q, encodes, and muxes
// to an RTMP output, enforcing timestamp monotonicity on the way out.
type Rebroadcast struct {
	cfg   RebroadcastConfig
	queue *queue.Queue
	tok   *token.Token
}

// NewRebroadcast builds a Rebroadcast stage draining q.
func NewRebroadcast(cfg RebroadcastConfig, q *queue.Queue, tok *token.Token) *Rebroadcast {
	return &Rebroadcast{cfg: cfg, queue: q, tok: tok}
}

// Run encodes and publishes frames from the broadcast queue until it is
// closed or tok is cancelled. A failure to open the output is fatal only
// to this stage (spec.md §7); the pipeline continues without a
// re-broadcast consumer.
func (r *Rebroadcast) Run() error {
	log := logging.WithComponent("rebroadcast")

	enc, err := codec.NewRebroadcastEncoder(r.cfg.URL, r.cfg.Width, r.cfg.Height, r.cfg.BitrateBPS, r.cfg.GOPSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to open rebroadcast output")
		drain(r.queue)
		return perr.New(perr.KindOutputOpenFailed, "rebroadcast", err)
	}
	defer enc.Close()

	disc := newDiscipline(r.cfg.TargetFPS)

	for {
		item, ok := dequeueOrCancel(r.queue, r.tok)
		if !ok {
			log.Info().Msg("queue closed or cancelled, draining")
			return nil
		}
		if item.Kind != queue.ItemKindFrame {
			item.Release()
			continue
		}

		f := item.Frame
		outPTS, outDTS := disc.next(f.PTS(), f.DTS())

		if err := enc.Push(f, outPTS, outDTS); err != nil {
			log.Warn().Err(err).Msg("packet write failed")
			metrics.RebroadcastPacketWriteFailures.Inc()
		}
		f.Release()
	}
}

// drain empties q without processing its items, releasing every frame
// reference so a startup failure doesn't leak what ingest has already
// enqueued.
func drain(q *queue.Queue) {
	q.Destroy()
}
