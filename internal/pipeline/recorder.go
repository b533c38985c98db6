package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/five82/videopipe/internal/codec"
	"github.com/five82/videopipe/internal/logging"
	"github.com/five82/videopipe/internal/metrics"
	"github.com/five82/videopipe/internal/perr"
	"github.com/five82/videopipe/internal/queue"
	"github.com/five82/videopipe/internal/token"
	"github.com/five82/videopipe/internal/util"
)

// RecorderConfig carries the startup-time parameters the recorder stage
// needs.
type RecorderConfig struct {
	Dir              string
	Width, Height    int
	TargetFPS        int
	SegmentLength    time.Duration
	MinFreeDiskBytes uint64

	// OnRotate, if non-nil, is called after a segment rotation completes
	// with the closed segment's path and the newly opened one's.
	OnRotate func(closedPath, nextPath string)
}

// Recorder is the C6 stage: it drains record-Q and persists rolling MP4
// segments, rotating files every SegmentLength of wall-clock time.
type Recorder struct {
	cfg   RecorderConfig
	queue *queue.Queue
	tok   *token.Token
}

// NewRecorder builds a Recorder stage draining q.
func NewRecorder(cfg RecorderConfig, q *queue.Queue, tok *token.Token) *Recorder {
	return &Recorder{cfg: cfg, queue: q, tok: tok}
}

// Run writes frames from the record queue to rolling segment files until
// it is closed or tok is cancelled. A failure to open the first segment is
// fatal only to this stage; the pipeline continues without a recorder.
func (r *Recorder) Run() error {
	log := logging.WithComponent("recorder")

	enc, err := r.openSegment()
	if err != nil {
		drain(r.queue)
		return perr.New(perr.KindOutputOpenFailed, "recorder", err)
	}

	disc := newDiscipline(r.cfg.TargetFPS)

	for {
		item, ok := dequeueOrCancel(r.queue, r.tok)
		if !ok {
			log.Info().Msg("queue closed or cancelled, finalizing segment")
			if err := enc.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to finalize final segment")
			}
			return nil
		}
		if item.Kind != queue.ItemKindFrame {
			item.Release()
			continue
		}

		if enc.Age() >= r.cfg.SegmentLength {
			next, err := r.rotate(enc)
			if err != nil {
				log.Error().Err(err).Msg("segment rotation failed, continuing on current segment")
			} else {
				enc = next
				disc = newDiscipline(r.cfg.TargetFPS)
			}
		}

		f := item.Frame
		outPTS, outDTS := disc.next(f.PTS(), f.DTS())
		if err := enc.Push(f, outPTS, outDTS); err != nil {
			log.Warn().Err(err).Msg("packet write failed")
		}
		f.Release()
	}
}

func (r *Recorder) openSegment() (*codec.RecorderEncoder, error) {
	path := r.segmentPath()
	return codec.NewRecorderEncoder(path, r.cfg.Width, r.cfg.Height)
}

// rotate closes the current segment and opens the next one. Frames
// enqueued during rotation are not lost: Run only dequeues one item at a
// time and calls rotate before pushing it, so nothing is in flight while
// the old encoder finalizes.
func (r *Recorder) rotate(current *codec.RecorderEncoder) (*codec.RecorderEncoder, error) {
	if !util.HasSufficientDiskSpace(r.cfg.Dir, r.cfg.MinFreeDiskBytes) {
		return nil, fmt.Errorf("recorder: insufficient free disk space in %s", r.cfg.Dir)
	}
	closedPath := current.Path()
	if err := current.Close(); err != nil {
		return nil, fmt.Errorf("recorder: finalize segment %s: %w", closedPath, err)
	}
	path := r.segmentPath()
	next, err := codec.NewRecorderEncoder(path, r.cfg.Width, r.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("recorder: open segment %s: %w", path, err)
	}
	metrics.SegmentRotations.Inc()
	if r.cfg.OnRotate != nil {
		r.cfg.OnRotate(closedPath, path)
	}
	return next, nil
}

func (r *Recorder) segmentPath() string {
	name := fmt.Sprintf("local_%s.mp4", time.Now().Format("20060102_150405"))
	if r.cfg.Dir == "" {
		return name
	}
	return filepath.Join(r.cfg.Dir, name)
}
