package codec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"

	"github.com/five82/videopipe/internal/frame"
)

// Demuxer opens an RTSP source, decodes its first video substream, and
// delivers decoded frames over a channel. Ownership of each delivered
// Frame transfers to the receiver, matching the queue Enqueue contract it
// feeds.
//
// Two error channels exist for two different severities: a dropped sample
// or a bus warning is transient (the sample is simply lost, decoding
// continues) and is reported on Failures(); a bus error is fatal to the
// whole demux pipeline and is reported by setting Err() before Frames()
// closes. The caller decides how many consecutive transient failures to
// tolerate before treating the stream as stalled.
type Demuxer struct {
	pipeline *gst.Pipeline
	appsink  *app.Sink
	frames   chan frame.Frame
	failures chan error
	running  atomic.Bool
	stopOnce sync.Once

	// err is written at most once, before frames is closed due to a fatal
	// bus error, and never written afterward. Readers that observe frames
	// closed are guaranteed (via the channel-close happens-before edge) to
	// see whatever err holds, so no separate synchronization is needed.
	err error

	width, height int
}

// NewDemuxer builds (but does not start) a decode pipeline for sourceURL.
// width/height describe the expected decoded frame size; a real deployment
// reads this from the negotiated caps, but the pipeline core treats it as
// a startup-time constant per the external-interfaces contract.
func NewDemuxer(sourceURL string, width, height int) (*Demuxer, error) {
	Init()

	desc := fmt.Sprintf(
		"rtspsrc location=%s latency=200 ! decodebin ! videoconvert ! "+
			"video/x-raw,format=I420,width=%d,height=%d ! appsink name=videosink",
		sourceURL, width, height,
	)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("codec: parse demux pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("videosink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("codec: get videosink: %w", err)
	}
	sink := app.SinkFromElement(elem)
	if sink == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("codec: videosink element is not an appsink")
	}

	d := &Demuxer{
		pipeline: pipeline,
		appsink:  sink,
		frames:   make(chan frame.Frame, 4),
		failures: make(chan error, 8),
		width:    width,
		height:   height,
	}
	return d, nil
}

// Start sets the pipeline to Playing and begins delivering frames. It
// returns once the state change has been requested; decode errors surface
// asynchronously by closing the Frames channel.
func (d *Demuxer) Start(ctx context.Context) error {
	d.appsink.SetProperty("emit-signals", true)
	d.appsink.SetProperty("max-buffers", uint(2))
	d.appsink.SetProperty("drop", true)
	d.appsink.SetProperty("sync", false)

	d.appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: d.onNewSample,
	})

	if err := d.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("codec: set demux pipeline playing: %w", err)
	}
	d.running.Store(true)

	go d.watchBus(ctx)
	return nil
}

func (d *Demuxer) onNewSample(sink *app.Sink) gst.FlowReturn {
	if !d.running.Load() {
		return gst.FlowEOS
	}

	sample := sink.PullSample()
	if sample == nil {
		d.reportTransient(fmt.Errorf("codec: pull sample returned nil"))
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		d.reportTransient(fmt.Errorf("codec: sample has no buffer"))
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		d.reportTransient(fmt.Errorf("codec: failed to map buffer"))
		return gst.FlowOK
	}
	defer buffer.Unmap()

	ySize := d.width * d.height
	cSize := (d.width / 2) * (d.height / 2)
	raw := mapInfo.Bytes()
	if len(raw) < ySize+2*cSize {
		d.reportTransient(fmt.Errorf("codec: buffer too small for frame: got %d bytes, need %d", len(raw), ySize+2*cSize))
		return gst.FlowOK
	}

	y := make([]byte, ySize)
	u := make([]byte, cSize)
	v := make([]byte, cSize)
	copy(y, raw[0:ySize])
	copy(u, raw[ySize:ySize+cSize])
	copy(v, raw[ySize+cSize:ySize+2*cSize])

	var pts int64
	if dur := buffer.PresentationTimestamp().AsDuration(); dur != nil {
		pts = dur.Nanoseconds()
	}

	f, err := frame.New(
		frame.PixelFormatYUV420P, d.width, d.height,
		[][]byte{y, u, v}, []int{d.width, d.width / 2, d.width / 2},
		pts, pts, frame.TimeBase{Num: 1, Den: 1_000_000_000}, nil,
	)
	if err != nil {
		d.reportTransient(fmt.Errorf("codec: build frame: %w", err))
		return gst.FlowOK
	}

	select {
	case d.frames <- f:
	default:
		// Channel briefly full: drop rather than block the GStreamer
		// streaming thread. The ingest stage's own enqueue-four-queues
		// loop is the intended drop-oldest boundary; this channel is just
		// the handoff out of the callback.
		f.Release()
	}
	return gst.FlowOK
}

// reportTransient records a single-sample decode hiccup without tearing
// down the pipeline. The send is non-blocking: a caller that isn't
// draining Failures() fast enough simply misses some reports, which is
// fine since the consecutive-failure count they drive is advisory, not
// exact.
func (d *Demuxer) reportTransient(cause error) {
	select {
	case d.failures <- cause:
	default:
	}
}

// Failures returns the channel of transient, single-sample decode
// problems: a dropped/malformed sample in the appsink callback, or a
// GStreamer bus warning. None of these close the pipeline; the caller
// decides how many consecutive occurrences to tolerate.
func (d *Demuxer) Failures() <-chan error {
	return d.failures
}

// Err returns the fatal error that caused the pipeline to stop, or nil if
// it stopped due to clean EOS or an explicit Close. Only meaningful after
// Frames() has been observed closed.
func (d *Demuxer) Err() error {
	return d.err
}

func (d *Demuxer) watchBus(ctx context.Context) {
	bus := d.pipeline.GetPipelineBus()
	if bus == nil {
		d.Close()
		return
	}
	for d.running.Load() {
		select {
		case <-ctx.Done():
			d.Close()
			return
		default:
		}
		msg := bus.TimedPop(gst.ClockTime(100 * time.Millisecond))
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			d.Close()
			return
		case gst.MessageError:
			var cause error
			if gerr := msg.ParseError(); gerr != nil {
				cause = gerr
			} else {
				cause = fmt.Errorf("codec: pipeline error")
			}
			d.closeWithError(cause)
			return
		case gst.MessageWarning:
			if gwarn := msg.ParseWarning(); gwarn != nil {
				d.reportTransient(gwarn)
			} else {
				d.reportTransient(fmt.Errorf("codec: pipeline warning"))
			}
		}
	}
}

// Frames returns the channel of decoded frames. Closed once the pipeline
// stops, whether due to EOS, an error, or Close.
func (d *Demuxer) Frames() <-chan frame.Frame {
	return d.frames
}

// Close tears down the decode pipeline and closes the Frames channel.
// Idempotent.
func (d *Demuxer) Close() {
	d.stopOnce.Do(func() {
		d.running.Store(false)
		if d.pipeline != nil {
			d.pipeline.SetState(gst.StateNull)
		}
		close(d.frames)
	})
}

// closeWithError is Close, but records cause as the reason the pipeline
// stopped so Err() can report it once Frames() is observed closed.
func (d *Demuxer) closeWithError(cause error) {
	d.stopOnce.Do(func() {
		d.running.Store(false)
		d.err = cause
		if d.pipeline != nil {
			d.pipeline.SetState(gst.StateNull)
		}
		close(d.frames)
	})
}
