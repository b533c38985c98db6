package codec

import (
	"fmt"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"

	"github.com/five82/videopipe/internal/frame"
)

// RebroadcastEncoder pushes raw frames into an encode-mux-publish pipeline
// targeting an RTMP sink.
type RebroadcastEncoder struct {
	pipeline *gst.Pipeline
	appsrc   *app.Source
}

// NewRebroadcastEncoder builds and starts an appsrc!x264enc!flvmux!rtmpsink
// pipeline targeting rebroadcastURL, encoding at bitrateBPS with a keyframe
// interval of gopSize frames.
func NewRebroadcastEncoder(rebroadcastURL string, width, height, bitrateBPS, gopSize int) (*RebroadcastEncoder, error) {
	Init()

	desc := fmt.Sprintf(
		"appsrc name=videosrc format=time is-live=true ! "+
			"video/x-raw,format=I420,width=%d,height=%d ! videoconvert ! "+
			"x264enc bitrate=%d key-int-max=%d tune=zerolatency ! "+
			"h264parse ! flvmux streamable=true ! rtmpsink location=%s",
		width, height, bitrateBPS/1000, gopSize, rebroadcastURL,
	)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("codec: parse rebroadcast pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("videosrc")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("codec: get videosrc: %w", err)
	}
	src := app.SrcFromElement(elem)
	if src == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("codec: videosrc element is not an appsrc")
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("codec: set rebroadcast pipeline playing: %w", err)
	}

	return &RebroadcastEncoder{pipeline: pipeline, appsrc: src}, nil
}

// Push encodes and publishes one frame, stamping the buffer with pts/dts
// rather than f.PTS()/f.DTS() — the caller is responsible for monotonicity
// discipline and passes its corrected values in. The caller retains
// ownership of f and must Release it after Push returns; Push copies pixel
// data into a new GStreamer buffer rather than taking f's reference.
func (e *RebroadcastEncoder) Push(f frame.Frame, pts, dts int64) error {
	planes := f.PlaneData()
	total := 0
	for _, p := range planes {
		total += len(p)
	}
	data := make([]byte, 0, total)
	for _, p := range planes {
		data = append(data, p...)
	}

	buf := gst.NewBufferFromBytes(data)
	buf.SetPresentationTimestamp(gst.ClockTime(pts))
	buf.SetDecodingTimestamp(gst.ClockTime(dts))

	if ret := e.appsrc.PushBuffer(buf); ret != gst.FlowOK {
		return fmt.Errorf("codec: rebroadcast push-buffer returned %v", ret)
	}
	return nil
}

// Close tears down the rebroadcast pipeline.
func (e *RebroadcastEncoder) Close() error {
	if e.pipeline == nil {
		return nil
	}
	return e.pipeline.SetState(gst.StateNull)
}
