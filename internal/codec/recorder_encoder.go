package codec

import (
	"fmt"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"

	"github.com/five82/videopipe/internal/frame"
)

// RecorderEncoder pushes raw frames into an encode-mux-write pipeline that
// writes a single MP4 file. Segment rotation (closing one file and opening
// the next) is handled by the recorder stage creating a new RecorderEncoder
// and discarding the old one — this type has no rotation logic of its own.
type RecorderEncoder struct {
	pipeline *gst.Pipeline
	appsrc   *app.Source
	path     string
	opened   time.Time
}

// NewRecorderEncoder builds and starts an appsrc!x264enc!h264parse!mp4mux!
// filesink pipeline writing to path.
func NewRecorderEncoder(path string, width, height int) (*RecorderEncoder, error) {
	Init()

	desc := fmt.Sprintf(
		"appsrc name=videosrc format=time is-live=true ! "+
			"video/x-raw,format=I420,width=%d,height=%d ! videoconvert ! "+
			"x264enc key-int-max=30 ! h264parse ! mp4mux faststart=true ! "+
			"filesink location=%s",
		width, height, path,
	)
	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("codec: parse recorder pipeline: %w", err)
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
		return nil, fmt.Errorf("codec: set recorder pipeline playing: %w", err)
	}

	return &RecorderEncoder{pipeline: pipeline, appsrc: src, path: path, opened: time.Now()}, nil
}

// Path returns the file path this encoder is writing.
func (e *RecorderEncoder) Path() string { return e.path }

// Age returns how long this segment has been open.
func (e *RecorderEncoder) Age() time.Duration { return time.Since(e.opened) }

// Push encodes and writes one frame, stamping the buffer with pts/dts
// rather than f.PTS()/f.DTS() so the caller's monotonicity-discipline
// corrected values are what reach the muxer. The caller retains ownership
// of f; Push copies its pixel data.
func (e *RecorderEncoder) Push(f frame.Frame, pts, dts int64) error {
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
		return fmt.Errorf("codec: recorder push-buffer returned %v", ret)
	}
	return nil
}

// Close sends end-of-stream and waits briefly for the muxer to finalize
// the file, then tears down the pipeline. Finalization ensures the MP4
// moov atom is written before the file is considered complete.
func (e *RecorderEncoder) Close() error {
	if e.pipeline == nil {
		return nil
	}
	e.appsrc.EndStream()

	bus := e.pipeline.GetPipelineBus()
	if bus != nil {
		bus.TimedPopFiltered(gst.ClockTime(2*time.Second), gst.MessageEOS|gst.MessageError)
	}
	return e.pipeline.SetState(gst.StateNull)
}
