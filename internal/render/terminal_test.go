package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/five82/videopipe/internal/detect"
)

func TestTerminalDisplayWritesStatusLine(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	d := NewTerminalDisplayWriter(&buf)

	d.Upload(nil, nil, 1920, 1080)
	d.DrawFPS(24.8)
	d.DrawBoxes(detect.DetectionBatch{PTS: 1, Boxes: []detect.BoundingBox{
		{Label: "person"}, {Label: "person"}, {Label: "car"},
	}})
	d.Present()

	out := buf.String()
	assert.Contains(t, out, "1920x1080")
	assert.Contains(t, out, "24.8")
	assert.Contains(t, out, "person x2")
	assert.Contains(t, out, "car x1")
}

func TestTerminalDisplayShowsNoDetectionsWhenBatchEmpty(t *testing.T) {
	var buf bytes.Buffer
	color.NoColor = true
	d := NewTerminalDisplayWriter(&buf)

	d.Present()

	assert.Contains(t, buf.String(), "no detections")
}

func TestTerminalDisplayCloseAppendsTrailingNewlineOnlyIfPrinted(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplayWriter(&buf)

	assert.NoError(t, d.Close())
	assert.Empty(t, buf.String())

	d.Present()
	assert.NoError(t, d.Close())
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestNullDisplaySatisfiesInterface(t *testing.T) {
	var d Display = NullDisplay{}
	d.Upload(nil, nil, 0, 0)
	d.DrawBoxes(detect.DetectionBatch{})
	d.DrawFPS(0)
	d.Present()
	assert.NoError(t, d.Close())
}
