package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegmentPathJoinsConfiguredDir(t *testing.T) {
	r := &Recorder{cfg: RecorderConfig{Dir: "/var/record"}}
	path := r.segmentPath()

	assert.True(t, strings.HasPrefix(path, "/var/record/local_"))
	assert.True(t, strings.HasSuffix(path, ".mp4"))
}

func TestSegmentPathWithEmptyDirIsBareName(t *testing.T) {
	r := &Recorder{cfg: RecorderConfig{Dir: ""}}
	path := r.segmentPath()

	assert.True(t, strings.HasPrefix(path, "local_"))
	assert.False(t, strings.Contains(path, "/"))
}
