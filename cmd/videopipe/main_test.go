package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLabelsTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"person", "car"}, splitLabels("person, car"))
	assert.Nil(t, splitLabels(""))
	assert.Nil(t, splitLabels("   "))
	assert.Equal(t, []string{"person"}, splitLabels(",person,,"))
}

func TestEnvOrDefaultFallsBackWhenUnset(t *testing.T) {
	t.Setenv("VIDEOPIPE_TEST_VAR", "")
	assert.Equal(t, "fallback", envOrDefault("VIDEOPIPE_TEST_VAR", "fallback"))

	t.Setenv("VIDEOPIPE_TEST_VAR", "explicit")
	assert.Equal(t, "explicit", envOrDefault("VIDEOPIPE_TEST_VAR", "fallback"))
}

func TestRunRejectsWrongArgCount(t *testing.T) {
	err := run([]string{"only-one-url"})
	assert.Error(t, err)

	err = run([]string{"rtsp://cam/1", "rtmp://out/live", "extra"})
	assert.Error(t, err)
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	err := run([]string{"-log-level=bogus", "rtsp://cam/1", "rtmp://out/live"})
	assert.Error(t, err)
}
