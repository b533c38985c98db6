package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWatchSetBuildsMembershipSet(t *testing.T) {
	set := NewWatchSet([]string{"person", "car"})

	_, hasPerson := set["person"]
	_, hasCar := set["car"]
	_, hasDog := set["dog"]

	assert.True(t, hasPerson)
	assert.True(t, hasCar)
	assert.False(t, hasDog)
	assert.Len(t, set, 2)
}

func TestNewWatchSetEmptyInputYieldsEmptySet(t *testing.T) {
	set := NewWatchSet(nil)
	assert.Empty(t, set)
}
