package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockCache_ZeroValueUsable(t *testing.T) {
	var c MockCache

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", []byte("value"))

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestNewMockCache(t *testing.T) {
	c := NewMockCache()
	c.Set("a", []byte("1"))

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), got)
}
