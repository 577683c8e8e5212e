package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	m := NewManager("")

	assert.False(t, m.Enabled(BookmarkExpired, 1))
	assert.True(t, m.Enabled(RealtimeEvents, 1))
	assert.True(t, m.Enabled(ImageNormalize, 1))
	assert.False(t, m.Enabled("unknown", 1))
}

func TestOverrides(t *testing.T) {
	m := NewManager(" Bookmark_Expired = ON , realtime_events=false, bad , =on, x= ")

	assert.True(t, m.Enabled(BookmarkExpired, 7))
	assert.False(t, m.Enabled(RealtimeEvents, 7))

	raw := m.Raw()
	assert.Equal(t, "on", raw[BookmarkExpired])
	assert.NotContains(t, raw, "x")
	assert.NotContains(t, raw, "bad")
}

func TestPercentageRollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("junk", 1))
	assert.False(t, m.Enabled("canary", 0), "rollout requires a signed-in user")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.Greater(t, enabled, 0)
	assert.Less(t, enabled, 1000)
}

func TestNames(t *testing.T) {
	m := NewManager("bookmark_expired=on,custom=25%")
	assert.Equal(t, []string{BookmarkExpired, "custom", ImageNormalize, RealtimeEvents}, m.Names())
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(RealtimeEvents, 1))
	assert.Empty(t, m.Raw())
	assert.Empty(t, m.Names())
}
