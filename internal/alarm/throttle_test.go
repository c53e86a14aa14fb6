package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle(t *testing.T) {
	base := time.Date(2024, 1, 12, 7, 0, 0, 0, time.UTC)
	th := NewThrottle(5 * time.Minute)

	assert.True(t, th.Allow(base), "first firing is allowed")
	assert.False(t, th.Allow(base.Add(time.Minute)))
	assert.False(t, th.Allow(base.Add(5*time.Minute-time.Second)))
	assert.True(t, th.Allow(base.Add(5*time.Minute)))
	assert.False(t, th.Allow(base.Add(6*time.Minute)), "window restarts from the last allowed firing")
	assert.True(t, th.Allow(base.Add(10*time.Minute)))
}
